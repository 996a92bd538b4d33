// Command replaytool re-runs the Replay Engine against already-persisted
// comments for one video, optionally bounded to a --from/--to time range,
// without starting the live poller. Flag parsing follows the govship
// example commands' pflag usage.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	"commentwatch/internal/baseline"
	"commentwatch/internal/config"
	"commentwatch/internal/logging"
	"commentwatch/internal/replay"
	"commentwatch/internal/store"
)

func main() {
	videoID := pflag.String("video", "", "Video ID to replay (required)")
	from := pflag.String("from", "", "RFC3339 timestamp; restrict replay to comments at or after this time (optional)")
	to := pflag.String("to", "", "RFC3339 timestamp; restrict replay to comments at or before this time (optional)")
	pflag.Parse()

	if *videoID == "" {
		fmt.Fprintln(os.Stderr, "Usage: replaytool --video VIDEO_ID [--from RFC3339] [--to RFC3339]")
		os.Exit(2)
	}
	var fromTime, toTime time.Time
	if *from != "" {
		var err error
		fromTime, err = time.Parse(time.RFC3339, *from)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid --from: %v\n", err)
			os.Exit(2)
		}
	}
	if *to != "" {
		var err error
		toTime, err = time.Parse(time.RFC3339, *to)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid --to: %v\n", err)
			os.Exit(2)
		}
	}

	lg, logFile := logging.Init()
	if logFile != nil {
		defer logFile.Close()
	}

	cfg, err := config.LoadEnvAndFiles()
	if err != nil {
		lg.Error("config_load_failed", "error", err.Error())
		os.Exit(1)
	}
	tune := cfg.Snapshot()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	st, err := store.Open(ctx, cfg.DatabaseURL, lg)
	if err != nil {
		lg.Error("store_open_failed", "error", err.Error())
		os.Exit(1)
	}
	defer st.Close()

	baselineOpts := baseline.Options{
		MaxWindows:               tune.MaxWindows,
		Warmup:                   tune.WarmupPeriod,
		NoiseFloor:               tune.NoiseFloor,
		RoboticThreshold:         tune.RoboticThreshold,
		RoboticPenaltyMultiplier: tune.RoboticPenaltyMultiplier,
		Weights: baseline.Weights{
			Concentration: tune.Weights.Concentration,
			GapVariance:   tune.Weights.GapVariance,
			SentimentVar:  tune.Weights.SentimentVar,
			Count:         tune.Weights.Count,
		},
	}

	res, err := replay.Run(ctx, st, lg, *videoID, replay.Options{
		Period:       tune.PollInterval,
		BaselineOpts: baselineOpts,
		Sink:         os.Stdout,
		From:         fromTime,
		To:           toTime,
	})
	if err != nil {
		lg.Error("replay_failed", "video_id", *videoID, "error", err.Error())
		os.Exit(1)
	}
	fmt.Printf("replayed %s: %d windows processed, %d skipped, %d alerts raised\n",
		*videoID, res.WindowsProcessed, res.WindowsSkipped, res.AlertsRaised)
}
