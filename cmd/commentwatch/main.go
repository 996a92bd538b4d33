// Command commentwatch runs the streaming comment anomaly-detection
// pipeline: one orchestrator loop per configured video plus the operator
// HTTP/WS API, following the teacher's single-binary-per-service layout
// (aggregator/main.go, ledger/main.go) generalized to one process owning
// N video loops instead of one HTTP handler.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"commentwatch/internal/baseline"
	"commentwatch/internal/breaker"
	"commentwatch/internal/config"
	"commentwatch/internal/cursorcache"
	"commentwatch/internal/httpapi"
	"commentwatch/internal/logging"
	"commentwatch/internal/orchestrator"
	"commentwatch/internal/sentiment"
	"commentwatch/internal/source"
	"commentwatch/internal/store"
)

func main() {
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, cfg.DatabaseURL, lg)
	if err != nil {
		lg.Error("store_open_failed", "error", err.Error())
		os.Exit(1)
	}
	defer st.Close()

	brkCfg := breaker.Config{MaxFailures: 5, ResetTimeout: 30 * time.Second, SuccessesToClose: 1}
	sourceClient := source.New(cfg.CommentSourceURL, brkCfg, lg)
	sentimentClient := sentiment.New(cfg.SentimentURL, brkCfg, lg)
	cache := cursorcache.New(cfg.RedisAddr, lg)
	defer cache.Close()

	api := httpapi.New(cfg, lg, func() map[string]breaker.State {
		return map[string]breaker.State{
			"comment_source": sourceClient.State(),
			"sentiment":      sentimentClient.State(),
		}
	}, cfg.HTTPBind, 200)

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

	mgr := orchestrator.NewManager(tune.PollInterval, baselineOpts, orchestrator.Deps{
		Source:    sourceClient,
		Sentiment: sentimentClient,
		Store:     st,
		Cache:     cache,
		Publisher: api,
		Sink:      os.Stdout,
		Logger:    lg,
	})

	go func() {
		if err := api.Run(ctx); err != nil {
			lg.Error("httpapi_exited", "error", err.Error())
		}
	}()

	lg.Info("commentwatch_starting", "videos", tune.Videos, "poll_interval", tune.PollInterval.String())
	mgr.Run(ctx, tune.Videos)
	lg.Info("commentwatch_stopped")
}
