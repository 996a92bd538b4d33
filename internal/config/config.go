// v0
// config.go
package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Weights holds the composite-score weighting described in spec.md §4.B.
// The zero value is invalid; LoadEnvAndFiles always fills in the documented
// defaults for any weight left unset in the properties file.
type Weights struct {
	Concentration float64
	GapVariance   float64
	SentimentVar  float64
	Count         float64
}

// Tunables are the operator-adjustable knobs loaded from the .properties
// file, per spec.md §6's Configuration section. A reload swaps the whole
// struct atomically so readers never observe a half-applied update.
type Tunables struct {
	PollInterval             time.Duration
	MaxWindows               int
	WarmupPeriod             int
	NoiseFloor               float64
	RoboticThreshold         float64
	RoboticPenaltyMultiplier float64
	Weights                  Weights
	Videos                   []string
}

// AppConfig is the process-wide configuration: connection strings and
// endpoints come from the environment (secrets, per-deploy wiring), and the
// tunables that an operator adjusts at runtime come from a .properties file,
// following the split services/mape/internal/config.go uses.
type AppConfig struct {
	HTTPBind         string
	DatabaseURL      string
	CommentSourceURL string
	SentimentURL     string
	RedisAddr        string
	PropertiesPath   string

	mu   sync.RWMutex
	tune Tunables
}

// LoadEnvAndFiles reads connection settings from the environment and
// tunables from the .properties file named by PROPERTIES_PATH (default
// ./configs/commentwatch.properties).
func LoadEnvAndFiles() (*AppConfig, error) {
	c := &AppConfig{
		HTTPBind:         getenv("HTTP_BIND", ":8080"),
		DatabaseURL:      getenv("DATABASE_URL", ""),
		CommentSourceURL: getenv("COMMENT_SOURCE_URL", ""),
		SentimentURL:     getenv("SENTIMENT_URL", ""),
		RedisAddr:        getenv("REDIS_ADDR", ""),
		PropertiesPath:   getenv("PROPERTIES_PATH", "./configs/commentwatch.properties"),
	}
	if c.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL required")
	}
	if c.CommentSourceURL == "" {
		return nil, errors.New("COMMENT_SOURCE_URL required")
	}
	if err := c.loadProperties(c.PropertiesPath); err != nil {
		return nil, err
	}
	return c, nil
}

// ReloadProperties re-reads the properties file in place, used by the
// operator HTTP API's /config/reload handler.
func (c *AppConfig) ReloadProperties() error { return c.loadProperties(c.PropertiesPath) }

func (c *AppConfig) loadProperties(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	pollInterval := 600 * time.Second
	maxWindows := 20
	warmup := 10
	noiseFloor := 1.0
	roboticThreshold := -1.5
	roboticPenalty := 2.0
	weights := Weights{Concentration: 0.4, GapVariance: 0.3, SentimentVar: 0.2, Count: 0.1}
	var videos []string

	s := bufio.NewScanner(f)
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "//") {
			continue
		}
		k, v, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		k = strings.TrimSpace(k)
		v = strings.TrimSpace(v)
		switch k {
		case "poll_interval_seconds":
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				pollInterval = time.Duration(n) * time.Second
			}
		case "max_windows":
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				maxWindows = n
			}
		case "warmup_period":
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				warmup = n
			}
		case "noise_floor":
			if n, err := strconv.ParseFloat(v, 64); err == nil {
				noiseFloor = n
			}
		case "robotic_threshold":
			if n, err := strconv.ParseFloat(v, 64); err == nil {
				roboticThreshold = n
			}
		case "robotic_penalty_multiplier":
			if n, err := strconv.ParseFloat(v, 64); err == nil {
				roboticPenalty = n
			}
		case "weight.concentration":
			if n, err := strconv.ParseFloat(v, 64); err == nil {
				weights.Concentration = n
			}
		case "weight.gap_variance":
			if n, err := strconv.ParseFloat(v, 64); err == nil {
				weights.GapVariance = n
			}
		case "weight.sentiment_var":
			if n, err := strconv.ParseFloat(v, 64); err == nil {
				weights.SentimentVar = n
			}
		case "weight.count":
			if n, err := strconv.ParseFloat(v, 64); err == nil {
				weights.Count = n
			}
		case "videos":
			videos = split(v, ",")
		}
	}
	if err := s.Err(); err != nil {
		return err
	}
	if len(videos) == 0 {
		return errors.New("videos must be set in properties")
	}

	c.mu.Lock()
	c.tune = Tunables{
		PollInterval:             pollInterval,
		MaxWindows:               maxWindows,
		WarmupPeriod:             warmup,
		NoiseFloor:               noiseFloor,
		RoboticThreshold:         roboticThreshold,
		RoboticPenaltyMultiplier: roboticPenalty,
		Weights:                  weights,
		Videos:                   videos,
	}
	c.mu.Unlock()
	return nil
}

// Snapshot returns a copy of the hot-reloadable tunables, safe to read
// concurrently with a ReloadProperties call.
func (c *AppConfig) Snapshot() Tunables {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t := c.tune
	t.Videos = append([]string(nil), c.tune.Videos...)
	return t
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func split(s, sep string) []string {
	if s == "" {
		return nil
	}
	p := strings.Split(s, sep)
	out := make([]string, 0, len(p))
	for _, x := range p {
		x = strings.TrimSpace(x)
		if x != "" {
			out = append(out, x)
		}
	}
	return out
}
