package config

import (
	"os"
	"strconv"
	"time"

	"github.com/guidoenr/lanechart/internal/decode"
	"github.com/guidoenr/lanechart/internal/params"
)

// Config holds runtime settings for the CLI and the analysis service, loaded
// from environment variables. Command-line flags override these values.
type Config struct {
	// Server
	Port          int
	MaxUploadMB   int
	DecodeTimeout time.Duration
	MaxJobs       int // concurrent analyses; more uploads wait queued

	// Analysis
	Preset     string
	ParamsFile string
	Workers    int // 0 means GOMAXPROCS

	// Decoding
	FFmpeg string
}

// Load reads configuration from environment variables with sane defaults.
func Load() Config {
	return Config{
		Port:          envInt("LANECHART_PORT", 8080),
		MaxUploadMB:   envInt("LANECHART_MAX_UPLOAD_MB", 64),
		DecodeTimeout: envDuration("LANECHART_DECODE_TIMEOUT", 5*time.Minute),
		MaxJobs:       envInt("LANECHART_MAX_JOBS", 2),
		Preset:        envStr("LANECHART_PRESET", "standard"),
		ParamsFile:    envStr("LANECHART_PARAMS_FILE", ""),
		Workers:       envInt("LANECHART_WORKERS", 0),
		FFmpeg:        envStr("LANECHART_FFMPEG", "ffmpeg"),
	}
}

// Parameters resolves the analysis parameters: the preset, overlaid by the
// parameter file when one is set, with the worker count applied last.
func (c Config) Parameters() (params.Parameters, error) {
	p, err := params.Preset(c.Preset)
	if err != nil {
		return params.Parameters{}, err
	}
	if c.ParamsFile != "" {
		if p, err = params.LoadOver(c.ParamsFile, p); err != nil {
			return params.Parameters{}, err
		}
	}
	if c.Workers > 0 {
		p.Workers = c.Workers
	}
	return p, p.Validate()
}

// DecodeOptions returns the decoder settings.
func (c Config) DecodeOptions() decode.Options {
	return decode.Options{FFmpeg: c.FFmpeg, Timeout: c.DecodeTimeout}
}

// MaxUploadBytes is the request body limit of the analysis service.
func (c Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

// envDuration accepts Go duration strings ("90s", "5m") or plain seconds.
func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return fallback
}
