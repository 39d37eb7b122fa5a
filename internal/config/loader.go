package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// transcriberNames lists the recognised transcription backends.
var transcriberNames = []string{"whisper", "openai"}

// Load reads the YAML configuration file at path and returns a validated
// [Config] with defaults applied. It is a convenience wrapper around
// [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults, and
// validates the result. Useful in tests where configs are constructed from
// string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults fills zero-valued fields with the reference deployment's
// defaults (see the schema doc comments for the values).
func applyDefaults(cfg *Config) {
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = LogInfo
	}
	if cfg.Audio.SampleRate == 0 {
		cfg.Audio.SampleRate = 16000
	}
	if cfg.Audio.BlockMs == 0 {
		cfg.Audio.BlockMs = 500
	}
	if cfg.Diarize.SimilarityThreshold == 0 {
		cfg.Diarize.SimilarityThreshold = 0.95
	}
	if cfg.Diarize.ActivityThreshold == 0 {
		cfg.Diarize.ActivityThreshold = 0.01
	}
	if cfg.Diarize.MinBlockMs == 0 {
		cfg.Diarize.MinBlockMs = 300
	}
	if cfg.Profile.Path == "" {
		cfg.Profile.Path = "user_profile.json"
	}
	if cfg.Profile.Name == "" {
		cfg.Profile.Name = "default"
	}
	if cfg.Extractor.Dimensions == 0 {
		cfg.Extractor.Dimensions = 39
	}
	if cfg.Transcriber.Name == "" {
		cfg.Transcriber.Name = "whisper"
	}
	if cfg.Transcriber.Name == "whisper" && cfg.Transcriber.BaseURL == "" {
		cfg.Transcriber.BaseURL = "http://localhost:8080"
	}
}

// Validate checks that cfg contains a coherent set of values. It returns a
// joined error listing all hard failures found; soft issues are logged as
// warnings.
func Validate(cfg *Config) error {
	var errs []error

	if !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Audio.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("audio.sample_rate must be positive, got %d", cfg.Audio.SampleRate))
	}
	if cfg.Audio.BlockMs <= 0 {
		errs = append(errs, fmt.Errorf("audio.block_ms must be positive, got %d", cfg.Audio.BlockMs))
	}
	if t := cfg.Diarize.SimilarityThreshold; t < -1 || t > 1 {
		errs = append(errs, fmt.Errorf("diarize.similarity_threshold %v outside [-1, 1]", t))
	}
	if cfg.Diarize.ActivityThreshold < 0 {
		errs = append(errs, fmt.Errorf("diarize.activity_threshold must not be negative, got %v", cfg.Diarize.ActivityThreshold))
	}
	if cfg.Diarize.MinBlockMs < 0 {
		errs = append(errs, fmt.Errorf("diarize.min_block_ms must not be negative, got %d", cfg.Diarize.MinBlockMs))
	}
	if cfg.Extractor.Dimensions <= 0 {
		errs = append(errs, fmt.Errorf("extractor.dimensions must be positive, got %d", cfg.Extractor.Dimensions))
	}
	if cfg.Extractor.BaseURL == "" {
		errs = append(errs, errors.New("extractor.base_url is required"))
	}

	switch cfg.Transcriber.Name {
	case "whisper":
		if cfg.Transcriber.BaseURL == "" {
			errs = append(errs, errors.New("transcriber.base_url is required for the whisper backend"))
		}
	case "openai":
		if cfg.Transcriber.APIKey == "" {
			errs = append(errs, errors.New("transcriber.api_key is required for the openai backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("transcriber.name %q is unknown; valid values: %v", cfg.Transcriber.Name, transcriberNames))
	}

	if cfg.Diarize.MinBlockMs > cfg.Audio.BlockMs {
		slog.Warn("diarize.min_block_ms exceeds audio.block_ms; every full block will be skipped as too short",
			"min_block_ms", cfg.Diarize.MinBlockMs,
			"block_ms", cfg.Audio.BlockMs,
		)
	}
	if cfg.Storage.PostgresDSN == "" {
		slog.Warn("storage.postgres_dsn is empty; sessions cannot be persisted")
	}

	return errors.Join(errs...)
}
