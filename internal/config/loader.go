package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/cwbudde/algo-autotune/autotune"
)

// Environment variables that override file values.
const (
	EnvListenAddr = "AUTOTUNE_LISTEN_ADDR"
	EnvLogLevel   = "AUTOTUNE_LOG_LEVEL"
	EnvDataDir    = "AUTOTUNE_DATA_DIR"
)

// Load reads the YAML configuration file at path, applies environment
// overrides and returns a validated [Config].
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

// LoadOrDefault loads path when it exists and falls back to [Default]
// otherwise. Environment overrides apply in both cases.
func LoadOrDefault(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config: stat %q: %w", path, err)
		}
	}

	cfg := Default()
	ApplyEnv(cfg, os.LookupEnv)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r on top of [Default], applies
// environment overrides and validates the result.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	ApplyEnv(cfg, os.LookupEnv)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides cfg with values found by lookup.
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvListenAddr); ok && v != "" {
		cfg.Server.ListenAddr = v
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		cfg.Server.LogLevel = LogLevel(v)
	}
	if v, ok := lookup(EnvDataDir); ok && v != "" {
		cfg.Storage.DataDir = v
		cfg.Storage.DBPath = filepath.Join(v, "jobs.sqlite3")
	}
}

// UploadDir is where raw uploads are stored.
func (c StorageConfig) UploadDir() string { return filepath.Join(c.DataDir, "uploads") }

// ProcessedDir is where encoded results are stored.
func (c StorageConfig) ProcessedDir() string { return filepath.Join(c.DataDir, "processed") }

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.ListenAddr == "" {
		errs = append(errs, errors.New("server.listen_addr is required"))
	}
	if !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if !cfg.Server.LogFormat.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_format %q is invalid; valid values: text, json", cfg.Server.LogFormat))
	}
	if cfg.Server.MaxUploadMB <= 0 {
		errs = append(errs, fmt.Errorf("server.max_upload_mb %d must be > 0", cfg.Server.MaxUploadMB))
	}
	if cfg.Server.RequestTimeout <= 0 {
		errs = append(errs, fmt.Errorf("server.request_timeout %s must be > 0", cfg.Server.RequestTimeout))
	}
	if cfg.Server.ShutdownTimeout < 0 {
		errs = append(errs, fmt.Errorf("server.shutdown_timeout %s must not be negative", cfg.Server.ShutdownTimeout))
	}

	// Storage
	if cfg.Storage.DataDir == "" {
		errs = append(errs, errors.New("storage.data_dir is required"))
	}
	if cfg.Storage.DBPath == "" {
		errs = append(errs, errors.New("storage.db_path is required"))
	}

	// Processing
	p := cfg.Processing
	if p.MinStrength < 0 || p.MaxStrength > 1 || p.MinStrength > p.MaxStrength {
		errs = append(errs, fmt.Errorf("processing strength range [%.2f, %.2f] must lie within [0, 1]", p.MinStrength, p.MaxStrength))
	}
	if p.DefaultStrength < p.MinStrength || p.DefaultStrength > p.MaxStrength {
		errs = append(errs, fmt.Errorf("processing.default_strength %.2f is outside [%.2f, %.2f]", p.DefaultStrength, p.MinStrength, p.MaxStrength))
	}
	if _, ok := autotune.ParseScaleType(p.DefaultScale); !ok {
		errs = append(errs, fmt.Errorf("processing.default_scale %q is invalid; valid values: major, minor, pentatonic", p.DefaultScale))
	}
	if _, err := autotune.ParseNote(p.DefaultRoot); err != nil {
		errs = append(errs, fmt.Errorf("processing.default_root %q is invalid", p.DefaultRoot))
	}
	if err := (autotune.FrameConfig{Length: p.FrameLength, Hop: p.HopLength}).Validate(); err != nil {
		errs = append(errs, fmt.Errorf("processing frame_length/hop_length: %w", err))
	}
	if !slices.Contains([]string{autotune.DetectorAutocorr, autotune.DetectorSpectral, autotune.DetectorFallback}, p.Detector) {
		errs = append(errs, fmt.Errorf("processing.detector %q is invalid; valid values: autocorr, spectral, fallback", p.Detector))
	}
	if p.MinFreq <= 0 || p.MaxFreq <= p.MinFreq {
		errs = append(errs, fmt.Errorf("processing frequency range [%.1f, %.1f] is invalid", p.MinFreq, p.MaxFreq))
	}
	if p.MinConfidence < 0 || p.MinConfidence > 1 {
		errs = append(errs, fmt.Errorf("processing.min_confidence %.2f is out of range [0, 1]", p.MinConfidence))
	}
	if p.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("processing.sample_rate %d must be > 0", p.SampleRate))
	} else if p.MaxFreq >= float64(p.SampleRate)/2 {
		errs = append(errs, fmt.Errorf("processing.max_freq %.1f must be below Nyquist", p.MaxFreq))
	}
	switch p.BitDepth {
	case 16, 24, 32:
	default:
		errs = append(errs, fmt.Errorf("processing.bit_depth %d is invalid; valid values: 16, 24, 32", p.BitDepth))
	}
	if p.Workers < 0 {
		errs = append(errs, fmt.Errorf("processing.workers %d must not be negative", p.Workers))
	}
	if p.LowpassHz <= 0 {
		errs = append(errs, fmt.Errorf("processing.lowpass_hz %.1f must be > 0", p.LowpassHz))
	}

	return errors.Join(errs...)
}
