// Package config provides the configuration schema and loader for the
// autotune service.
package config

import "time"

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// LogFormat selects the slog handler.
type LogFormat string

const (
	LogFormatText LogFormat = "text"
	LogFormatJSON LogFormat = "json"
)

// IsValid reports whether f is a recognised log format.
func (f LogFormat) IsValid() bool {
	return f == LogFormatText || f == LogFormatJSON
}

// Config is the root configuration structure.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Storage    StorageConfig    `yaml:"storage"`
	Processing ProcessingConfig `yaml:"processing"`
}

// ServerConfig holds HTTP listener and logging settings.
type ServerConfig struct {
	// ListenAddr is the TCP address of the HTTP server, e.g. ":5000".
	ListenAddr string `yaml:"listen_addr"`

	LogLevel  LogLevel  `yaml:"log_level"`
	LogFormat LogFormat `yaml:"log_format"`

	// AllowedOrigins lists CORS origins; "*" allows any.
	AllowedOrigins []string `yaml:"allowed_origins"`

	// MaxUploadMB caps the request body of uploads.
	MaxUploadMB int64 `yaml:"max_upload_mb"`

	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// StorageConfig locates uploads, results and the job database.
type StorageConfig struct {
	DataDir string `yaml:"data_dir"`
	DBPath  string `yaml:"db_path"`
}

// ProcessingConfig holds pipeline defaults.
type ProcessingConfig struct {
	DefaultStrength float64 `yaml:"default_strength"`
	MinStrength     float64 `yaml:"min_strength"`
	MaxStrength     float64 `yaml:"max_strength"`
	DefaultScale    string  `yaml:"default_scale"`
	DefaultRoot     string  `yaml:"default_root"`

	FrameLength int    `yaml:"frame_length"`
	HopLength   int    `yaml:"hop_length"`
	Detector    string `yaml:"detector"`

	MinFreq float64 `yaml:"min_freq"`
	MaxFreq float64 `yaml:"max_freq"`

	// MinConfidence ignores weaker pitch estimates. Zero corrects every
	// voiced frame.
	MinConfidence float64 `yaml:"min_confidence"`

	SampleRate int `yaml:"sample_rate"`
	BitDepth   int `yaml:"bit_depth"`
	// Dither enables TPDF dither with noise shaping when encoding.
	Dither bool `yaml:"dither"`

	// Workers bounds per-job parallelism; 0 uses GOMAXPROCS.
	Workers int `yaml:"workers"`

	LowpassHz float64 `yaml:"lowpass_hz"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddr:      ":5000",
			LogLevel:        LogInfo,
			LogFormat:       LogFormatText,
			AllowedOrigins:  []string{"*"},
			MaxUploadMB:     100,
			RequestTimeout:  5 * time.Minute,
			ShutdownTimeout: 15 * time.Second,
		},
		Storage: StorageConfig{
			DataDir: "data",
			DBPath:  "data/jobs.sqlite3",
		},
		Processing: ProcessingConfig{
			DefaultStrength: 0.8,
			MinStrength:     0.1,
			MaxStrength:     1.0,
			DefaultScale:    "major",
			DefaultRoot:     "C",
			FrameLength:     2048,
			HopLength:       512,
			Detector:        "autocorr",
			MinFreq:         80,
			MaxFreq:         800,
			SampleRate:      44100,
			BitDepth:        24,
			Dither:          true,
			LowpassHz:       8000,
		},
	}
}
