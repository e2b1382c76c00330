// Package config holds the process-level knobs (models directory, control
// plane listen address, capture device) and the per-filter-instance
// settings dictionary.
package config

import (
	"flag"
	"path/filepath"
	"runtime"
)

// Config is the process entry point's configuration, sourced from flags.
type Config struct {
	ModelsDir     string
	DataDir       string
	GRPCAddr      string
	CaptureDevice string
}

// Load parses process flags and fills in the default GRPC address for the
// current platform (unix socket vs. Windows named pipe).
func Load() *Config {
	modelsDir := flag.String("models", "data/models", "Directory for downloaded ASR models")
	dataDir := flag.String("data", "data/diagnostics", "Directory for diagnostic recordings")
	grpcAddr := flag.String("grpc", "", `Control plane listen address (unix:/path or npipe:\\.\pipe\name)`)
	captureDevice := flag.String("capture-device", "", "Capture device ID (empty = system default)")
	flag.Parse()

	addr := *grpcAddr
	if addr == "" {
		if runtime.GOOS == "windows" {
			addr = `npipe:\\.\pipe\cleanstream`
		} else {
			addr = "unix:/tmp/cleanstream.sock"
		}
	}

	return &Config{
		ModelsDir:     filepath.Clean(*modelsDir),
		DataDir:       filepath.Clean(*dataDir),
		GRPCAddr:      addr,
		CaptureDevice: *captureDevice,
	}
}

// Settings is the per-filter-instance settings dictionary. JSON tags
// match the configuration surface table's keys verbatim so the control
// plane can pass these structs straight through update() calls.
type Settings struct {
	DoSilence   bool   `json:"do_silence"`
	VADEnabled  bool   `json:"vad_enabled"`
	LogLevel    int    `json:"log_level"`
	LogWords    bool   `json:"log_words"`
	DetectRegex string `json:"detect_regex"`
	BeepRegex   string `json:"beep_regex"`
	ModelPath   string `json:"whisper_model_path"`
	Language    string `json:"whisper_language_select"`

	// ASR numeric knobs, forwarded to the inference call.
	Threads        int     `json:"threads"`
	Temperature    float32 `json:"temperature"`
	MaxTokens      int     `json:"max_tokens"`
	NoSpeechThold  float32 `json:"no_speech_thold"`
	InitialPrompt  string  `json:"initial_prompt"`
	GreedySampling bool    `json:"greedy_sampling"`
}

// Log level constants mirror the documented DEBUG default.
const (
	LogLevelError = 0
	LogLevelWarn  = 1
	LogLevelInfo  = 2
	LogLevelDebug = 3
)

// DefaultDetectRegex is the default filler-word pattern.
const DefaultDetectRegex = `\b(uh+)|(um+)|(ah+)\b`

// DefaultBeepRegex is a minimal default profanity pattern. The real
// production list is a collaborator's responsibility; this is a
// conservative stand-in the control plane is expected to override.
const DefaultBeepRegex = `\b(damn|hell|crap)\b`

// Defaults returns the settings dictionary's documented defaults,
// mirroring cleanstream_defaults() in the original plugin.
func Defaults() Settings {
	return Settings{
		DoSilence:      true,
		VADEnabled:     true,
		LogLevel:       LogLevelDebug,
		LogWords:       true,
		DetectRegex:    DefaultDetectRegex,
		BeepRegex:      DefaultBeepRegex,
		ModelPath:      "tiny-en",
		Language:       "en",
		Threads:        4,
		Temperature:    0.0,
		MaxTokens:      32,
		NoSpeechThold:  0.6,
		GreedySampling: true,
	}
}
