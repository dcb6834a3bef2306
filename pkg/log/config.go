package log

import (
	"fmt"
	"strings"
)

// Config declares how ApplyConfig builds a logger.
type Config struct {
	// Level is debug|info|warn|error. Empty means info.
	Level string `json:"level" yaml:"level"`
	// Format is text|json. Empty means text.
	Format string `json:"format" yaml:"format"`
	// Outputs defaults to a single console output.
	Outputs []OutputConfig `json:"outputs" yaml:"outputs"`
	// Redact lists field keys whose values are replaced by [REDACTED].
	Redact []string `json:"redact" yaml:"redact"`
	// Sample, when set, rate limits repeated messages.
	Sample *SampleConfig `json:"sample" yaml:"sample"`
	// Caller adds the file:line of the call site.
	Caller bool `json:"caller" yaml:"caller"`
}

// OutputConfig selects an output. Type is console|file|null.
type OutputConfig struct {
	Type string `json:"type" yaml:"type"`
	Path string `json:"path" yaml:"path"`
}

// SampleConfig mirrors the sampler: first Initial entries per message pass,
// then one in Thereafter.
type SampleConfig struct {
	Initial    int `json:"initial" yaml:"initial"`
	Thereafter int `json:"thereafter" yaml:"thereafter"`
}

// ApplyConfig builds a Logger from cfg.
func ApplyConfig(cfg *Config) (Logger, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	opts := []LoggerOption{WithLevel(level)}

	switch strings.ToLower(cfg.Format) {
	case "", "text":
		opts = append(opts, WithFormatter(&TextFormatter{ShowCaller: cfg.Caller}))
	case "json":
		opts = append(opts, WithFormatter(&JSONFormatter{ShowCaller: cfg.Caller}))
	default:
		return nil, fmt.Errorf("log: unknown format %q", cfg.Format)
	}

	for _, oc := range cfg.Outputs {
		switch strings.ToLower(oc.Type) {
		case "", "console":
			opts = append(opts, WithOutput(NewConsoleOutput()))
		case "file":
			if oc.Path == "" {
				return nil, fmt.Errorf("log: file output requires a path")
			}
			fo, err := NewFileOutput(oc.Path)
			if err != nil {
				return nil, err
			}
			opts = append(opts, WithOutput(fo))
		case "null":
			opts = append(opts, WithOutput(NullOutput{}))
		default:
			return nil, fmt.Errorf("log: unknown output type %q", oc.Type)
		}
	}

	if len(cfg.Redact) > 0 || cfg.Sample != nil {
		redact, sample := cfg.Redact, cfg.Sample
		opts = append(opts, withHandler(func(h *bridgeHandler) *bridgeHandler {
			h = h.withRedactions(redact)
			if sample != nil {
				h = h.withSampler(sample.Initial, sample.Thereafter)
			}
			return h
		}))
	}
	return NewLogger(opts...), nil
}
