package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// EnvPostgresDSN overrides storage.postgres_dsn when set.
const EnvPostgresDSN = "PHONEXA_POSTGRES_DSN"

// Load reads the YAML configuration file at path and returns a validated
// [Config] with defaults and environment overrides applied.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}

	cfg, err := LoadFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults and
// environment overrides, and validates the result. An empty document yields
// the default configuration.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	cfg.ApplyDefaults()
	ApplyEnv(cfg, os.LookupEnv)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv applies environment overrides using lookup (usually
// [os.LookupEnv]).
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) {
	if dsn, ok := lookup(EnvPostgresDSN); ok && dsn != "" {
		cfg.Storage.PostgresDSN = dsn
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if tls := cfg.Server.TLS; tls != nil && (tls.CertFile == "" || tls.KeyFile == "") {
		errs = append(errs, errors.New("server.tls requires both cert_file and key_file"))
	}
	if cfg.Server.ReadTimeout < 0 {
		errs = append(errs, fmt.Errorf("server.read_timeout %v must not be negative", cfg.Server.ReadTimeout))
	}
	if cfg.Server.WriteTimeout < 0 {
		errs = append(errs, fmt.Errorf("server.write_timeout %v must not be negative", cfg.Server.WriteTimeout))
	}
	for i, origin := range cfg.Server.CORS.AllowedOrigins {
		if origin == "" {
			errs = append(errs, fmt.Errorf("server.cors.allowed_origins[%d] is empty", i))
		}
		if origin == "*" {
			slog.Warn("server.cors.allowed_origins contains \"*\"; any website may call the API")
		}
	}

	errs = append(errs, validateAlignment(cfg.Alignment)...)

	// Storage
	if cfg.Storage.HistoryLimit < 0 {
		errs = append(errs, fmt.Errorf("storage.history_limit %d must not be negative", cfg.Storage.HistoryLimit))
	}

	// Telemetry
	if p := cfg.Telemetry.MetricsPath; p != "" && !strings.HasPrefix(p, "/") {
		errs = append(errs, fmt.Errorf("telemetry.metrics_path %q must start with /", p))
	}

	return errors.Join(errs...)
}

func validateAlignment(a AlignmentConfig) []error {
	var errs []error
	if a.MaxReferenceWords < 0 {
		errs = append(errs, fmt.Errorf("alignment.max_reference_words %d must not be negative", a.MaxReferenceWords))
	}
	if a.MaxHypothesisSymbols < 0 {
		errs = append(errs, fmt.Errorf("alignment.max_hypothesis_symbols %d must not be negative", a.MaxHypothesisSymbols))
	}
	if a.MaxHypothesisSymbols > 4096 {
		slog.Warn("alignment.max_hypothesis_symbols is very large; long inputs may take seconds to align",
			"max_hypothesis_symbols", a.MaxHypothesisSymbols)
	}
	if a.BatchConcurrency < 0 {
		errs = append(errs, fmt.Errorf("alignment.batch_concurrency %d must not be negative", a.BatchConcurrency))
	}
	if a.Timeout < 0 {
		errs = append(errs, fmt.Errorf("alignment.timeout %v must not be negative", a.Timeout))
	}
	for i, sym := range a.StripSymbols {
		if sym == "" || strings.TrimSpace(sym) == "" {
			errs = append(errs, fmt.Errorf("alignment.strip_symbols[%d] must not be empty or whitespace", i))
		} else if !utf8.ValidString(sym) {
			errs = append(errs, fmt.Errorf("alignment.strip_symbols[%d] is not valid UTF-8", i))
		}
	}
	return errs
}
