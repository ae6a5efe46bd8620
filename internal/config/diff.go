package config

import "slices"

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-reloaded are tracked; changes to the
// listen address, TLS, CORS, storage or telemetry need a restart.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	AlignmentChanged bool
	NewAlignment     AlignmentConfig

	// RestartRequired lists sections whose changes were ignored.
	RestartRequired []string
}

// Empty reports whether d carries no applicable change.
func (d ConfigDiff) Empty() bool {
	return !d.LogLevelChanged && !d.AlignmentChanged
}

// Diff compares old and new configs and returns what changed.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	if !alignmentEqual(old.Alignment, new.Alignment) {
		d.AlignmentChanged = true
		d.NewAlignment = new.Alignment
	}

	if old.Server.ListenAddr != new.Server.ListenAddr ||
		old.Server.ReadTimeout != new.Server.ReadTimeout ||
		old.Server.WriteTimeout != new.Server.WriteTimeout ||
		!tlsEqual(old.Server.TLS, new.Server.TLS) ||
		!slices.Equal(old.Server.CORS.AllowedOrigins, new.Server.CORS.AllowedOrigins) {
		d.RestartRequired = append(d.RestartRequired, "server")
	}
	if old.Storage != new.Storage {
		d.RestartRequired = append(d.RestartRequired, "storage")
	}
	if old.Telemetry != new.Telemetry {
		d.RestartRequired = append(d.RestartRequired, "telemetry")
	}

	return d
}

func alignmentEqual(a, b AlignmentConfig) bool {
	return a.MaxReferenceWords == b.MaxReferenceWords &&
		a.MaxHypothesisSymbols == b.MaxHypothesisSymbols &&
		a.BatchConcurrency == b.BatchConcurrency &&
		a.Timeout == b.Timeout &&
		slices.Equal(a.StripSymbols, b.StripSymbols)
}

func tlsEqual(a, b *TLSConfig) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
