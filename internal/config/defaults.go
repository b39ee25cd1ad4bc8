package config

// ApplyDefaults fills in zero-value fields with their default values.
func ApplyDefaults(cfg *Config) {
	if cfg.Supervisor.LogLevel == "" {
		cfg.Supervisor.LogLevel = "info"
	}
	// LogFormat stays empty by default: the CLI picks text for a
	// terminal and json otherwise.
	if cfg.Supervisor.PollInterval == 0 {
		cfg.Supervisor.PollInterval = 3
	}
	if cfg.Supervisor.SettleInterval == 0 {
		cfg.Supervisor.SettleInterval = 1
	}
	if cfg.Supervisor.SettleRetries == 0 {
		cfg.Supervisor.SettleRetries = 30
	}
}
