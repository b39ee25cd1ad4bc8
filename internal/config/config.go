// Package config handles loading and validating reloadconf configuration.
package config

// Config is the top-level reloadconf configuration.
type Config struct {
	Supervisor SupervisorConfig `toml:"supervisor"`
	Reload     ReloadConfig     `toml:"reload"`
}

// SupervisorConfig holds daemon-level settings.
type SupervisorConfig struct {
	LogLevel       string `toml:"log_level"`
	LogFormat      string `toml:"log_format"`
	PollInterval   int    `toml:"poll_interval"`   // seconds between poll cycles
	SettleInterval int    `toml:"settle_interval"` // seconds between settle re-scans
	SettleRetries  int    `toml:"settle_retries"`  // settle budget before acting anyway
	MetricsListen  string `toml:"metrics_listen"`  // host:port for /metrics, empty = disabled
	PIDFile        string `toml:"pid_file"`
	UseNotify      bool   `toml:"use_notify"` // fsnotify instead of directory polling
}

// ReloadConfig describes the supervised command and its configuration set.
type ReloadConfig struct {
	Watch         string   `toml:"watch"`          // directory watched for inbound config files
	Config        []string `toml:"config"`         // destination config file paths
	Command       string   `toml:"command"`        // the supervised command line
	ReloadCommand string   `toml:"reload_command"` // optional; SIGHUP when empty
	TestCommand   string   `toml:"test_command"`   // optional; absent means always valid
	Chown         string   `toml:"chown"`          // "user" or "user:group", names or ids
	Chmod         string   `toml:"chmod"`          // octal mode, e.g. "0644"
	WaitForPath   string   `toml:"wait_for_path"`  // startup gate: path must exist
	WaitForSock   string   `toml:"wait_for_sock"`  // startup gate: host:port must accept
	WaitTimeout   int      `toml:"wait_timeout"`   // seconds; required when a gate is set
}
