package main

import (
	"context"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/reloadconf/reloadconf/internal/config"
	"github.com/reloadconf/reloadconf/internal/logging"
	"github.com/reloadconf/reloadconf/internal/supervisor"
	"github.com/reloadconf/reloadconf/internal/version"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

type runFlags struct {
	configFile string

	watch         string
	configs       []string
	command       string
	reloadCommand string
	testCommand   string
	chown         string
	chmod         string
	waitForPath   string
	waitForSock   string
	waitTimeout   int

	pollInterval   int
	settleInterval int
	useNotify      bool
	metricsListen  string
	pidFile        string
	logLevel       string
	logFormat      string
}

var flags runFlags

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the reloadconf daemon",
	RunE:  runDaemon,
}

func init() {
	f := runCmd.Flags()

	f.StringVar(&flags.configFile, "config-file", "", "TOML configuration file (flags override its values)")

	f.StringVar(&flags.watch, "watch", "", "directory to watch for incoming config files")
	f.StringSliceVar(&flags.configs, "config", nil, "destination config file path (repeatable)")
	f.StringVar(&flags.command, "command", "", "command to run when configuration is valid")
	f.StringVar(&flags.reloadCommand, "reload-command", "", "command to run instead of sending HUP")
	f.StringVar(&flags.testCommand, "test-command", "", "command that validates the configuration")
	f.StringVar(&flags.chown, "chown", "", "ownership applied to installed files (user or user:group)")
	f.StringVar(&flags.chmod, "chmod", "", "octal mode applied to installed files")
	f.StringVar(&flags.waitForPath, "wait-for-path", "", "block startup until this path exists")
	f.StringVar(&flags.waitForSock, "wait-for-sock", "", "block startup until this host:port accepts connections")
	f.IntVar(&flags.waitTimeout, "wait-timeout", 0, "readiness gate timeout in seconds")

	f.IntVar(&flags.pollInterval, "poll-interval", 0, "seconds between poll cycles")
	f.IntVar(&flags.settleInterval, "settle-interval", 0, "seconds between settle re-scans")
	f.BoolVar(&flags.useNotify, "use-notify", false, "use filesystem notifications instead of directory polling")
	f.StringVar(&flags.metricsListen, "metrics-listen", "", "host:port to serve Prometheus metrics on")
	f.StringVar(&flags.pidFile, "pid-file", "", "write the daemon PID to this file")
	f.StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn, error")
	f.StringVar(&flags.logFormat, "log-format", "", "log format: json or text (default: text on a terminal)")

	rootCmd.AddCommand(runCmd)
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg := &config.Config{}
	var warnings []string

	if flags.configFile != "" {
		loaded, w, err := config.Load(flags.configFile)
		if err != nil {
			return err
		}
		cfg, warnings = loaded, w
	} else {
		config.ApplyDefaults(cfg)
	}

	applyOverrides(cmd, cfg)

	logger := logging.New(logging.LogConfig{
		Level:  cfg.Supervisor.LogLevel,
		Format: resolveLogFormat(cfg.Supervisor.LogFormat),
	})
	for _, w := range warnings {
		logger.Warn("config warning", "warning", w)
	}

	d, err := supervisor.New(cfg, logger)
	if err != nil {
		return err
	}
	d.Metrics().SetBuildInfo(version.Version, runtime.Version())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return d.Run(ctx)
}

// applyOverrides copies every flag the user set onto the config, after
// the file (if any) has been loaded.
func applyOverrides(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()

	if f.Changed("watch") {
		cfg.Reload.Watch = flags.watch
	}
	if f.Changed("config") {
		cfg.Reload.Config = flags.configs
	}
	if f.Changed("command") {
		cfg.Reload.Command = flags.command
	}
	if f.Changed("reload-command") {
		cfg.Reload.ReloadCommand = flags.reloadCommand
	}
	if f.Changed("test-command") {
		cfg.Reload.TestCommand = flags.testCommand
	}
	if f.Changed("chown") {
		cfg.Reload.Chown = flags.chown
	}
	if f.Changed("chmod") {
		cfg.Reload.Chmod = flags.chmod
	}
	if f.Changed("wait-for-path") {
		cfg.Reload.WaitForPath = flags.waitForPath
	}
	if f.Changed("wait-for-sock") {
		cfg.Reload.WaitForSock = flags.waitForSock
	}
	if f.Changed("wait-timeout") {
		cfg.Reload.WaitTimeout = flags.waitTimeout
	}
	if f.Changed("poll-interval") {
		cfg.Supervisor.PollInterval = flags.pollInterval
	}
	if f.Changed("settle-interval") {
		cfg.Supervisor.SettleInterval = flags.settleInterval
	}
	if f.Changed("use-notify") {
		cfg.Supervisor.UseNotify = flags.useNotify
	}
	if f.Changed("metrics-listen") {
		cfg.Supervisor.MetricsListen = flags.metricsListen
	}
	if f.Changed("pid-file") {
		cfg.Supervisor.PIDFile = flags.pidFile
	}
	if f.Changed("log-level") {
		cfg.Supervisor.LogLevel = flags.logLevel
	}
	if f.Changed("log-format") {
		cfg.Supervisor.LogFormat = flags.logFormat
	}
}

func resolveLogFormat(format string) string {
	if format != "" {
		return format
	}
	if term.IsTerminal(int(os.Stderr.Fd())) {
		return "text"
	}
	return "json"
}
