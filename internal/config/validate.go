package config

import (
	"fmt"
	"net"
	"path/filepath"
	"strconv"
	"strings"
)

// Validate checks the config for semantic errors and returns all of them.
// A non-empty result means the daemon must not be constructed.
func Validate(cfg *Config) []error {
	var errs []error

	r := &cfg.Reload

	if strings.TrimSpace(r.Command) == "" {
		errs = append(errs, fmt.Errorf("reload.command is required"))
	}
	if strings.TrimSpace(r.Watch) == "" {
		errs = append(errs, fmt.Errorf("reload.watch is required"))
	}
	if len(r.Config) == 0 {
		errs = append(errs, fmt.Errorf("reload.config needs at least one destination file"))
	}

	// Destinations are matched by basename, so basenames must be unique.
	seen := make(map[string]string)
	for _, p := range r.Config {
		if strings.TrimSpace(p) == "" {
			errs = append(errs, fmt.Errorf("reload.config contains an empty path"))
			continue
		}
		base := filepath.Base(p)
		if prev, ok := seen[base]; ok {
			errs = append(errs, fmt.Errorf("reload.config: duplicate basename %q (%s and %s)", base, prev, p))
			continue
		}
		seen[base] = p
	}

	if r.Chown != "" {
		parts := strings.Split(r.Chown, ":")
		if len(parts) > 2 {
			errs = append(errs, fmt.Errorf("reload.chown must be user or user:group, got %q", r.Chown))
		}
		for _, part := range parts {
			if strings.TrimSpace(part) == "" {
				errs = append(errs, fmt.Errorf("reload.chown has an empty field: %q", r.Chown))
				break
			}
		}
	}

	if r.Chmod != "" {
		if _, err := strconv.ParseUint(r.Chmod, 8, 32); err != nil {
			errs = append(errs, fmt.Errorf("reload.chmod must be an octal mode, got %q", r.Chmod))
		}
	}

	if r.WaitForSock != "" {
		if _, _, err := net.SplitHostPort(r.WaitForSock); err != nil {
			errs = append(errs, fmt.Errorf("reload.wait_for_sock must be host:port, got %q", r.WaitForSock))
		}
	}
	if (r.WaitForPath != "" || r.WaitForSock != "") && r.WaitTimeout <= 0 {
		errs = append(errs, fmt.Errorf("reload.wait_timeout must be positive when a readiness gate is configured"))
	}

	s := &cfg.Supervisor
	if s.PollInterval < 1 {
		errs = append(errs, fmt.Errorf("supervisor.poll_interval must be >= 1, got %d", s.PollInterval))
	}
	if s.SettleInterval < 1 {
		errs = append(errs, fmt.Errorf("supervisor.settle_interval must be >= 1, got %d", s.SettleInterval))
	}
	if s.SettleRetries < 1 {
		errs = append(errs, fmt.Errorf("supervisor.settle_retries must be >= 1, got %d", s.SettleRetries))
	}
	if s.MetricsListen != "" {
		if _, _, err := net.SplitHostPort(s.MetricsListen); err != nil {
			errs = append(errs, fmt.Errorf("supervisor.metrics_listen must be host:port, got %q", s.MetricsListen))
		}
	}

	return errs
}
