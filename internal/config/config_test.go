package config

import (
	"strings"
	"testing"
)

func validConfig() *Config {
	cfg := &Config{
		Reload: ReloadConfig{
			Watch:   "/tmp/reloadconf-watch",
			Config:  []string{"/etc/foo/foo.conf"},
			Command: "foo -g daemon",
		},
	}
	ApplyDefaults(cfg)
	return cfg
}

func TestParseValidConfig(t *testing.T) {
	tomlData := `
[supervisor]
log_level = "debug"
log_format = "text"
poll_interval = 5
metrics_listen = "127.0.0.1:9901"

[reload]
watch = "/var/run/rc"
config = ["/etc/nginx/nginx.conf", "/etc/nginx/upstreams.conf"]
command = "nginx -g 'daemon off;'"
test_command = "nginx -t"
chown = "www-data:www-data"
chmod = "0644"
wait_for_path = "/var/run/php.sock"
wait_timeout = 10
`
	cfg, warnings, err := LoadBytes([]byte(tomlData), "test.toml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(warnings) > 0 {
		t.Errorf("unexpected warnings: %v", warnings)
	}

	if cfg.Supervisor.LogLevel != "debug" {
		t.Errorf("log_level = %q, want debug", cfg.Supervisor.LogLevel)
	}
	if cfg.Supervisor.PollInterval != 5 {
		t.Errorf("poll_interval = %d, want 5", cfg.Supervisor.PollInterval)
	}
	if cfg.Reload.Watch != "/var/run/rc" {
		t.Errorf("watch = %q", cfg.Reload.Watch)
	}
	if len(cfg.Reload.Config) != 2 {
		t.Fatalf("config entries = %d, want 2", len(cfg.Reload.Config))
	}
	if cfg.Reload.TestCommand != "nginx -t" {
		t.Errorf("test_command = %q", cfg.Reload.TestCommand)
	}
	if cfg.Reload.WaitTimeout != 10 {
		t.Errorf("wait_timeout = %d, want 10", cfg.Reload.WaitTimeout)
	}
}

func TestEmptyConfigGetsDefaults(t *testing.T) {
	cfg, _, err := LoadBytes([]byte(""), "empty.toml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Supervisor.LogLevel != "info" {
		t.Errorf("default log_level = %q, want info", cfg.Supervisor.LogLevel)
	}
	if cfg.Supervisor.PollInterval != 3 {
		t.Errorf("default poll_interval = %d, want 3", cfg.Supervisor.PollInterval)
	}
	if cfg.Supervisor.SettleInterval != 1 {
		t.Errorf("default settle_interval = %d, want 1", cfg.Supervisor.SettleInterval)
	}
	if cfg.Supervisor.SettleRetries != 30 {
		t.Errorf("default settle_retries = %d, want 30", cfg.Supervisor.SettleRetries)
	}
}

func TestUnknownKeyProducesWarning(t *testing.T) {
	tomlData := `
[reload]
watch = "/var/run/rc"
wtach_typo = true
`
	_, warnings, err := LoadBytes([]byte(tomlData), "test.toml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(warnings) != 1 {
		t.Fatalf("warnings = %v, want exactly one", warnings)
	}
	if !strings.Contains(warnings[0], "wtach_typo") {
		t.Errorf("warning = %q, want mention of wtach_typo", warnings[0])
	}
}

func TestValidateAcceptsValidConfig(t *testing.T) {
	if errs := Validate(validConfig()); len(errs) > 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
}

func TestValidateRequiresCommandWatchAndConfig(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	errs := Validate(cfg)
	if len(errs) != 3 {
		t.Fatalf("errors = %v, want 3", errs)
	}
	joined := joinErrors(errs)
	for _, want := range []string{"reload.command", "reload.watch", "reload.config"} {
		if !strings.Contains(joined, want) {
			t.Errorf("errors missing %q: %s", want, joined)
		}
	}
}

func TestValidateRejectsDuplicateBasenames(t *testing.T) {
	cfg := validConfig()
	cfg.Reload.Config = []string{"/etc/a/app.conf", "/etc/b/app.conf"}

	errs := Validate(cfg)
	if len(errs) != 1 {
		t.Fatalf("errors = %v, want 1", errs)
	}
	if !strings.Contains(errs[0].Error(), `duplicate basename "app.conf"`) {
		t.Errorf("error = %q", errs[0].Error())
	}
}

func TestValidateRejectsBadChownSpec(t *testing.T) {
	for _, spec := range []string{"a:b:c", ":group", "user:"} {
		cfg := validConfig()
		cfg.Reload.Chown = spec
		if errs := Validate(cfg); len(errs) == 0 {
			t.Errorf("chown %q: expected a validation error", spec)
		}
	}
}

func TestValidateRejectsNonOctalChmod(t *testing.T) {
	cfg := validConfig()
	cfg.Reload.Chmod = "rw-r--r--"

	errs := Validate(cfg)
	if len(errs) != 1 {
		t.Fatalf("errors = %v, want 1", errs)
	}
	if !strings.Contains(errs[0].Error(), "octal") {
		t.Errorf("error = %q", errs[0].Error())
	}
}

func TestValidateRequiresTimeoutWithGate(t *testing.T) {
	cfg := validConfig()
	cfg.Reload.WaitForPath = "/var/run/dep.sock"
	cfg.Reload.WaitTimeout = 0

	errs := Validate(cfg)
	if len(errs) != 1 {
		t.Fatalf("errors = %v, want 1", errs)
	}
	if !strings.Contains(errs[0].Error(), "wait_timeout") {
		t.Errorf("error = %q", errs[0].Error())
	}
}

func TestValidateRejectsBadSockAddr(t *testing.T) {
	cfg := validConfig()
	cfg.Reload.WaitForSock = "localhost"
	cfg.Reload.WaitTimeout = 5

	errs := Validate(cfg)
	if len(errs) != 1 {
		t.Fatalf("errors = %v, want 1", errs)
	}
	if !strings.Contains(errs[0].Error(), "host:port") {
		t.Errorf("error = %q", errs[0].Error())
	}
}

func joinErrors(errs []error) string {
	var b strings.Builder
	for _, e := range errs {
		b.WriteString(e.Error())
		b.WriteString("\n")
	}
	return b.String()
}
