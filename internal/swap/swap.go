// Package swap implements the backup/install/test/commit-or-rollback
// sequence for configuration batches.
package swap

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/reloadconf/reloadconf/internal/fileperm"
	"github.com/reloadconf/reloadconf/internal/process"
	"github.com/reloadconf/reloadconf/internal/watch"
)

// backupSuffix is appended to a destination path to form its backup path.
const backupSuffix = ".prev"

// Entry is one tracked destination configuration file.
type Entry struct {
	Dest string
	Base string
}

// Entries builds the tracked set from destination paths. Basenames must
// be unique; config validation enforces that precondition.
func Entries(paths []string) []Entry {
	entries := make([]Entry, 0, len(paths))
	for _, p := range paths {
		entries = append(entries, Entry{Dest: p, Base: filepath.Base(p)})
	}
	return entries
}

// Outcome is how one swap attempt resolved.
type Outcome int

const (
	Committed Outcome = iota
	RolledBack
)

func (o Outcome) String() string {
	if o == Committed {
		return "committed"
	}
	return "rolled_back"
}

// Result describes a resolved Applying phase. Stage is set for rollbacks
// and names the step that failed: "backup", "install" or "test".
type Result struct {
	Outcome Outcome
	Stage   string
	Reason  string
}

// EngineConfig configures a swap engine.
type EngineConfig struct {
	WatchDir       string
	Config         []string // destination paths
	TestCommand    string   // empty means always valid
	Lister         watch.Lister
	Runner         process.Runner
	Perms          *fileperm.Perms
	SettleInterval time.Duration
	SettleRetries  int
	Logger         *slog.Logger
}

// Engine detects candidate batches and applies them with backup and
// rollback. It never touches the supervised process; callers act on the
// returned Result.
type Engine struct {
	watchDir       string
	entries        []Entry
	byBase         map[string]Entry
	testCommand    string
	lister         watch.Lister
	runner         process.Runner
	perms          *fileperm.Perms
	settleInterval time.Duration
	settleRetries  int
	logger         *slog.Logger
}

// NewEngine creates a swap engine.
func NewEngine(cfg EngineConfig) *Engine {
	entries := Entries(cfg.Config)
	byBase := make(map[string]Entry, len(entries))
	for _, e := range entries {
		byBase[e.Base] = e
	}
	return &Engine{
		watchDir:       cfg.WatchDir,
		entries:        entries,
		byBase:         byBase,
		testCommand:    cfg.TestCommand,
		lister:         cfg.Lister,
		runner:         cfg.Runner,
		perms:          cfg.Perms,
		settleInterval: cfg.SettleInterval,
		settleRetries:  cfg.SettleRetries,
		logger:         cfg.Logger,
	}
}

// Detect gathers the candidate batch. While new tracked basenames keep
// appearing it sleeps one settle interval and re-enumerates, bounded by
// the settle budget, so a generator writing related files non-atomically
// is never caught mid-set. A name that disappears while settling is
// dropped from the batch.
func (e *Engine) Detect() ([]string, error) {
	collected := make(map[string]struct{})
	for attempt := 0; ; attempt++ {
		names, err := e.lister.List()
		if err != nil {
			return nil, err
		}

		fresh := 0
		for _, n := range names {
			if _, tracked := e.byBase[n]; !tracked {
				continue
			}
			if _, ok := collected[n]; !ok {
				collected[n] = struct{}{}
				fresh++
			}
		}

		if fresh == 0 || attempt >= e.settleRetries {
			break
		}
		time.Sleep(e.settleInterval)
	}

	var batch []string
	for n := range collected {
		if _, err := os.Stat(filepath.Join(e.watchDir, n)); err != nil {
			e.logger.Warn("candidate disappeared during settle", "name", n)
			continue
		}
		batch = append(batch, n)
	}
	sort.Strings(batch)
	return batch, nil
}

// Apply backs up the full tracked set, installs the candidates, runs the
// test command and commits or rolls back. Any failure restores every
// backup made so far; partial results are never left live.
func (e *Engine) Apply(candidates []string) Result {
	e.logger.Info("attempting to apply new configuration", "files", candidates)

	backups, err := e.backupAll()
	if err != nil {
		e.restore(backups)
		return Result{Outcome: RolledBack, Stage: "backup", Reason: err.Error()}
	}

	if err := e.install(candidates); err != nil {
		e.logger.Error("install failed, restoring", "error", err)
		e.restore(backups)
		return Result{Outcome: RolledBack, Stage: "install", Reason: err.Error()}
	}

	if err := e.runTest(false); err != nil {
		e.logger.Info("configuration bad, restoring", "error", err)
		e.restore(backups)
		return Result{Outcome: RolledBack, Stage: "test", Reason: err.Error()}
	}

	e.logger.Debug("configuration good")
	e.removeBackups(backups)
	return Result{Outcome: Committed}
}

// TestCurrent reports whether the already-installed configuration passes
// the test command. No test command counts as passing. Output is
// suppressed here; this runs on every restart-gating check.
func (e *Engine) TestCurrent() bool {
	return e.runTest(true) == nil
}

func (e *Engine) runTest(quiet bool) error {
	if e.testCommand == "" {
		return nil
	}
	return e.runner.Run(e.testCommand, quiet)
}

// backupAll copies every tracked destination, not only the candidates,
// so a rollback restores a fully consistent configuration. A missing
// destination is skipped; any other failure aborts the swap.
func (e *Engine) backupAll() ([]string, error) {
	var backups []string
	for _, ent := range e.entries {
		dst := ent.Dest + backupSuffix
		if err := copyFile(ent.Dest, dst); err != nil {
			if os.IsNotExist(err) {
				e.logger.Warn("file missing, skipping backup", "path", ent.Dest)
				continue
			}
			return backups, fmt.Errorf("backup %s: %w", ent.Dest, err)
		}
		e.logger.Debug("backed up", "src", ent.Dest, "dst", dst)
		backups = append(backups, dst)
	}
	return backups, nil
}

// install moves each staged candidate over its destination and applies
// the resolved ownership and mode.
func (e *Engine) install(candidates []string) error {
	for _, name := range candidates {
		ent, ok := e.byBase[name]
		if !ok {
			return fmt.Errorf("no destination for %q", name)
		}
		src := filepath.Join(e.watchDir, name)

		if err := os.MkdirAll(filepath.Dir(ent.Dest), 0o755); err != nil {
			return fmt.Errorf("create parent of %s: %w", ent.Dest, err)
		}

		e.logger.Debug("overwriting", "dst", ent.Dest, "src", src)
		if err := moveFile(src, ent.Dest); err != nil {
			return fmt.Errorf("install %s: %w", ent.Dest, err)
		}

		if err := e.perms.Apply(ent.Dest); err != nil {
			return err
		}
	}
	return nil
}

// restore moves each backup back over its destination. Failures are
// logged and the remaining backups are still restored.
func (e *Engine) restore(backups []string) {
	for _, b := range backups {
		dest := b[:len(b)-len(backupSuffix)]
		e.logger.Debug("restoring", "dst", dest, "src", b)
		if err := moveFile(b, dest); err != nil {
			e.logger.Error("could not restore backup", "path", b, "error", err)
		}
	}
}

func (e *Engine) removeBackups(backups []string) {
	for _, b := range backups {
		if err := os.Remove(b); err != nil && !os.IsNotExist(err) {
			e.logger.Warn("could not remove backup", "path", b, "error", err)
			continue
		}
		e.logger.Debug("removed backup", "path", b)
	}
}
