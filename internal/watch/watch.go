// Package watch enumerates candidate configuration files appearing in
// the watch directory.
package watch

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/fsnotify/fsnotify"
)

// Lister returns the basenames currently available in the watch
// directory. The swap engine depends only on this capability; whether it
// is backed by directory polling or an OS event stream is an
// implementation detail.
type Lister interface {
	List() ([]string, error)
}

// PollLister enumerates by reading the directory.
type PollLister struct {
	Dir string
}

// List returns the basenames of regular entries in the directory.
func (l PollLister) List() ([]string, error) {
	entries, err := os.ReadDir(l.Dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}

// NotifyLister reports basenames seen in filesystem events since the
// previous List call, backed by fsnotify.
type NotifyLister struct {
	watcher *fsnotify.Watcher
	dir     string
}

// NewNotifyLister starts watching the given directory.
func NewNotifyLister(dir string) (*NotifyLister, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, err
	}
	return &NotifyLister{watcher: w, dir: dir}, nil
}

// List drains pending events without blocking and returns the affected
// basenames.
func (l *NotifyLister) List() ([]string, error) {
	seen := make(map[string]struct{})
	for {
		select {
		case ev, ok := <-l.watcher.Events:
			if !ok {
				return sorted(seen), nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 {
				seen[filepath.Base(ev.Name)] = struct{}{}
			}
		case err, ok := <-l.watcher.Errors:
			if ok && err != nil {
				return sorted(seen), err
			}
		default:
			return sorted(seen), nil
		}
	}
}

// Close releases the OS watch.
func (l *NotifyLister) Close() error {
	return l.watcher.Close()
}

func sorted(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	names := make([]string, 0, len(set))
	for n := range set {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
