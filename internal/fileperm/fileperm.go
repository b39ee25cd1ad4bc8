// Package fileperm resolves ownership and mode specifications applied to
// installed configuration files and the watch directory.
package fileperm

import (
	"fmt"
	"os"
	"os/user"
	"strconv"
	"strings"
)

// GroupUnchanged is the gid value meaning "leave the group as is".
// It matches the -1 sentinel accepted by os.Chown.
const GroupUnchanged = -1

// NameResolver maps user and group names to numeric ids. The production
// implementation is OSResolver; tests inject a fake.
type NameResolver interface {
	LookupUser(name string) (int, error)
	LookupGroup(name string) (int, error)
}

// OSResolver resolves names against the host account databases.
type OSResolver struct{}

// LookupUser returns the uid for a user name.
func (OSResolver) LookupUser(name string) (int, error) {
	u, err := user.Lookup(name)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(u.Uid)
}

// LookupGroup returns the gid for a group name.
func (OSResolver) LookupGroup(name string) (int, error) {
	g, err := user.LookupGroup(name)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(g.Gid)
}

// Owner is a resolved chown target.
type Owner struct {
	UID int
	GID int // GroupUnchanged when the group should not change
}

// Perms bundles the resolved ownership and mode for installed files.
// A nil *Perms or an all-empty spec means nothing is applied.
type Perms struct {
	Owner   *Owner
	Mode    os.FileMode
	HasMode bool
}

// Resolve turns chown/chmod specifications into concrete values. It runs
// once at daemon construction, never per swap; a failure here is fatal.
func Resolve(chown, chmod string, r NameResolver) (*Perms, error) {
	owner, err := ResolveOwner(chown, r)
	if err != nil {
		return nil, err
	}
	mode, hasMode, err := ResolveMode(chmod)
	if err != nil {
		return nil, err
	}
	return &Perms{Owner: owner, Mode: mode, HasMode: hasMode}, nil
}

// ResolveOwner parses a "user" or "user:group" specification. Either part
// may be a name or a numeric id. An absent group resolves to GroupUnchanged.
func ResolveOwner(spec string, r NameResolver) (*Owner, error) {
	if spec == "" {
		return nil, nil
	}

	parts := strings.Split(spec, ":")
	if len(parts) > 2 {
		return nil, fmt.Errorf("chown spec %q: want user or user:group", spec)
	}

	uid, err := resolveID(parts[0], r.LookupUser)
	if err != nil {
		return nil, fmt.Errorf("chown spec %q: %w", spec, err)
	}

	gid := GroupUnchanged
	if len(parts) == 2 {
		gid, err = resolveID(parts[1], r.LookupGroup)
		if err != nil {
			return nil, fmt.Errorf("chown spec %q: %w", spec, err)
		}
	}

	return &Owner{UID: uid, GID: gid}, nil
}

func resolveID(s string, lookup func(string) (int, error)) (int, error) {
	if strings.TrimSpace(s) == "" {
		return 0, fmt.Errorf("empty name")
	}
	if id, err := strconv.Atoi(s); err == nil {
		return id, nil
	}
	id, err := lookup(s)
	if err != nil {
		return 0, fmt.Errorf("cannot resolve %q: %w", s, err)
	}
	return id, nil
}

// ResolveMode parses an octal mode specification. The second return value
// reports whether a mode was given at all.
func ResolveMode(spec string) (os.FileMode, bool, error) {
	if spec == "" {
		return 0, false, nil
	}
	v, err := strconv.ParseUint(spec, 8, 32)
	if err != nil {
		return 0, false, fmt.Errorf("chmod spec %q: not an octal mode", spec)
	}
	return os.FileMode(v), true, nil
}

// Apply chowns and chmods the given path with the resolved values.
// A nil receiver is a no-op.
func (p *Perms) Apply(path string) error {
	if p == nil {
		return nil
	}
	if p.Owner != nil {
		if err := os.Chown(path, p.Owner.UID, p.Owner.GID); err != nil {
			return fmt.Errorf("chown %s: %w", path, err)
		}
	}
	if p.HasMode {
		if err := os.Chmod(path, p.Mode); err != nil {
			return fmt.Errorf("chmod %s: %w", path, err)
		}
	}
	return nil
}
