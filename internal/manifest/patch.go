package manifest

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"
)

// ReleaseSection is the section header that holds the release build profile.
const ReleaseSection = "[profile.release]"

// ReleaseProfile lists the settings injected into ReleaseSection. Order is the
// insertion order for missing keys.
var ReleaseProfile = []Setting{
	{Key: "opt-level", Value: "'z'"},
	{Key: "lto", Value: "true"},
	{Key: "codegen-units", Value: "1"},
	{Key: "panic", Value: "'abort'"},
	{Key: "strip", Value: "true"},
}

var (
	// ErrNotFound is returned by Open when the manifest does not exist.
	ErrNotFound = errors.New("manifest not found")
	// ErrIO is returned when the manifest cannot be read or written.
	ErrIO = errors.New("manifest i/o failure")
	// ErrRestored is returned when a restored scope is patched again.
	ErrRestored = errors.New("manifest scope already restored")
)

// Setting is a single key = value line required in a section.
type Setting struct {
	Key   string
	Value string
}

func (s Setting) String() string {
	return s.Key + " = " + s.Value
}

// Scope owns a manifest file between Open and Restore. The original content is
// captured once at Open and is the only source used by Restore.
type Scope struct {
	path     string
	perm     fs.FileMode
	original string

	// owner is nil when the platform does not report file ownership.
	owner *syscall.Stat_t

	lines       []string
	eol         string
	trailingEOL bool
	restored    bool
}

// Open reads the manifest at path and captures its content for restoration.
func Open(path string) (*Scope, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s: %w", ErrNotFound, path, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}

	s := &Scope{
		path:     path,
		perm:     info.Mode().Perm(),
		original: string(data),
	}
	if st, ok := info.Sys().(*syscall.Stat_t); ok {
		s.owner = st
	}
	s.lines, s.eol, s.trailingEOL = splitLines(s.original)
	return s, nil
}

// Path returns the manifest path.
func (s *Scope) Path() string { return s.path }

// Original returns the content captured at Open.
func (s *Scope) Original() string { return s.original }

// Content returns the current, possibly patched, document.
func (s *Scope) Content() string {
	return joinLines(s.lines, s.eol, s.trailingEOL)
}

// EnsureSection makes sure header exists and contains every key in settings,
// then persists the document. Keys already present in the section are left
// untouched; missing ones are appended to the end of the section in the order
// given. Calling it again with the same arguments changes nothing.
func (s *Scope) EnsureSection(header string, settings []Setting) error {
	if s.restored {
		return ErrRestored
	}

	start := findHeader(s.lines, header)
	if start < 0 {
		s.lines = append(s.lines, header)
		start = len(s.lines) - 1
	}

	existing := sectionKeys(s.lines, start)
	for _, setting := range settings {
		if _, ok := existing[setting.Key]; ok {
			continue
		}
		// The boundary moves with every insert, so it is looked up each time.
		at := sectionEnd(s.lines, start)
		s.lines = insertLine(s.lines, at, setting.String())
		existing[setting.Key] = struct{}{}
	}

	return s.write(s.Content())
}

// Restore writes the content captured at Open back to the manifest. On failure
// the scope stays open so Restore can be retried.
func (s *Scope) Restore() error {
	if s.restored {
		return nil
	}
	if err := s.write(s.original); err != nil {
		return err
	}
	s.restored = true
	s.lines, s.eol, s.trailingEOL = splitLines(s.original)
	return nil
}

// Restored reports whether Restore has completed.
func (s *Scope) Restored() bool { return s.restored }

// write replaces the manifest through a temporary file in the same directory so
// an interrupted write never leaves a truncated manifest behind.
func (s *Scope) write(content string) error {
	dir, base := filepath.Split(s.path)
	if dir == "" {
		dir = "."
	}
	tmp, err := os.CreateTemp(dir, "."+base+".*")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: write %s: %w", ErrIO, s.path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: sync %s: %w", ErrIO, s.path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}
	if err := os.Chmod(tmpName, s.perm); err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}
	// Only root can give a file away; other users keep their own ownership.
	if s.owner != nil {
		err := os.Chown(tmpName, int(s.owner.Uid), int(s.owner.Gid))
		if err != nil && !errors.Is(err, fs.ErrPermission) {
			return fmt.Errorf("%w: %w", ErrIO, err)
		}
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}
	return nil
}

// Patch opens the manifest at path, ensures header holds settings, and runs fn.
// The original content is restored on every exit path once the file has been
// opened, and fn's error is reported after the restore has happened.
func Patch(path, header string, settings []Setting, fn func(*Scope) error) (err error) {
	scope, err := Open(path)
	if err != nil {
		return err
	}
	defer func() {
		if rerr := scope.Restore(); rerr != nil {
			err = errors.Join(err, fmt.Errorf("cannot restore %s: %w", path, rerr))
		}
	}()

	if err := scope.EnsureSection(header, settings); err != nil {
		return err
	}
	return fn(scope)
}
