package chronicle

import (
	"log/slog"
	"path/filepath"
	"time"
)

// DefaultTimeout is the lock budget for an append when the caller has no
// preference.
const DefaultTimeout = 2 * time.Second

// DefaultDedupWindow is how many trailing lines the duplicate check scans.
const DefaultDedupWindow = 100

// Options tunes a Store.
type Options struct {
	// DedupWindow is the number of trailing lines scanned for an existing
	// eventId before an append.
	DedupWindow int
	// UseIndex enables the {path}.idx side-car as a membership accelerator.
	UseIndex bool
	// LockRetry is the sleep between lock attempts.
	LockRetry time.Duration
	// StaleAfter bounds how long an unparseable lock file is trusted.
	StaleAfter time.Duration
	// Probe decides whether a lock holder is alive. Nil uses the OS.
	Probe  ProcessProbe
	Logger *slog.Logger
}

// DefaultOptions returns the options used by NewStore when none are given.
func DefaultOptions() Options {
	return Options{
		DedupWindow: DefaultDedupWindow,
		LockRetry:   DefaultLockRetry,
		StaleAfter:  DefaultStaleAfter,
	}
}

// Store reads and appends chronicle files under a root directory. It holds no
// per-file state; concurrent use from many goroutines and processes is safe.
type Store struct {
	root   string
	opts   Options
	locks  *LockManager
	logger *slog.Logger
}

// NewStore creates a Store rooted at dir.
func NewStore(dir string, opts Options) *Store {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.DedupWindow <= 0 {
		opts.DedupWindow = DefaultDedupWindow
	}
	locks := NewLockManager(logger)
	if opts.Probe != nil {
		locks.Probe = opts.Probe
	}
	if opts.LockRetry > 0 {
		locks.Retry = opts.LockRetry
	}
	if opts.StaleAfter > 0 {
		locks.StaleAfter = opts.StaleAfter
	}
	return &Store{
		root:   dir,
		opts:   opts,
		locks:  locks,
		logger: logger,
	}
}

// Root returns the directory chronicle paths are resolved against.
func (s *Store) Root() string { return s.root }

// Locks returns the store's lock manager.
func (s *Store) Locks() *LockManager { return s.locks }

// FilePath validates path and returns its location on disk.
func (s *Store) FilePath(path string) (string, error) {
	_, file, err := s.resolve(path)
	return file, err
}

func (s *Store) resolve(path string) (Path, string, error) {
	p, err := ValidatePath(path)
	if err != nil {
		return "", "", err
	}
	return p, filepath.Join(s.root, filepath.FromSlash(string(p))), nil
}
