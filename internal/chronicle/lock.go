package chronicle

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// ProcessProbe reports whether a process recorded in a lock file still exists.
type ProcessProbe interface {
	Alive(pid int) bool
}

// ProbeFunc adapts a function to ProcessProbe.
type ProbeFunc func(pid int) bool

func (f ProbeFunc) Alive(pid int) bool { return f(pid) }

// Default lock timings.
const (
	DefaultLockRetry  = 25 * time.Millisecond
	DefaultStaleAfter = 30 * time.Second
)

// immediate retries allowed when the lock disappears or is reclaimed between
// our create attempt and our read.
const maxFastRetries = 8

// LockManager serializes writers to a chronicle file across processes using
// a side-car lock file created with O_EXCL.
type LockManager struct {
	Probe ProcessProbe
	// Retry is the sleep between acquisition attempts.
	Retry time.Duration
	// StaleAfter bounds how long an unreadable lock file is trusted.
	StaleAfter time.Duration
	Logger     *slog.Logger
}

// NewLockManager returns a LockManager using the platform process probe.
func NewLockManager(logger *slog.Logger) *LockManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &LockManager{
		Probe:      osProbe{},
		Retry:      DefaultLockRetry,
		StaleAfter: DefaultStaleAfter,
		Logger:     logger,
	}
}

// LockInfo is the parsed content of a lock file.
type LockInfo struct {
	PID      int
	Acquired time.Time
}

// Lock is a held writer lock. Release it exactly once; extra calls are no-ops.
type Lock struct {
	path    string
	content []byte
	logger  *slog.Logger
	done    bool
}

// Path returns the lock file path.
func (l *Lock) Path() string { return l.path }

// Release removes the lock file if it is still ours. Failures are logged and
// never returned: a leftover lock is reclaimed by the staleness check.
func (l *Lock) Release() {
	if l == nil || l.done {
		return
	}
	l.done = true

	current, err := os.ReadFile(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		l.logger.Warn("lock already gone at release", "lock", l.path)
		return
	}
	if err != nil {
		l.logger.Warn("read lock at release", "lock", l.path, "err", err)
		return
	}
	if !bytes.Equal(current, l.content) {
		l.logger.Warn("lock taken over before release", "lock", l.path)
		return
	}
	if err := os.Remove(l.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		l.logger.Warn("release lock", "lock", l.path, "err", err)
	}
}

// Acquire takes the writer lock for file, waiting up to timeout. A timeout of
// zero makes a single attempt plus any reclaim of a stale lock.
func (m *LockManager) Acquire(file string, timeout time.Duration) (*Lock, error) {
	lockPath := lockPathFor(file)
	deadline := time.Now().Add(timeout)
	fast := 0
	holder := 0

	for {
		lock, err := m.tryCreate(lockPath)
		if err == nil {
			return lock, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, ioError("acquire lock", lockPath, err)
		}

		observed, info, readErr := readLock(lockPath)
		switch {
		case errors.Is(readErr, fs.ErrNotExist):
			// Released between our create and our read.
			if fast < maxFastRetries {
				fast++
				continue
			}
		case m.stale(lockPath, info, readErr):
			if m.reclaim(lockPath, observed) && fast < maxFastRetries {
				fast++
				continue
			}
		default:
			holder = info.PID
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, &Error{
				Kind:    KindLockTimeout,
				Op:      "acquire lock",
				Path:    file,
				Timeout: timeout,
				Holder:  holder,
			}
		}
		time.Sleep(min(m.retry(), remaining))
	}
}

// CleanStaleLocks removes the lock for file if its holder is provably dead.
// It reports whether a lock was removed.
func (m *LockManager) CleanStaleLocks(file string) (bool, error) {
	lockPath := lockPathFor(file)
	observed, info, err := readLock(lockPath)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil && !errors.Is(err, errMalformedLock) {
		return false, ioError("clean stale locks", lockPath, err)
	}
	if !m.stale(lockPath, info, err) {
		return false, nil
	}
	return m.reclaim(lockPath, observed), nil
}

// Holder returns the current lock holder for file. ok is false when no lock
// file exists.
func (m *LockManager) Holder(file string) (info LockInfo, ok bool, err error) {
	_, info, err = readLock(lockPathFor(file))
	if errors.Is(err, fs.ErrNotExist) {
		return LockInfo{}, false, nil
	}
	if err != nil && !errors.Is(err, errMalformedLock) {
		return LockInfo{}, false, ioError("read lock", lockPathFor(file), err)
	}
	return info, true, nil
}

// HolderAlive reports whether pid is considered alive by the manager's probe.
func (m *LockManager) HolderAlive(pid int) bool {
	return pid > 0 && m.probe().Alive(pid)
}

func (m *LockManager) tryCreate(lockPath string) (*Lock, error) {
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}

	content := []byte(fmt.Sprintf("%d\n%s\n", os.Getpid(), time.Now().UTC().Format(time.RFC3339Nano)))
	_, werr := f.Write(content)
	cerr := f.Close()
	if werr != nil || cerr != nil {
		_ = os.Remove(lockPath)
		return nil, fmt.Errorf("write lock file: %w", errors.Join(werr, cerr))
	}

	return &Lock{path: lockPath, content: content, logger: m.logger()}, nil
}

func (m *LockManager) stale(lockPath string, info LockInfo, readErr error) bool {
	if readErr == nil {
		return !m.HolderAlive(info.PID)
	}
	if !errors.Is(readErr, errMalformedLock) {
		return false
	}
	// The holder may still be writing its pid; only distrust old files.
	st, err := os.Stat(lockPath)
	if err != nil {
		return false
	}
	return time.Since(st.ModTime()) > m.staleAfter()
}

// reclaim removes the stale lock whose content was observed. Reclaimers are
// serialized by a second O_EXCL file, and under it the lock is removed only if
// it still holds the observed content. Nothing but a reclaimer removes a dead
// holder's lock, so the content cannot change between that check and the
// removal.
func (m *LockManager) reclaim(lockPath string, observed []byte) bool {
	guard := reclaimPathFor(lockPath)
	g, err := os.OpenFile(guard, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			m.clearAbandonedGuard(guard)
		}
		return false
	}
	_ = g.Close()
	defer func() {
		if err := os.Remove(guard); err != nil && !errors.Is(err, fs.ErrNotExist) {
			m.logger().Warn("remove reclaim guard", "guard", guard, "err", err)
		}
	}()

	current, err := os.ReadFile(lockPath)
	if err != nil || !bytes.Equal(current, observed) {
		return false
	}
	if err := os.Remove(lockPath); err != nil {
		return false
	}

	m.logger().Warn("reclaimed stale lock", "lock", lockPath, "holder", strings.SplitN(string(observed), "\n", 2)[0])
	return true
}

// clearAbandonedGuard removes a reclaim guard left by a reclaimer that died
// while holding it. A live reclaimer holds the guard for a few syscalls.
func (m *LockManager) clearAbandonedGuard(guard string) {
	st, err := os.Stat(guard)
	if err != nil || time.Since(st.ModTime()) <= m.staleAfter() {
		return
	}
	if err := os.Remove(guard); err == nil {
		m.logger().Warn("removed abandoned reclaim guard", "guard", guard)
	}
}

func (m *LockManager) probe() ProcessProbe {
	if m.Probe == nil {
		return osProbe{}
	}
	return m.Probe
}

func (m *LockManager) retry() time.Duration {
	if m.Retry <= 0 {
		return DefaultLockRetry
	}
	return m.Retry
}

func (m *LockManager) staleAfter() time.Duration {
	if m.StaleAfter <= 0 {
		return DefaultStaleAfter
	}
	return m.StaleAfter
}

func (m *LockManager) logger() *slog.Logger {
	if m.Logger == nil {
		return slog.Default()
	}
	return m.Logger
}

var errMalformedLock = errors.New("malformed lock file")

// readLock returns the raw lock content and its parsed form. Content that is
// present but unparseable yields errMalformedLock.
func readLock(lockPath string) ([]byte, LockInfo, error) {
	data, err := os.ReadFile(lockPath)
	if err != nil {
		return nil, LockInfo{}, err
	}
	info, err := parseLock(data)
	return data, info, err
}

func parseLock(data []byte) (LockInfo, error) {
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) < 2 {
		return LockInfo{}, errMalformedLock
	}
	pid, err := strconv.Atoi(strings.TrimSpace(lines[0]))
	if err != nil || pid <= 0 {
		return LockInfo{}, errMalformedLock
	}
	ts, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(lines[1]))
	if err != nil {
		return LockInfo{}, errMalformedLock
	}
	return LockInfo{PID: pid, Acquired: ts}, nil
}
