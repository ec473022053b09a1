package chronicle

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"
)

// AppendEvent validates e, computes its eventId (replacing any supplied one)
// and appends it to the chronicle at path. Appending an event whose id is
// already present is a successful no-op.
func (s *Store) AppendEvent(path string, e Event, timeout time.Duration) error {
	p, file, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := ValidateEvent(e); err != nil {
		return err
	}
	id, err := ComputeEventID(e)
	if err != nil {
		return validationError("compute event id", string(p), "%v", err)
	}
	e.EventID = id
	return s.atomicAppend(p, file, e, timeout)
}

// AppendEventWithID appends e trusting its caller-supplied eventId.
func (s *Store) AppendEventWithID(path string, e Event, timeout time.Duration) error {
	p, file, err := s.resolve(path)
	if err != nil {
		return err
	}
	if strings.TrimSpace(e.EventID) == "" {
		return validationError("validate event", string(p), "missing required field %q", fieldEventID)
	}
	if err := ValidateEvent(e); err != nil {
		return err
	}
	return s.atomicAppend(p, file, e, timeout)
}

// atomicAppend writes e as one line using copy-append-fsync-rename under the
// writer lock, so readers only ever see the old or the new file.
func (s *Store) atomicAppend(p Path, file string, e Event, timeout time.Duration) error {
	line, err := json.Marshal(e)
	if err != nil {
		return validationError("encode event", string(p), "%v", err)
	}

	if _, err := s.locks.CleanStaleLocks(file); err != nil {
		s.logger.Warn("clean stale locks", "path", p, "err", err)
	}
	// The lock file lives beside the log, so the directory must exist first.
	if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
		return ioError("create chronicle dir", string(p), err)
	}

	lock, err := s.locks.Acquire(file, timeout)
	if err != nil {
		return err
	}
	defer lock.Release()

	dup, err := s.isDuplicate(file, e.EventID)
	if err != nil {
		return err
	}
	if dup {
		s.logger.Debug("skip duplicate event", "path", p, "event_id", e.EventID)
		return nil
	}

	if err := appendLine(file, line); err != nil {
		return ioError("append", string(p), err)
	}

	if s.opts.UseIndex {
		if err := appendIndex(file, e.EventID); err != nil {
			s.logger.Warn("update dedup index", "path", p, "err", err)
		}
	}
	return nil
}

// appendLine replaces file with its current content plus line.
func appendLine(file string, line []byte) error {
	return replaceFile(file, func(w io.Writer) error {
		src, err := os.Open(file)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("open chronicle: %w", err)
		}
		tw := &trackingWriter{w: w}
		if src != nil {
			_, err := io.Copy(tw, src)
			src.Close()
			if err != nil {
				return fmt.Errorf("copy chronicle: %w", err)
			}
		}
		// Never glue the new record onto an unterminated last line.
		if tw.n > 0 && tw.last != '\n' {
			if _, err := tw.Write([]byte{'\n'}); err != nil {
				return fmt.Errorf("write separator: %w", err)
			}
		}
		if _, err := tw.Write(append(line, '\n')); err != nil {
			return fmt.Errorf("write event: %w", err)
		}
		return nil
	})
}

// renameFile is swapped in tests to fail the final step of replaceFile.
var renameFile = os.Rename

// replaceFile writes a new version of path through fill into a private
// temporary file in the same directory, fsyncs it and renames it over path.
// The temporary file is removed on any failure.
func replaceFile(path string, fill func(w io.Writer) error) error {
	dir := filepath.Dir(path)
	mode := os.FileMode(0o644)
	if st, err := os.Stat(path); err == nil {
		mode = st.Mode().Perm()
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if err := fill(tmp); err != nil {
		return err
	}
	if err := tmp.Chmod(mode); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("fsync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := renameFile(tmpPath, path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	cleanup = false

	return syncDir(dir)
}

// syncDir makes the rename durable. Platforms that cannot fsync a directory
// are tolerated.
func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return nil
	}
	defer d.Close()
	if err := d.Sync(); err != nil && !errors.Is(err, syscall.EINVAL) {
		return fmt.Errorf("fsync dir: %w", err)
	}
	return nil
}

type trackingWriter struct {
	w    io.Writer
	n    int64
	last byte
}

func (t *trackingWriter) Write(p []byte) (int, error) {
	n, err := t.w.Write(p)
	if n > 0 {
		t.n += int64(n)
		t.last = p[n-1]
	}
	return n, err
}
