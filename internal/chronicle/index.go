package chronicle

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"
)

// indexIDs returns the set of event ids recorded in the index side-car of
// file, rebuilding the index first when it is missing or older than the log.
func (s *Store) indexIDs(file string) (map[string]struct{}, error) {
	idx := indexPathFor(file)

	logInfo, err := os.Stat(file)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]struct{}{}, nil
	}
	if err != nil {
		return nil, err
	}

	idxInfo, err := os.Stat(idx)
	if err == nil && !idxInfo.ModTime().Before(logInfo.ModTime()) {
		return loadIndex(idx)
	}
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	s.logger.Debug("rebuilding stale dedup index", "file", file)
	ids, _, err := rebuildIndex(file)
	return ids, err
}

func loadIndex(idx string) (map[string]struct{}, error) {
	data, err := os.ReadFile(idx)
	if err != nil {
		return nil, err
	}
	ids := make(map[string]struct{})
	for _, line := range strings.Split(string(data), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			ids[line] = struct{}{}
		}
	}
	return ids, nil
}

// rebuildIndex rewrites the index of file from every event id in the log,
// in file order.
func rebuildIndex(file string) (map[string]struct{}, int, error) {
	f, err := os.Open(file)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]struct{}{}, 0, nil
	}
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	ids := make(map[string]struct{})
	var out bytes.Buffer
	r := bufio.NewReader(f)
	for {
		line, err := r.ReadBytes('\n')
		if id, ok := lineEventID(bytes.TrimSpace(line)); ok {
			if _, seen := ids[id]; !seen {
				ids[id] = struct{}{}
				out.WriteString(id)
				out.WriteByte('\n')
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("read log: %w", err)
		}
	}

	if err := replaceFile(indexPathFor(file), func(w io.Writer) error {
		_, err := w.Write(out.Bytes())
		return err
	}); err != nil {
		return nil, 0, fmt.Errorf("write index: %w", err)
	}
	return ids, len(ids), nil
}

func appendIndex(file, eventID string) error {
	f, err := os.OpenFile(indexPathFor(file), os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(eventID + "\n"); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Reindex rebuilds the index side-car of the chronicle at path under the
// writer lock and returns the number of distinct ids indexed.
func (s *Store) Reindex(path string, timeout time.Duration) (int, error) {
	_, file, err := s.resolve(path)
	if err != nil {
		return 0, err
	}
	if _, err := os.Stat(file); errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	lock, err := s.locks.Acquire(file, timeout)
	if err != nil {
		return 0, err
	}
	defer lock.Release()

	_, n, err := rebuildIndex(file)
	if err != nil {
		return 0, ioError("reindex", file, err)
	}
	return n, nil
}
