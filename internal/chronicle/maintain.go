package chronicle

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"os"
	"time"
)

// Mismatch is a persisted event whose stored eventId differs from the id
// recomputed from its content.
type Mismatch struct {
	Position   int    `json:"position"`
	Type       string `json:"type"`
	StoredID   string `json:"storedId"`
	ComputedID string `json:"computedId"`
}

// Verify recomputes the id of every event in the chronicle at path and
// returns the events whose stored id does not match.
func (s *Store) Verify(path string) ([]Mismatch, error) {
	events, err := s.ReadChronicle(path)
	if err != nil {
		return nil, err
	}
	var out []Mismatch
	for i, e := range events {
		computed, err := ComputeEventID(e)
		if err != nil {
			return nil, validationError("verify", path, "event %d: %v", i, err)
		}
		if computed != e.EventID {
			out = append(out, Mismatch{Position: i, Type: e.Type, StoredID: e.EventID, ComputedID: computed})
		}
	}
	return out, nil
}

// Compact removes exact consecutive duplicate records from the chronicle at
// path under the writer lock and returns how many lines were dropped. It is
// an out-of-band maintenance pass, never run by appends.
func (s *Store) Compact(path string, timeout time.Duration) (int, error) {
	p, file, err := s.resolve(path)
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

	f, err := os.Open(file)
	if err != nil {
		return 0, ioError("compact", string(p), err)
	}
	var kept [][]byte
	var prevKey []byte
	removed := 0
	r := bufio.NewReader(f)
	for {
		line, rerr := r.ReadBytes('\n')
		if trimmed := bytes.TrimSpace(line); len(trimmed) > 0 {
			key := recordKey(trimmed)
			if prevKey != nil && bytes.Equal(key, prevKey) {
				removed++
			} else {
				kept = append(kept, trimmed)
				prevKey = key
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			f.Close()
			return 0, ioError("compact", string(p), rerr)
		}
	}
	f.Close()

	if removed == 0 {
		return 0, nil
	}

	if err := replaceFile(file, func(w io.Writer) error {
		bw := bufio.NewWriter(w)
		for _, line := range kept {
			bw.Write(line)
			bw.WriteByte('\n')
		}
		return bw.Flush()
	}); err != nil {
		return 0, ioError("compact", string(p), err)
	}

	if _, err := os.Stat(indexPathFor(file)); err == nil || s.opts.UseIndex {
		if _, _, err := rebuildIndex(file); err != nil {
			s.logger.Warn("rebuild dedup index after compaction", "path", p, "err", err)
		}
	}
	s.logger.Info("compacted chronicle", "path", p, "removed", removed)
	return removed, nil
}

// recordKey is the comparison form of one line: the canonical form of the
// event when it parses, the raw bytes otherwise.
func recordKey(line []byte) []byte {
	var e Event
	if err := json.Unmarshal(line, &e); err != nil {
		return line
	}
	c, err := Canonicalize(e)
	if err != nil {
		return line
	}
	return c
}
