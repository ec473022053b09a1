package chronicle

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"os"
)

// DefaultTailCount is the number of events TailChronicle callers get when
// they have no preference.
const DefaultTailCount = 10

// ReadChronicle returns every parseable event in file order. Lines that fail
// to parse are logged and skipped. A missing file yields no events.
func (s *Store) ReadChronicle(path string) ([]Event, error) {
	p, file, err := s.resolve(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(file)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, ioError("read", string(p), err)
	}
	defer f.Close()

	var events []Event
	r := bufio.NewReader(f)
	for lineNo := 1; ; lineNo++ {
		line, rerr := r.ReadBytes('\n')
		if e, ok := s.parseLine(p, lineNo, line); ok {
			events = append(events, e)
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return nil, ioError("read", string(p), rerr)
		}
	}
	return events, nil
}

// TailChronicle returns the last n parseable events of the chronicle at
// path, or all of them when it holds fewer than n.
func (s *Store) TailChronicle(path string, n int) ([]Event, error) {
	if n < 0 {
		return nil, validationError("tail", path, "Tail count must be non-negative")
	}
	p, file, err := s.resolve(path)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return []Event{}, nil
	}

	f, err := os.Open(file)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, ioError("tail", string(p), err)
	}
	defer f.Close()

	// Corrupt lines do not count, so widen the window until n events parse
	// or the whole file has been read.
	for window := n; ; window *= 2 {
		lines, atStart, err := readTailLines(f, window)
		if err != nil {
			return nil, ioError("tail", string(p), err)
		}
		events := make([]Event, 0, len(lines))
		for _, line := range lines {
			if e, ok := s.parseLine(p, 0, line); ok {
				events = append(events, e)
			}
		}
		if len(events) >= n || atStart {
			if len(events) > n {
				events = events[len(events)-n:]
			}
			return events, nil
		}
	}
}

func (s *Store) parseLine(p Path, lineNo int, line []byte) (Event, bool) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return Event{}, false
	}
	var e Event
	if err := json.Unmarshal(line, &e); err != nil {
		if lineNo > 0 {
			s.logger.Warn("skip unreadable chronicle line", "path", p, "line", lineNo, "err", err)
		} else {
			s.logger.Warn("skip unreadable chronicle line", "path", p, "err", err)
		}
		return Event{}, false
	}
	return e, true
}

// ReadFrom returns the parseable events in complete lines starting at byte
// offset, and the offset just past the last complete line. A missing file
// yields no events and offset 0. When the file is shorter than offset it has
// been rewritten; ReadFrom then reports the current size so callers resume at
// the new end.
func (s *Store) ReadFrom(path string, offset int64) ([]Event, int64, error) {
	p, file, err := s.resolve(path)
	if err != nil {
		return nil, offset, err
	}

	f, err := os.Open(file)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, offset, ioError("read", string(p), err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, offset, ioError("read", string(p), err)
	}
	if info.Size() < offset {
		s.logger.Warn("chronicle shrank, resuming at end", "path", p, "offset", offset, "size", info.Size())
		return nil, info.Size(), nil
	}
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return nil, offset, ioError("read", string(p), err)
	}

	var events []Event
	r := bufio.NewReader(f)
	for {
		line, rerr := r.ReadBytes('\n')
		if rerr == io.EOF {
			// A trailing fragment is left for the next call.
			return events, offset, nil
		}
		if rerr != nil {
			return events, offset, ioError("read", string(p), rerr)
		}
		offset += int64(len(line))
		if e, ok := s.parseLine(p, 0, line); ok {
			events = append(events, e)
		}
	}
}
