package chronicle

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"os"
)

const tailBlockSize = 64 << 10

// IsDuplicate reports whether eventID appears among the last DedupWindow
// lines of the chronicle at path, or in its index when enabled.
//
// The window is a bounded heuristic: an event re-appended after more than
// DedupWindow newer lines is not detected unless the index is enabled.
func (s *Store) IsDuplicate(path, eventID string) (bool, error) {
	_, file, err := s.resolve(path)
	if err != nil {
		return false, err
	}
	return s.isDuplicate(file, eventID)
}

func (s *Store) isDuplicate(file, eventID string) (bool, error) {
	if s.opts.UseIndex {
		ids, err := s.indexIDs(file)
		if err != nil {
			s.logger.Warn("dedup index unavailable, scanning tail", "file", file, "err", err)
		} else if _, ok := ids[eventID]; ok {
			return true, nil
		}
	}
	return tailContainsID(file, eventID, s.opts.DedupWindow)
}

func tailContainsID(file, eventID string, window int) (bool, error) {
	f, err := os.Open(file)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, ioError("dedup scan", file, err)
	}
	defer f.Close()

	lines, _, err := readTailLines(f, window)
	if err != nil {
		return false, ioError("dedup scan", file, err)
	}

	needle := []byte(eventID)
	for _, line := range lines {
		if !bytes.Contains(line, needle) {
			continue
		}
		if id, ok := lineEventID(line); ok && id == eventID {
			return true, nil
		}
	}
	return false, nil
}

// lineEventID extracts the eventId of one serialized event.
func lineEventID(line []byte) (string, bool) {
	var probe struct {
		EventID string `json:"eventId"`
	}
	if err := json.Unmarshal(line, &probe); err != nil || probe.EventID == "" {
		return "", false
	}
	return probe.EventID, true
}

// readTailLines returns up to n non-empty lines from the end of f in file
// order, reading backwards in blocks. atStart reports whether the whole file
// was consumed.
func readTailLines(f *os.File, n int) (lines [][]byte, atStart bool, err error) {
	st, err := f.Stat()
	if err != nil {
		return nil, false, err
	}
	size := st.Size()
	if n <= 0 || size == 0 {
		return nil, size == 0, nil
	}

	var buf []byte
	off := size
	for off > 0 {
		chunk := min(int64(tailBlockSize), off)
		off -= chunk
		block := make([]byte, chunk)
		if _, err := f.ReadAt(block, off); err != nil && err != io.EOF {
			return nil, false, err
		}
		buf = append(block, buf...)

		if off > 0 && completeLines(buf) >= n {
			break
		}
	}

	all := bytes.Split(bytes.TrimRight(buf, "\n"), []byte{'\n'})
	if off > 0 {
		all = all[1:]
	}
	for _, line := range all {
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		lines = append(lines, line)
	}
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines, off == 0, nil
}

// completeLines counts the non-blank lines of buf after its first newline.
// With bytes still unread, the text before that newline may be partial.
func completeLines(buf []byte) int {
	_, rest, ok := bytes.Cut(buf, []byte{'\n'})
	if !ok {
		return 0
	}
	n := 0
	for line := range bytes.SplitSeq(rest, []byte{'\n'}) {
		if len(bytes.TrimSpace(line)) > 0 {
			n++
		}
	}
	return n
}
