package chronicle

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func appendN(t *testing.T, s *Store, path string, n int) []Event {
	t.Helper()
	var out []Event
	for i := range n {
		e := planDrafted(fmt.Sprintf("plan-%02d", i), fixedTime.Add(time.Duration(i)*time.Minute))
		require.NoError(t, s.AppendEvent(path, e, DefaultTimeout))
		id, err := ComputeEventID(e)
		require.NoError(t, err)
		e.EventID = id
		out = append(out, e)
	}
	return out
}

func TestReadMissingFile(t *testing.T) {
	s := newTestStore(t, Options{})
	events, err := s.ReadChronicle("nope.sage")
	require.NoError(t, err)
	assert.Empty(t, events)

	events, err = s.TailChronicle("nope.sage", 10)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestReadSkipsCorruptLines(t *testing.T) {
	s := newTestStore(t, Options{})
	want := appendN(t, s, "activity.sage", 3)

	file := filepath.Join(s.Root(), "activity.sage")
	data, err := os.ReadFile(file)
	require.NoError(t, err)
	lines := strings.SplitAfter(string(data), "\n")
	corrupted := lines[0] + "{not json\n" + "\n" + lines[1] + `{"type": 42}` + "\n" + lines[2]
	require.NoError(t, os.WriteFile(file, []byte(corrupted), 0o644))

	got, err := s.ReadChronicle("activity.sage")
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i := range want {
		assert.Equal(t, want[i].EventID, got[i].EventID)
	}
}

func TestTail(t *testing.T) {
	s := newTestStore(t, Options{})
	all := appendN(t, s, "activity.sage", 12)

	got, err := s.TailChronicle("activity.sage", DefaultTailCount)
	require.NoError(t, err)
	require.Len(t, got, 10)
	assert.Equal(t, all[2].EventID, got[0].EventID)
	assert.Equal(t, all[11].EventID, got[9].EventID)

	got, err = s.TailChronicle("activity.sage", 50)
	require.NoError(t, err)
	assert.Len(t, got, 12)

	got, err = s.TailChronicle("activity.sage", 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestTailNegative(t *testing.T) {
	s := newTestStore(t, Options{})
	_, err := s.TailChronicle("activity.sage", -1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))
	assert.Contains(t, err.Error(), "Tail count must be non-negative")
}

func TestTailSkipsCorruptTrailingLines(t *testing.T) {
	s := newTestStore(t, Options{})
	all := appendN(t, s, "activity.sage", 4)

	file := filepath.Join(s.Root(), "activity.sage")
	f, err := os.OpenFile(file, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("garbage\n{\"half\":\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	got, err := s.TailChronicle("activity.sage", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, all[2].EventID, got[0].EventID)
	assert.Equal(t, all[3].EventID, got[1].EventID)
}

func TestReadTailLinesAcrossBlocks(t *testing.T) {
	file := filepath.Join(t.TempDir(), "big.sage")
	var b strings.Builder
	long := strings.Repeat("x", tailBlockSize/3)
	for i := range 10 {
		fmt.Fprintf(&b, "%d-%s\n", i, long)
	}
	require.NoError(t, os.WriteFile(file, []byte(b.String()), 0o644))

	f, err := os.Open(file)
	require.NoError(t, err)
	defer f.Close()

	lines, atStart, err := readTailLines(f, 4)
	require.NoError(t, err)
	assert.False(t, atStart)
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(string(lines[0]), "6-"))
	assert.True(t, strings.HasPrefix(string(lines[3]), "9-"))

	lines, atStart, err = readTailLines(f, 100)
	require.NoError(t, err)
	assert.True(t, atStart)
	assert.Len(t, lines, 10)
}

func TestReadFromOffset(t *testing.T) {
	s := newTestStore(t, Options{})
	all := appendN(t, s, "activity.sage", 2)

	got, off, err := s.ReadFrom("activity.sage", 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, all[1].EventID, got[1].EventID)

	e := fileAdded("src/b.ts", "h2", 3)
	require.NoError(t, s.AppendEvent("activity.sage", e, DefaultTimeout))

	got, next, err := s.ReadFrom("activity.sage", off)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, FileAdded, got[0].Type)
	assert.Greater(t, next, off)

	got, again, err := s.ReadFrom("activity.sage", next)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, next, again)
}

func TestReadFromLeavesFragment(t *testing.T) {
	s := newTestStore(t, Options{})
	appendN(t, s, "activity.sage", 1)
	file := filepath.Join(s.Root(), "activity.sage")

	f, err := os.OpenFile(file, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString(`{"type":"PLAN`)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	info, err := os.Stat(file)
	require.NoError(t, err)

	got, off, err := s.ReadFrom("activity.sage", 0)
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Less(t, off, info.Size())

	got, shrunk, err := s.ReadFrom("activity.sage", info.Size()+100)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, info.Size(), shrunk)
}

func TestReadTailLinesSkipsBlankRunsAcrossBlocks(t *testing.T) {
	file := filepath.Join(t.TempDir(), "gappy.sage")
	content := "first\nsecond\n" + strings.Repeat("\n", tailBlockSize+1024) + "third\n"
	require.NoError(t, os.WriteFile(file, []byte(content), 0o644))

	f, err := os.Open(file)
	require.NoError(t, err)
	defer f.Close()

	lines, atStart, err := readTailLines(f, 2)
	require.NoError(t, err)
	assert.True(t, atStart)
	require.Len(t, lines, 2)
	assert.Equal(t, "second", string(lines[0]))
	assert.Equal(t, "third", string(lines[1]))
}

func TestDedupWindowCountsOnlyRecords(t *testing.T) {
	s := newTestStore(t, Options{DedupWindow: 2})
	first := fileAdded("a.ts", "h", 1)
	require.NoError(t, s.AppendEvent("gappy.sage", first, DefaultTimeout))

	file := filepath.Join(s.Root(), "gappy.sage")
	f, err := os.OpenFile(file, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString(strings.Repeat("\n", tailBlockSize+1024))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	require.NoError(t, s.AppendEvent("gappy.sage", fileAdded("b.ts", "h", 2), DefaultTimeout))
	require.NoError(t, s.AppendEvent("gappy.sage", first, DefaultTimeout))

	events, err := s.ReadChronicle("gappy.sage")
	require.NoError(t, err)
	assert.Len(t, events, 2, "the first event is within the last two records")
}
