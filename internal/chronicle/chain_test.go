package chronicle

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// appendLinked appends e with prev as its prevEventId and returns its id.
func appendLinked(t *testing.T, s *Store, path string, e Event, prev string) string {
	t.Helper()
	e.PrevEventID = prev
	require.NoError(t, s.AppendEvent(path, e, DefaultTimeout))
	id, err := ComputeEventID(e)
	require.NoError(t, err)
	return id
}

func TestValidateCausalChainMissingPrev(t *testing.T) {
	s := newTestStore(t, Options{})
	a := appendLinked(t, s, "chain.sage", planDrafted("a", fixedTime), "")
	b := appendLinked(t, s, "chain.sage", planDrafted("b", fixedTime.Add(time.Minute)), a)
	unknown := "0000000000000000000000000000000000000000000000000000000000000000"
	c := appendLinked(t, s, "chain.sage", planDrafted("c", fixedTime.Add(2*time.Minute)), unknown)

	r, err := s.ValidateCausalChain("chain.sage")
	require.NoError(t, err)

	assert.Equal(t, 3, r.TotalEvents)
	assert.Equal(t, 1, r.ChainedEvents)
	require.Len(t, r.BrokenLinks, 1)
	assert.Equal(t, BrokenLink{EventID: c, PrevEventID: unknown, Position: 2, Reason: MissingPrev}, r.BrokenLinks[0])
	assert.Equal(t, []string{c}, r.OrphanedEvents)
	assert.False(t, r.Valid())

	chain, err := s.BuildChain("chain.sage")
	require.NoError(t, err)
	nodeA, ok := chain.Node(a)
	require.True(t, ok)
	assert.False(t, nodeA.HasPrev)
	assert.Equal(t, []string{b}, nodeA.ReferencedBy)
	nodeB, _ := chain.Node(b)
	assert.True(t, nodeB.HasPrev)
	nodeC, _ := chain.Node(c)
	assert.False(t, nodeC.HasPrev)
}

func TestValidateCausalChainCircularAndInverted(t *testing.T) {
	s := newTestStore(t, Options{})

	// Ids are trusted here so that links can point at themselves and forward.
	write := func(id, prev string) {
		e := planDrafted(id, fixedTime)
		e.EventID = id
		e.PrevEventID = prev
		require.NoError(t, s.AppendEventWithID("chain.sage", e, DefaultTimeout))
	}
	write("e1", "e2") // e2 appears later: temporal inversion
	write("e2", "")
	write("e3", "e3") // self reference
	write("e4", "e2")

	r, err := s.ValidateCausalChain("chain.sage")
	require.NoError(t, err)

	assert.Equal(t, 4, r.TotalEvents)
	assert.Equal(t, 1, r.ChainedEvents)
	require.Len(t, r.BrokenLinks, 2)
	assert.Equal(t, InvalidPrev, r.BrokenLinks[0].Reason)
	assert.Equal(t, "e1", r.BrokenLinks[0].EventID)
	assert.Equal(t, Circular, r.BrokenLinks[1].Reason)
	assert.Equal(t, "e3", r.BrokenLinks[1].EventID)
	assert.ElementsMatch(t, []string{"e1", "e3"}, r.OrphanedEvents)
}

func TestValidateCausalChainEmpty(t *testing.T) {
	s := newTestStore(t, Options{})
	r, err := s.ValidateCausalChain("none.sage")
	require.NoError(t, err)
	assert.Equal(t, 0, r.TotalEvents)
	assert.True(t, r.Valid())

	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, `{"path":"none.sage","totalEvents":0,"chainedEvents":0,"brokenLinks":[],"orphanedEvents":[]}`, string(data))
}

func TestValidateCausalChainDoesNotMutate(t *testing.T) {
	s := newTestStore(t, Options{})
	a := appendLinked(t, s, "chain.sage", planDrafted("a", fixedTime), "")
	appendLinked(t, s, "chain.sage", planDrafted("b", fixedTime), a)

	file := filepath.Join(s.Root(), "chain.sage")
	before, err := os.ReadFile(file)
	require.NoError(t, err)

	_, err = s.ValidateCausalChain("chain.sage")
	require.NoError(t, err)

	after, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}
