package chronicle

// LinkProblem names why a prevEventId link is broken.
type LinkProblem string

const (
	MissingPrev LinkProblem = "missing_prev"
	Circular    LinkProblem = "circular"
	InvalidPrev LinkProblem = "invalid_prev"
)

// ChainNode is one event's position in the causal chain.
type ChainNode struct {
	Event    Event
	Position int
	// HasPrev is true when the event's prevEventId names an event in the file.
	HasPrev bool
	// ReferencedBy lists the ids of other events whose prevEventId is this one.
	ReferencedBy []string
}

// Chain indexes the events of one chronicle by eventId. When an id occurs
// more than once the first occurrence is indexed.
type Chain struct {
	Events []Event
	Nodes  map[string]*ChainNode
}

// Node returns the indexed node for id.
func (c *Chain) Node(id string) (*ChainNode, bool) {
	n, ok := c.Nodes[id]
	return n, ok
}

// BrokenLink is one prevEventId that does not resolve cleanly.
type BrokenLink struct {
	EventID     string      `json:"eventId"`
	PrevEventID string      `json:"prevEventId"`
	Position    int         `json:"position"`
	Reason      LinkProblem `json:"reason"`
}

// ChainReport summarizes causal-chain validation of one chronicle.
type ChainReport struct {
	Path           string       `json:"path"`
	TotalEvents    int          `json:"totalEvents"`
	ChainedEvents  int          `json:"chainedEvents"`
	BrokenLinks    []BrokenLink `json:"brokenLinks"`
	OrphanedEvents []string     `json:"orphanedEvents"`
}

// Valid reports whether no broken links were found.
func (r *ChainReport) Valid() bool { return len(r.BrokenLinks) == 0 }

// BuildChain reads the chronicle at path and indexes its prev links.
func (s *Store) BuildChain(path string) (*Chain, error) {
	events, err := s.ReadChronicle(path)
	if err != nil {
		return nil, err
	}
	return buildChain(events), nil
}

func buildChain(events []Event) *Chain {
	c := &Chain{Events: events, Nodes: make(map[string]*ChainNode, len(events))}
	for i, e := range events {
		if e.EventID == "" {
			continue
		}
		if _, dup := c.Nodes[e.EventID]; dup {
			continue
		}
		c.Nodes[e.EventID] = &ChainNode{Event: e, Position: i}
	}
	for id, n := range c.Nodes {
		if prev := n.Event.PrevEventID; prev != "" && prev != id {
			_, n.HasPrev = c.Nodes[prev]
		}
	}
	for _, e := range events {
		if e.PrevEventID == "" || e.PrevEventID == e.EventID {
			continue
		}
		if prev, ok := c.Nodes[e.PrevEventID]; ok {
			prev.ReferencedBy = append(prev.ReferencedBy, e.EventID)
		}
	}
	return c
}

// ValidateCausalChain checks every prevEventId link in the chronicle at path.
// It never modifies the file.
func (s *Store) ValidateCausalChain(path string) (*ChainReport, error) {
	c, err := s.BuildChain(path)
	if err != nil {
		return nil, err
	}
	r := c.Validate()
	r.Path = path
	return r, nil
}

// Validate flags missing, circular and temporally inverted prev links.
// Orphans are events with no clean prev link that nothing references.
func (c *Chain) Validate() *ChainReport {
	r := &ChainReport{
		TotalEvents:    len(c.Events),
		BrokenLinks:    []BrokenLink{},
		OrphanedEvents: []string{},
	}

	linked := make(map[string]bool, len(c.Events))
	for i, e := range c.Events {
		if e.PrevEventID == "" {
			continue
		}
		link := BrokenLink{EventID: e.EventID, PrevEventID: e.PrevEventID, Position: i}
		prev, found := c.Nodes[e.PrevEventID]
		switch {
		case e.PrevEventID == e.EventID:
			link.Reason = Circular
		case !found:
			link.Reason = MissingPrev
		case prev.Position > i:
			link.Reason = InvalidPrev
		default:
			r.ChainedEvents++
			linked[e.EventID] = true
			continue
		}
		r.BrokenLinks = append(r.BrokenLinks, link)
	}

	seen := make(map[string]bool, len(c.Events))
	for _, e := range c.Events {
		if e.EventID == "" || seen[e.EventID] {
			continue
		}
		seen[e.EventID] = true
		if linked[e.EventID] {
			continue
		}
		if n := c.Nodes[e.EventID]; len(n.ReferencedBy) == 0 {
			r.OrphanedEvents = append(r.OrphanedEvents, e.EventID)
		}
	}
	return r
}
