package chronicle

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
)

// Actor identifies the agent process that emitted an event.
type Actor struct {
	Agent string `json:"agent" yaml:"agent"`
	ID    string `json:"id" yaml:"id"`
}

// Event is one immutable chronicle record. The base fields are shared by
// every kind; kind-specific fields live in Fields and are flattened into the
// top-level JSON object on disk.
type Event struct {
	Type        string
	EventID     string
	Timestamp   string
	Actor       Actor
	PlanHash    string
	GraphCommit string
	PrevEventID string
	Tags        []string
	Fields      map[string]any
}

// JSON names of the base fields.
const (
	fieldType        = "type"
	fieldEventID     = "eventId"
	fieldTimestamp   = "timestamp"
	fieldActor       = "actor"
	fieldPlanHash    = "planHash"
	fieldGraphCommit = "graphCommit"
	fieldPrevEventID = "prevEventId"
	fieldTags        = "tags"
)

func isBaseField(name string) bool {
	switch name {
	case fieldType, fieldEventID, fieldTimestamp, fieldActor,
		fieldPlanHash, fieldGraphCommit, fieldPrevEventID, fieldTags:
		return true
	}
	return false
}

// Field returns a field by its JSON name, covering both base and
// kind-specific fields.
func (e Event) Field(name string) (any, bool) {
	m := e.toMap()
	v, ok := m[name]
	return v, ok
}

// SetField sets a kind-specific field. Base field names are rejected.
func (e *Event) SetField(name string, v any) error {
	if isBaseField(name) {
		return fmt.Errorf("set field %q: base field", name)
	}
	if e.Fields == nil {
		e.Fields = make(map[string]any)
	}
	e.Fields[name] = v
	return nil
}

// withoutID returns a copy of e with EventID cleared.
func (e Event) withoutID() Event {
	e.EventID = ""
	return e
}

// toMap flattens the event into its on-disk object shape. Base fields win
// over same-named entries in Fields.
func (e Event) toMap() map[string]any {
	m := make(map[string]any, len(e.Fields)+8)
	maps.Copy(m, e.Fields)
	m[fieldType] = e.Type
	m[fieldTimestamp] = e.Timestamp
	m[fieldActor] = map[string]any{"agent": e.Actor.Agent, "id": e.Actor.ID}
	setOptional(m, fieldEventID, e.EventID)
	setOptional(m, fieldPlanHash, e.PlanHash)
	setOptional(m, fieldGraphCommit, e.GraphCommit)
	setOptional(m, fieldPrevEventID, e.PrevEventID)
	if len(e.Tags) > 0 {
		tags := make([]any, len(e.Tags))
		for i, t := range e.Tags {
			tags[i] = t
		}
		m[fieldTags] = tags
	} else {
		delete(m, fieldTags)
	}
	return m
}

func setOptional(m map[string]any, key, v string) {
	if v == "" {
		delete(m, key)
		return
	}
	m[key] = v
}

// MarshalJSON writes the flattened object form.
func (e Event) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.toMap())
}

// UnmarshalJSON reads the flattened object form. Numbers in kind-specific
// fields are kept as json.Number so that re-hashing a stored event is exact.
func (e *Event) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	if raw == nil {
		return fmt.Errorf("event is not an object")
	}
	return e.fromMap(raw)
}

func (e *Event) fromMap(raw map[string]any) error {
	var out Event
	var err error
	if out.Type, err = stringField(raw, fieldType); err != nil {
		return err
	}
	if out.EventID, err = stringField(raw, fieldEventID); err != nil {
		return err
	}
	if out.Timestamp, err = stringField(raw, fieldTimestamp); err != nil {
		return err
	}
	if out.PlanHash, err = stringField(raw, fieldPlanHash); err != nil {
		return err
	}
	if out.GraphCommit, err = stringField(raw, fieldGraphCommit); err != nil {
		return err
	}
	if out.PrevEventID, err = stringField(raw, fieldPrevEventID); err != nil {
		return err
	}

	if v, ok := raw[fieldActor]; ok && v != nil {
		obj, ok := v.(map[string]any)
		if !ok {
			return fmt.Errorf("field %q: want object, got %T", fieldActor, v)
		}
		if out.Actor.Agent, err = stringField(obj, "agent"); err != nil {
			return fmt.Errorf("actor: %w", err)
		}
		if out.Actor.ID, err = stringField(obj, "id"); err != nil {
			return fmt.Errorf("actor: %w", err)
		}
	}

	if v, ok := raw[fieldTags]; ok && v != nil {
		list, ok := v.([]any)
		if !ok {
			return fmt.Errorf("field %q: want array, got %T", fieldTags, v)
		}
		for i, item := range list {
			s, ok := item.(string)
			if !ok {
				return fmt.Errorf("field %q[%d]: want string, got %T", fieldTags, i, item)
			}
			out.Tags = append(out.Tags, s)
		}
	}

	for k, v := range raw {
		if isBaseField(k) {
			continue
		}
		if out.Fields == nil {
			out.Fields = make(map[string]any)
		}
		out.Fields[k] = v
	}

	*e = out
	return nil
}

func stringField(m map[string]any, key string) (string, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("field %q: want string, got %T", key, v)
	}
	return s, nil
}

// EventFromMap builds an Event from a decoded object, as produced by a JSON
// or YAML decoder.
func EventFromMap(m map[string]any) (Event, error) {
	var e Event
	if err := e.fromMap(m); err != nil {
		return Event{}, err
	}
	return e, nil
}

// Map returns the flattened object form of the event.
func (e Event) Map() map[string]any {
	return e.toMap()
}
