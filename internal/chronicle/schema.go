package chronicle

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Kind names for the event variants the toolchain emits.
const (
	PlanDrafted     = "PLAN_DRAFTED"
	PlanApproved    = "PLAN_APPROVED"
	PlanRejected    = "PLAN_REJECTED"
	BuildStarted    = "BUILD_STARTED"
	BuildCompleted  = "BUILD_COMPLETED"
	FileAdded       = "FILE_ADDED"
	FileModified    = "FILE_MODIFIED"
	FileDeleted     = "FILE_DELETED"
	FileRenamed     = "FILE_RENAMED"
	DeployStarted   = "DEPLOY_STARTED"
	DeployCompleted = "DEPLOY_COMPLETED"
	GraphCommitted  = "GRAPH_COMMITTED"
)

// jsonType is a JSON Schema primitive type name.
type jsonType string

const (
	tString  jsonType = "string"
	tArray   jsonType = "array"
	tCount   jsonType = "count" // non-negative integer
	tInteger jsonType = "integer"
)

// variant describes one event kind: the fields it must carry and the shape
// of the fields it may carry.
type variant struct {
	required []string
	shapes   map[string]jsonType
}

var variants = map[string]variant{
	PlanDrafted: {
		required: []string{"planId", "summary", "steps"},
		shapes:   map[string]jsonType{"planId": tString, "summary": tString, "steps": tArray},
	},
	PlanApproved: {
		required: []string{"planId", "approver"},
		shapes:   map[string]jsonType{"planId": tString, "approver": tString},
	},
	PlanRejected: {
		required: []string{"planId", "reason"},
		shapes:   map[string]jsonType{"planId": tString, "reason": tString},
	},
	BuildStarted: {
		required: []string{"buildId", "target"},
		shapes:   map[string]jsonType{"buildId": tString, "target": tString},
	},
	BuildCompleted: {
		required: []string{"buildId", "status"},
		shapes:   map[string]jsonType{"buildId": tString, "status": tString, "durationMs": tCount, "exitCode": tInteger},
	},
	FileAdded: {
		required: []string{"filePath", "hash", "size"},
		shapes:   map[string]jsonType{"filePath": tString, "hash": tString, "size": tCount},
	},
	FileModified: {
		required: []string{"filePath", "hash"},
		shapes:   map[string]jsonType{"filePath": tString, "hash": tString, "previousHash": tString, "size": tCount},
	},
	FileDeleted: {
		required: []string{"filePath"},
		shapes:   map[string]jsonType{"filePath": tString},
	},
	FileRenamed: {
		required: []string{"oldPath", "newPath"},
		shapes:   map[string]jsonType{"oldPath": tString, "newPath": tString},
	},
	DeployStarted: {
		required: []string{"deployId", "environment"},
		shapes:   map[string]jsonType{"deployId": tString, "environment": tString},
	},
	DeployCompleted: {
		required: []string{"deployId", "environment", "status"},
		shapes:   map[string]jsonType{"deployId": tString, "environment": tString, "status": tString},
	},
	GraphCommitted: {
		required: []string{"graphCommit"},
	},
}

// KnownKinds returns the registered event kinds in sorted order.
func KnownKinds() []string {
	kinds := make([]string, 0, len(variants))
	for k := range variants {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// RequiredFields returns the kind-specific required fields for typ, or nil
// for unknown kinds.
func RequiredFields(typ string) []string {
	v, ok := variants[typ]
	if !ok {
		return nil
	}
	return append([]string(nil), v.required...)
}

// ValidateEvent checks the base contract and the kind-specific contract of e.
// It performs no I/O. Unknown kinds pass once the base fields are present.
func ValidateEvent(e Event) error {
	const op = "validate event"
	switch {
	case strings.TrimSpace(e.Type) == "":
		return validationError(op, "", "missing required field %q", fieldType)
	case strings.TrimSpace(e.Timestamp) == "":
		return validationError(op, "", "missing required field %q", fieldTimestamp)
	case strings.TrimSpace(e.Actor.Agent) == "":
		return validationError(op, "", "missing required field %q", "actor.agent")
	case strings.TrimSpace(e.Actor.ID) == "":
		return validationError(op, "", "missing required field %q", "actor.id")
	}

	v, known := variants[e.Type]
	if !known {
		return nil
	}

	m := e.toMap()
	for _, name := range v.required {
		val, ok := m[name]
		if !ok || val == nil {
			return validationError(op, "", "missing required field %q for type %s", name, e.Type)
		}
		if s, isStr := val.(string); isStr && strings.TrimSpace(s) == "" {
			return validationError(op, "", "missing required field %q for type %s", name, e.Type)
		}
	}

	schemas, err := compiledSchemas()
	if err != nil {
		return fmt.Errorf("compile event schemas: %w", err)
	}
	schema, ok := schemas[e.Type]
	if !ok {
		return nil
	}
	doc, err := jsonValue(m)
	if err != nil {
		return validationError(op, "", "encode event: %v", err)
	}
	if err := schema.Validate(doc); err != nil {
		return validationError(op, "", "type %s: %v", e.Type, err)
	}
	return nil
}

var compiledSchemas = sync.OnceValues(func() (map[string]*jsonschema.Schema, error) {
	out := make(map[string]*jsonschema.Schema, len(variants))
	for typ, v := range variants {
		doc, err := json.Marshal(schemaDocument(v))
		if err != nil {
			return nil, err
		}

		c := jsonschema.NewCompiler()
		c.Draft = jsonschema.Draft2020
		url := fmt.Sprintf("https://chronicle.local/schemas/%s.schema.json", strings.ToLower(typ))
		if err := c.AddResource(url, bytes.NewReader(doc)); err != nil {
			return nil, fmt.Errorf("load schema %s: %w", typ, err)
		}
		schema, err := c.Compile(url)
		if err != nil {
			return nil, fmt.Errorf("compile schema %s: %w", typ, err)
		}
		out[typ] = schema
	}
	return out, nil
})

func schemaDocument(v variant) map[string]any {
	props := map[string]any{
		fieldTags: map[string]any{
			"type":  "array",
			"items": map[string]any{"type": "string"},
		},
	}
	for name, t := range v.shapes {
		switch t {
		case tCount:
			props[name] = map[string]any{"type": "integer", "minimum": 0}
		default:
			props[name] = map[string]any{"type": string(t)}
		}
	}
	return map[string]any{
		"$schema":    "https://json-schema.org/draft/2020-12/schema",
		"type":       "object",
		"properties": props,
	}
}

// jsonValue round-trips v through encoding/json so the schema validator sees
// plain JSON values with exact numbers.
func jsonValue(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}
