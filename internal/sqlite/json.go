// JSON record structures for the JSONL data files.
package sqlite

import "time"

// attributeJSON is one line of attributes.jsonl.
type attributeJSON struct {
	Name    string `json:"name"`
	Ordinal int    `json:"ordinal"`
}

// entityJSON is one line of entities.jsonl. Attribute values are decoded
// loosely (numbers, booleans or strings) and coerced to 0/1 on load; they
// are always written as 0 or 1.
type entityJSON struct {
	Name       string         `json:"name"`
	Attributes map[string]any `json:"attributes"`
}

// commitJSON is the single record of the commit marker.
type commitJSON struct {
	SavedAt    time.Time `json:"saved_at"`
	Entities   int       `json:"entities"`
	Attributes int       `json:"attributes"`
}
