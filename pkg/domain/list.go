package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// List is the envelope for list endpoints. The backend returns either a bare
// JSON array or a paginated object with a "results" array; the shape is
// decided once when decoding.
type List[T any] struct {
	Items     []T
	Paginated bool
	Count     int
	Next      string
}

type paginated[T any] struct {
	Count   int     `json:"count"`
	Next    *string `json:"next"`
	Results []T     `json:"results"`
}

// UnmarshalJSON decodes either a bare array or a {results: [...]} object.
func (l *List[T]) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*l = List[T]{Items: []T{}}
		return nil
	}

	switch trimmed[0] {
	case '[':
		var items []T
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return fmt.Errorf("decode list: %w", err)
		}
		*l = List[T]{Items: items, Count: len(items)}
		return nil
	case '{':
		var p paginated[T]
		if err := json.Unmarshal(trimmed, &p); err != nil {
			return fmt.Errorf("decode page: %w", err)
		}
		if p.Results == nil {
			p.Results = []T{}
		}
		l.Items = p.Results
		l.Paginated = true
		l.Count = p.Count
		l.Next = ""
		if p.Next != nil {
			l.Next = *p.Next
		}
		return nil
	default:
		return fmt.Errorf("decode list: unexpected JSON starting with %q", trimmed[0])
	}
}

// Len returns the number of items in the envelope.
func (l List[T]) Len() int { return len(l.Items) }
