package session

import (
	"fmt"
	"strings"
)

// OpenStore builds the Store named by kind: "file" (slots under dir),
// "memory", or a redis:// URL. The returned close func is never nil.
func OpenStore(kind, dir, profile string) (Store, func() error, error) {
	noop := func() error { return nil }
	switch {
	case kind == "" || kind == "file":
		return NewFileStore(dir), noop, nil
	case kind == "memory":
		return NewMemoryStore(), noop, nil
	case strings.HasPrefix(kind, "redis://"), strings.HasPrefix(kind, "rediss://"):
		rs, err := NewRedisStore(kind, profile)
		if err != nil {
			return nil, noop, err
		}
		return rs, rs.Close, nil
	default:
		return nil, noop, fmt.Errorf("session.OpenStore: unknown store %q", kind)
	}
}
