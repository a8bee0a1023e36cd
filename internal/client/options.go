package client

import (
	"errors"
	"fmt"
	"strings"
)

// ParseOptions splits a comma-separated option list for a poll. Entries are
// trimmed and empty ones dropped; at least two distinct options are required.
func ParseOptions(raw string) ([]string, error) {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, dup := seen[p]; dup {
			return nil, fmt.Errorf("duplicate option %q", p)
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	if len(out) < 2 {
		return nil, errors.New("a poll needs at least 2 options")
	}
	return out, nil
}
