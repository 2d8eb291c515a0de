package hierarchy

import (
	"regexp"
	"strings"

	"github.com/dd0wney/cluso-gridmap/pkg/config"
)

var digitRun = regexp.MustCompile(`\d+`)

// numericKey returns the first run of digits in id without leading zeros,
// or "" when id has no digits.
func numericKey(id string) string {
	run := digitRun.FindString(id)
	if run == "" {
		return ""
	}
	if trimmed := strings.TrimLeft(run, "0"); trimmed != "" {
		return trimmed
	}
	return "0"
}

// ExternalMatcher decides whether an endpoint is an external supply bus.
type ExternalMatcher struct {
	mode string
	keys map[string]string // match key -> external identifier
}

// NewExternalMatcher indexes the external identifiers. With the numeric
// mode, identifiers sharing a digit run collapse onto the first one listed.
func NewExternalMatcher(external []string, mode string) *ExternalMatcher {
	m := &ExternalMatcher{mode: mode, keys: make(map[string]string, len(external))}
	for _, id := range external {
		id = strings.TrimSpace(id)
		key := m.key(id)
		if key == "" {
			continue
		}
		if _, dup := m.keys[key]; !dup {
			m.keys[key] = id
		}
	}
	return m
}

func (m *ExternalMatcher) key(id string) string {
	if m.mode == config.MatchNumeric {
		return numericKey(id)
	}
	return strings.TrimSpace(id)
}

// Match returns the external identifier endpoint corresponds to.
func (m *ExternalMatcher) Match(endpoint string) (string, bool) {
	if m == nil || len(m.keys) == 0 {
		return "", false
	}
	key := m.key(endpoint)
	if key == "" {
		return "", false
	}
	id, ok := m.keys[key]
	return id, ok
}

// Len returns the number of distinct external buses.
func (m *ExternalMatcher) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}
