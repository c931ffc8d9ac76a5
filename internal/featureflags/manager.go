// Package featureflags evaluates rollout switches configured through
// FEATURE_FLAGS.
package featureflags

import (
	"hash/fnv"
	"sort"
	"strconv"
	"strings"
)

// Flags consulted by the service.
const (
	// StrictEmojiPalette restricts reactions to the suggested palette.
	StrictEmojiPalette = "strict_emoji_palette"
	// LiveThreads enables the websocket thread feed.
	LiveThreads = "live_threads"
	// SearchMeili routes post search to Meilisearch when it is healthy.
	SearchMeili = "search_meili"
)

// defaults apply to known flags absent from the configuration.
var defaults = map[string]string{
	StrictEmojiPalette: "off",
	LiveThreads:        "on",
	SearchMeili:        "on",
}

// Manager evaluates feature flags defined in a simple key=value list.
// Example: "strict_emoji_palette=on,live_threads=25%,search_meili=off"
type Manager struct {
	flags map[string]string
}

// NewManager creates a feature-flag manager from a comma-separated config string.
func NewManager(raw string) *Manager {
	out := make(map[string]string, len(defaults))
	for k, v := range defaults {
		out[k] = v
	}

	for _, pair := range strings.Split(raw, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok {
			continue
		}
		key, value = normalize(key), normalize(value)
		if key == "" || value == "" {
			continue
		}
		out[key] = value
	}

	return &Manager{flags: out}
}

// Enabled reports whether name is on for callerID.
// Supported values:
// - on/true/1
// - off/false/0
// - N% (deterministic per-caller rollout, e.g. 25%)
//
// Percentage rollouts are off for anonymous callers.
func (m *Manager) Enabled(name, callerID string) bool {
	if m == nil {
		return false
	}

	value, ok := m.flags[normalize(name)]
	if !ok {
		return false
	}

	switch value {
	case "on", "true", "1":
		return true
	case "off", "false", "0":
		return false
	}

	pctRaw, isPct := strings.CutSuffix(value, "%")
	if !isPct {
		return false
	}
	pct, err := strconv.Atoi(pctRaw)
	if err != nil || pct <= 0 {
		return false
	}
	if pct >= 100 {
		return true
	}
	if callerID == "" {
		return false
	}
	return rolloutBucket(name, callerID) < pct
}

// Raw returns a copy of configured flags.
func (m *Manager) Raw() map[string]string {
	out := make(map[string]string, len(m.flags))
	for k, v := range m.flags {
		out[k] = v
	}
	return out
}

// Names returns the configured flag names in order.
func (m *Manager) Names() []string {
	names := make([]string, 0, len(m.flags))
	for k := range m.flags {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Snapshot returns evaluated flag status for one caller.
func (m *Manager) Snapshot(callerID string) map[string]bool {
	out := make(map[string]bool, len(m.flags))
	for name := range m.flags {
		out[name] = m.Enabled(name, callerID)
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func rolloutBucket(name, callerID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(normalize(name) + ":" + callerID))
	return int(h.Sum32() % 100)
}
