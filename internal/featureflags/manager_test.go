package featureflags

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnabled_BooleanValues(t *testing.T) {
	m := NewManager("a=on,b=off,c=true,d=false,e=1,f=0")

	assert.True(t, m.Enabled("a", "u1"))
	assert.True(t, m.Enabled("c", "u1"))
	assert.True(t, m.Enabled("e", ""))
	assert.False(t, m.Enabled("b", "u1"))
	assert.False(t, m.Enabled("d", "u1"))
	assert.False(t, m.Enabled("f", "u1"))
	assert.False(t, m.Enabled("unknown", "u1"))
}

func TestEnabled_PercentageValues(t *testing.T) {
	m := NewManager("always=100%,never=0%,canary=25%,junk=abc%")

	assert.True(t, m.Enabled("always", "u1"))
	assert.False(t, m.Enabled("never", "u1"))
	assert.False(t, m.Enabled("junk", "u1"))

	first := m.Enabled("canary", "user_42")
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, m.Enabled("canary", "user_42"), "rollout must be deterministic per caller")
	}

	assert.False(t, m.Enabled("canary", ""), "anonymous callers are outside percentage rollouts")

	on := 0
	for i := 0; i < 1000; i++ {
		if m.Enabled("canary", "user_"+string(rune('a'+i%26))+string(rune('a'+i/26))) {
			on++
		}
	}
	assert.InDelta(t, 250, on, 120)
}

func TestDefaults(t *testing.T) {
	m := NewManager("")

	assert.False(t, m.Enabled(StrictEmojiPalette, "u1"))
	assert.True(t, m.Enabled(LiveThreads, ""))
	assert.True(t, m.Enabled(SearchMeili, ""))

	m = NewManager("STRICT_EMOJI_PALETTE=on, search_meili = off")
	assert.True(t, m.Enabled(StrictEmojiPalette, "u1"))
	assert.False(t, m.Enabled(SearchMeili, "u1"))

	var nilManager *Manager
	assert.False(t, nilManager.Enabled(LiveThreads, "u1"))
}

func TestParseAndSnapshot(t *testing.T) {
	m := NewManager(" bad ,x=on, y = 20% ,z=off ")

	raw := m.Raw()
	assert.Len(t, raw, 6)
	assert.Equal(t, "on", raw["x"])
	assert.Equal(t, "20%", raw["y"])
	assert.Equal(t, "off", raw["z"])

	assert.Equal(t, []string{LiveThreads, SearchMeili, StrictEmojiPalette, "x", "y", "z"}, m.Names())

	snap := m.Snapshot("user_123")
	assert.Len(t, snap, 6)
	assert.True(t, snap["x"])
	assert.False(t, snap["z"])
}
