package position

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromAliasResolvesEveryAcceptedAlias(t *testing.T) {
	for _, alias := range AcceptedAliases() {
		_, ok := FromAlias(alias)
		assert.True(t, ok, "alias %q should resolve", alias)
	}
}

func TestFromAliasIsCaseInsensitive(t *testing.T) {
	lower, ok := FromAlias("top")
	require.True(t, ok)
	upper, ok := FromAlias("TOP")
	require.True(t, ok)
	assert.Equal(t, lower, upper)

	p, ok := FromAlias("JuNgLeR")
	require.True(t, ok)
	assert.Equal(t, Jungle, p)
}

func TestFromAliasUnknownReturnsFalse(t *testing.T) {
	for _, alias := range []string{"", "toplane", "🤷", "noob2"} {
		_, ok := FromAlias(alias)
		assert.False(t, ok, "alias %q should not resolve", alias)
	}
}

func TestFromAliasMapping(t *testing.T) {
	cases := map[string]Position{
		"top-1":  Top,
		"jung":   Jungle,
		"middle": Mid,
		"adc":    Bot,
		"supp":   Support,
		"👍":      Fill,
		"👎":      Noob,
	}
	for alias, want := range cases {
		got, ok := FromAlias(alias)
		require.True(t, ok, alias)
		assert.Equal(t, want, got, alias)
	}
}

func TestFromNameRoundTrip(t *testing.T) {
	for _, p := range All() {
		got, ok := FromName(p.String())
		require.True(t, ok, p.String())
		assert.Equal(t, p, got)
	}

	_, ok := FromName("UNKNOWN")
	assert.False(t, ok)
}
