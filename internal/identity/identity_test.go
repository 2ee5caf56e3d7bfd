package identity_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gosuda/parley/internal/identity"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "plain username", raw: "alice", want: "alice"},
		{name: "email address", raw: "alice@example.com", want: "alice_example_com"},
		{name: "uppercase folded", raw: "Alice.Smith@Example.COM", want: "alice_smith_example_com"},
		{name: "hyphens kept", raw: "jean-luc", want: "jean-luc"},
		{name: "digits kept", raw: "user42", want: "user42"},
		{name: "consecutive junk collapsed", raw: "a!!!b   c", want: "a_b_c"},
		{name: "leading junk trimmed", raw: "@@@alice", want: "alice"},
		{name: "trailing junk trimmed", raw: "alice!!!", want: "alice"},
		{name: "underscores collapsed via junk runs", raw: "a.._..b", want: "a_b"},
		{name: "empty input", raw: "", want: identity.SentinelKey},
		{name: "all junk", raw: "@#$%^&*", want: identity.SentinelKey},
		{name: "whitespace only", raw: "   ", want: identity.SentinelKey},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.want, identity.Normalize(tc.raw))
		})
	}
}

func TestNormalize_Deterministic(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"alice@example.com",
		"",
		"@#$",
		strings.Repeat("long-identity.", 20),
	}

	for _, raw := range inputs {
		assert.Equal(t, identity.Normalize(raw), identity.Normalize(raw), "input %q", raw)
	}
}

func TestNormalize_KeyCharacterConstraint(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"alice@example.com",
		"Ünïcødé Ñame",
		"日本語ユーザー",
		"a b c d e",
		strings.Repeat("x", 500),
		"-leading-and-trailing-",
	}

	for _, raw := range inputs {
		got := identity.Normalize(raw)

		assert.NotEmpty(t, got, "input %q", raw)
		assert.LessOrEqual(t, len(got), 64, "input %q", raw)
		for _, r := range got {
			ok := r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '_' || r == '-'
			assert.True(t, ok, "input %q produced disallowed rune %q in %q", raw, r, got)
		}
		assert.NotEqual(t, byte('_'), got[0], "input %q", raw)
		assert.NotEqual(t, byte('_'), got[len(got)-1], "input %q", raw)
	}
}

func TestNormalize_LongIdentitiesStayDistinct(t *testing.T) {
	t.Parallel()

	// Same 64-char prefix, different tails: plain truncation would collide.
	prefix := strings.Repeat("a", 80)
	a := identity.Normalize(prefix + "one@example.com")
	b := identity.Normalize(prefix + "two@example.com")

	assert.LessOrEqual(t, len(a), 64)
	assert.LessOrEqual(t, len(b), 64)
	assert.NotEqual(t, a, b)
}
