package links

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/docweave/internal/foundation/errors"
)

func TestNormalizeEquivalentNames(t *testing.T) {
	variants := []string{"Setup", " setup ", "SETUP\t", "setup"}
	for _, v := range variants {
		assert.Equal(t, "setup", Normalize(v), "variant %q", v)
	}
	// Composed and decomposed forms of the same name share a key.
	assert.Equal(t, Normalize("Café"), Normalize("café"))
}

func TestSetLinkThenGetAcrossCaseVariants(t *testing.T) {
	table := NewTable()
	resolved, err := table.SetLink("  Install Guide ", " install.md ")
	require.NoError(t, err)
	assert.Equal(t, "install guide", resolved)

	for _, name := range []string{"install guide", "INSTALL GUIDE", " Install Guide"} {
		url, ok := table.Get(name)
		require.True(t, ok, name)
		assert.Equal(t, "install.md", url)
	}
}

func TestRedefinitionLastWriteWins(t *testing.T) {
	table := NewTable()
	_, err := table.SetLink("api", "v1/api.md")
	require.NoError(t, err)
	_, err = table.SetLink("API", "v2/api.md")
	require.NoError(t, err)

	url, ok := table.Get("api")
	require.True(t, ok)
	assert.Equal(t, "v2/api.md", url)
	assert.Equal(t, 1, table.Len())
}

func TestAnonymousLinksBindInDeclarationOrder(t *testing.T) {
	table := NewTable()
	table.PushAnonymous("a")
	table.PushAnonymous("b")

	first, err := table.SetLink(Anonymous, "u1")
	require.NoError(t, err)
	second, err := table.SetLink(" _ ", "u2")
	require.NoError(t, err)

	assert.Equal(t, "a", first)
	assert.Equal(t, "b", second)
	assert.Equal(t, map[string]string{"a": "u1", "b": "u2"}, table.Links())
	assert.Empty(t, table.Pending())
}

func TestAnonymousUnderflow(t *testing.T) {
	table := NewTable()
	table.PushAnonymous("only")
	_, err := table.SetLink(Anonymous, "u1")
	require.NoError(t, err)

	_, err = table.SetLink(Anonymous, "u2")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAnonymousUnderflow))
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryLinkResolution))
	assert.Equal(t, 1, table.Len(), "a failed binding must not store anything")
}

func TestResetAnonymousStack(t *testing.T) {
	table := NewTable()
	table.PushAnonymous("stale")
	table.ResetAnonymousStack()

	_, err := table.SetLink(Anonymous, "u")
	assert.ErrorIs(t, err, ErrAnonymousUnderflow)
}

func TestPendingIsACopy(t *testing.T) {
	table := NewTable()
	table.PushAnonymous("One")
	pending := table.Pending()
	pending[0] = "mutated"
	assert.Equal(t, []string{"one"}, table.Pending())
}

func TestLoadNormalizesAndClearsQueue(t *testing.T) {
	table := NewTable()
	table.PushAnonymous("x")
	table.Load(map[string]string{"Setup": "install.md"})

	url, ok := table.Get("setup")
	require.True(t, ok)
	assert.Equal(t, "install.md", url)
	assert.Empty(t, table.Pending())

	links := table.Links()
	links["other"] = "x.md"
	_, ok = table.Get("other")
	assert.False(t, ok, "Links must return a copy")
}
