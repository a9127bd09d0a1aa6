package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestT(t *testing.T) {
	require.NoError(t, Init())

	assert.Equal(t, "Invalid email or password.", T("auth.invalid_credentials", nil))
	assert.Equal(t, "E-mail ou mot de passe invalide.", T("auth.invalid_credentials", nil, "fr"))
	// missing in hi falls back to the default language
	assert.Equal(t, "Artwork deleted.", T("listing.deleted", nil, "hi"))
	assert.Equal(t, "no.such.message", T("no.such.message", nil))
}

func TestLanguages(t *testing.T) {
	require.NoError(t, Init())
	assert.ElementsMatch(t, []string{"en", "fr", "hi"}, Languages())
}

func TestTTemplate(t *testing.T) {
	require.NoError(t, Init())
	assert.Equal(t, "Now following Meera!", T("catalog.followed", map[string]interface{}{"Name": "Meera"}))
	assert.Equal(t, "Vous ne suivez plus Meera", T("catalog.unfollowed", map[string]interface{}{"Name": "Meera"}, "fr-CA", "fr"))
}
