package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedLocalesCoverEveryKey(t *testing.T) {
	require.NoError(t, Initialize("", "es"))

	keys := []string{
		KeyAuthRequired, KeyAuthInvalidToken, KeyAuthInsufficientPermissions,
		KeyApplicationCreated, KeyApplicationStatusUpdated, KeyApplicationNotFound,
		KeyInterviewRequested, KeyCandidateRevealed, KeyWalletToppedUp,
		KeyErrInvalidTransition, KeyErrInsufficientBalance, KeyErrConcurrentModification,
		KeyErrDuplicateActiveApplication, KeyRateLimitExceeded,
	}
	for _, lang := range SupportedLanguages {
		for _, key := range keys {
			assert.NotEqual(t, key, T(lang, key), "%s missing in %s", key, lang)
		}
	}
}

func TestTranslateWithFallback(t *testing.T) {
	require.NoError(t, Initialize("", "es"))

	assert.Equal(t, "Oferta no encontrada", T("es", KeyErrOfferNotFound))
	assert.Equal(t, "Offer not found", T("en", KeyErrOfferNotFound))
	assert.Equal(t, "Oferta no encontrada", T("fr", KeyErrOfferNotFound))
	assert.Equal(t, "Invalid input", T("en", KeyValidationInvalid, "input"))
	assert.Equal(t, "no.such.key", T("en", "no.such.key"))
	assert.Equal(t, "es", DefaultLanguage())
}

func TestMissingLocalesPathUsesEmbedded(t *testing.T) {
	require.NoError(t, Initialize("/nonexistent/locales", "en"))
	assert.Equal(t, "Application submitted", T("en", KeyApplicationCreated))
}

func TestParseAcceptLanguage(t *testing.T) {
	cases := map[string]string{
		"es-ES,es;q=0.9,en;q=0.8": "es",
		"en-GB":                   "en",
		"fr-FR,en;q=0.5":          "en",
		"ca, es;q=0.7":            "es",
	}
	for header, want := range cases {
		got, ok := ParseAcceptLanguage(header)
		assert.True(t, ok, header)
		assert.Equal(t, want, got, header)
	}

	_, ok := ParseAcceptLanguage("de-DE")
	assert.False(t, ok)
	_, ok = ParseAcceptLanguage("")
	assert.False(t, ok)
}
