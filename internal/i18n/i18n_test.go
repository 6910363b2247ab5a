package i18n

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/text/language"
)

func TestMatch(t *testing.T) {
	tests := []struct {
		header string
		want   language.Tag
	}{
		{"", language.English},
		{"es-MX,es;q=0.9,en;q=0.5", language.Spanish},
		{"fr-FR,de;q=0.8", language.English},
		{"en-GB", language.English},
	}
	for _, tc := range tests {
		t.Run(tc.header, func(t *testing.T) {
			assert.Equal(t, tc.want, Match(tc.header))
		})
	}
}

func TestT(t *testing.T) {
	en := context.Background()
	es := WithTag(en, language.Spanish)

	assert.Equal(t, "You are following bob!", T(en, MsgFollowing, "bob"))
	assert.Equal(t, "¡Ahora estás siguiendo a bob!", T(es, MsgFollowing, "bob"))
	assert.Equal(t, "No encontrado.", T(es, MsgNotFound))
}

func TestCatalogComplete(t *testing.T) {
	keys := []string{
		MsgNotFound, MsgBadRequest, MsgConflict, MsgUnauthorized, MsgInvalidToken,
		MsgUnavailable, MsgInternal, MsgRegistered, MsgResetSent, MsgPasswordReset,
		MsgProfileSaved, MsgFollowing, MsgUnfollowed, MsgPostLive, MsgMessageSent,
		MsgExportRunning, MsgExportStarted, MsgResetMailSubject, MsgResetMailBody,
		MsgExportMailSubject, MsgExportMailBody, MsgCannotFollowSelf, MsgCannotUnfollowSelf,
	}
	for _, k := range keys {
		_, ok := spanish[k]
		assert.True(t, ok, "missing Spanish text for %q", k)
	}
}
