// Package i18n localizes user-facing API text. Supported languages are
// English and Spanish; the request locale is chosen from Accept-Language.
package i18n

import (
	"context"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Message keys. The English text doubles as the key.
const (
	MsgNotFound           = "Not found."
	MsgBadRequest         = "Invalid request."
	MsgConflict           = "Already exists."
	MsgUnauthorized       = "Please log in to access this page."
	MsgInvalidToken       = "The token is invalid or has expired."
	MsgUnavailable        = "The service is temporarily unavailable."
	MsgInternal           = "An unexpected error has occurred."
	MsgRegistered         = "Congratulations, you are now a registered user!"
	MsgResetSent          = "Check your email for the instructions to reset your password"
	MsgPasswordReset      = "Your password has been reset."
	MsgProfileSaved       = "Your changes have been saved."
	MsgFollowing          = "You are following %s!"
	MsgUnfollowed         = "You are not following %s."
	MsgPostLive           = "Your post is now live!"
	MsgMessageSent        = "Your message has been sent."
	MsgExportRunning      = "An export task is currently in progress"
	MsgExportStarted      = "Exporting posts..."
	MsgResetMailSubject   = "[Microblog] Reset Your Password"
	MsgResetMailBody      = "Dear %s,\n\nTo reset your password use this token:\n\n%s\n\nIf you have not requested a password reset simply ignore this message.\n"
	MsgExportMailSubject  = "[Microblog] Your blog posts"
	MsgExportMailBody     = "Dear %s,\n\nYour exported posts are ready for download:\n\n%s\n\nThe link expires in %s.\n"
	MsgCannotFollowSelf   = "You cannot follow yourself!"
	MsgCannotUnfollowSelf = "You cannot unfollow yourself!"
)

var spanish = map[string]string{
	MsgNotFound:           "No encontrado.",
	MsgBadRequest:         "Solicitud inválida.",
	MsgConflict:           "Ya existe.",
	MsgUnauthorized:       "Por favor ingrese para acceder a esta página.",
	MsgInvalidToken:       "El token es inválido o ha expirado.",
	MsgUnavailable:        "El servicio no está disponible temporalmente.",
	MsgInternal:           "Ha ocurrido un error inesperado.",
	MsgRegistered:         "¡Felicitaciones, ya eres un usuario registrado!",
	MsgResetSent:          "Busca en tu email las instrucciones para crear una nueva contraseña",
	MsgPasswordReset:      "Tu contraseña ha sido cambiada.",
	MsgProfileSaved:       "Tus cambios han sido salvados.",
	MsgFollowing:          "¡Ahora estás siguiendo a %s!",
	MsgUnfollowed:         "No estás siguiendo a %s.",
	MsgPostLive:           "¡Tu artículo ha sido publicado!",
	MsgMessageSent:        "Tu mensaje ha sido enviado.",
	MsgExportRunning:      "Una tarea de exportación esta en progreso",
	MsgExportStarted:      "Exportando artículos...",
	MsgResetMailSubject:   "[Microblog] Nueva Contraseña",
	MsgResetMailBody:      "Hola %s,\n\nPara crear una nueva contraseña usa este token:\n\n%s\n\nSi no pediste una nueva contraseña ignora este mensaje.\n",
	MsgExportMailSubject:  "[Microblog] Tus artículos",
	MsgExportMailBody:     "Hola %s,\n\nTus artículos exportados están listos para descargar:\n\n%s\n\nEl enlace expira en %s.\n",
	MsgCannotFollowSelf:   "¡No te puedes seguir a tí mismo!",
	MsgCannotUnfollowSelf: "¡No te puedes dejar de seguir a tí mismo!",
}

// Supported lists the available locales; the first is the fallback.
var Supported = []language.Tag{language.English, language.Spanish}

var (
	matcher = language.NewMatcher(Supported)
	cat     = buildCatalog()
)

func buildCatalog() catalog.Catalog {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for key, es := range spanish {
		_ = b.SetString(language.English, key, key)
		_ = b.SetString(language.Spanish, key, es)
	}
	return b
}

// Match picks the supported locale closest to an Accept-Language header.
func Match(acceptLanguage string) language.Tag {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return Supported[0]
	}
	_, idx, conf := matcher.Match(tags...)
	if conf == language.No {
		return Supported[0]
	}
	return Supported[idx]
}

// Printer returns a printer for tag backed by the microblog catalog.
func Printer(tag language.Tag) *message.Printer {
	return message.NewPrinter(tag, message.Catalog(cat))
}

type ctxKey struct{}

// WithTag stores the request locale in ctx.
func WithTag(ctx context.Context, tag language.Tag) context.Context {
	return context.WithValue(ctx, ctxKey{}, tag)
}

// TagFromContext returns the request locale, English when none was set.
func TagFromContext(ctx context.Context) language.Tag {
	if tag, ok := ctx.Value(ctxKey{}).(language.Tag); ok {
		return tag
	}
	return Supported[0]
}

// T translates key for the locale in ctx.
func T(ctx context.Context, key string, args ...any) string {
	return Printer(TagFromContext(ctx)).Sprintf(key, args...)
}
