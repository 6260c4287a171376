package middleware

import (
	"context"
	"net/http"
	"strings"

	"golang.org/x/text/language"

	"image-editor/internal/i18n"
)

type localeContextKey struct{}

var LocaleKey = localeContextKey{}

// I18N resolves the response language once per request. X-Locale wins over
// Accept-Language, which wins over country hints set by a proxy or CDN.
func I18N(defaultLocale string) func(http.Handler) http.Handler {
	fallback := i18n.Parse(defaultLocale, i18n.English)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tag := detectLocale(r, fallback)
			w.Header().Set("Content-Language", i18n.Code(tag))
			ctx := context.WithValue(r.Context(), LocaleKey, tag)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func detectLocale(r *http.Request, fallback language.Tag) language.Tag {
	if v := strings.TrimSpace(r.Header.Get("X-Locale")); v != "" {
		return i18n.Parse(v, fallback)
	}
	if v := strings.TrimSpace(r.Header.Get("Accept-Language")); v != "" {
		return i18n.Match(v)
	}
	switch country := ResolveCountry(r); {
	case country == "ID":
		return i18n.Indonesian
	case country != "":
		return i18n.English
	}
	return fallback
}

// ResolveCountry returns the ISO country code from well-known proxy headers.
func ResolveCountry(r *http.Request) string {
	if r == nil {
		return ""
	}
	headerHints := []string{"X-Country-Code", "X-IP-Country", "CF-IPCountry", "X-Appengine-Country"}
	for _, key := range headerHints {
		if val := strings.TrimSpace(r.Header.Get(key)); val != "" {
			return strings.ToUpper(val)
		}
	}
	return ""
}

// LocaleFromContext returns the language chosen by I18N, or English.
func LocaleFromContext(ctx context.Context) language.Tag {
	if v, ok := ctx.Value(LocaleKey).(language.Tag); ok {
		return v
	}
	return i18n.English
}
