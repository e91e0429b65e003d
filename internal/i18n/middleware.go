package i18n

import "net/http"

// LangCookie lets a user override the portal's default language.
const LangCookie = "lang"

// Middleware injects a localizer into every request context. The default
// language applies unless the request carries a lang cookie.
func Middleware(defaultLang string) func(http.Handler) http.Handler {
	defaultLoc := NewLocalizer(defaultLang)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			loc := defaultLoc
			if c, err := r.Cookie(LangCookie); err == nil && c.Value != "" {
				loc = NewLocalizer(c.Value)
			}
			ctx := WithLocalizer(r.Context(), loc)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
