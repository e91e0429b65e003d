package handler

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"

	"github.com/examhall/examhall/internal/access"
	"github.com/examhall/examhall/internal/handler/views"
	appI18n "github.com/examhall/examhall/internal/i18n"
	"github.com/examhall/examhall/internal/identity"
	"github.com/examhall/examhall/internal/model"
)

const (
	sessionCookieName = "session"
	csrfCookieName    = "csrf_token"
	flashCookieName   = "flash"
)

type tokenCtxKey struct{}

func contextWithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenCtxKey{}, token)
}

func tokenFromContext(ctx context.Context) string {
	t, _ := ctx.Value(tokenCtxKey{}).(string)
	return t
}

func generateCSRFToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

func (h *Handler) cookiePath() string {
	if h.config.BasePath != "" {
		return h.config.BasePath + "/"
	}
	return "/"
}

func (h *Handler) setCSRFCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     csrfCookieName,
		Value:    token,
		Path:     h.cookiePath(),
		HttpOnly: false,
		Secure:   h.config.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

// csrfMiddleware implements double-submit: every write must carry a form
// token matching the cookie. The token is kept stable across requests so
// a page with several posting controls stays valid.
func (h *Handler) csrfMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, cookieErr := r.Cookie(csrfCookieName)

		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			if cookieErr != nil || cookie.Value == "" {
				slog.Warn("CSRF cookie missing")
				http.Error(w, "csrf token missing", http.StatusForbidden)
				return
			}
			formToken := r.FormValue("csrf_token")
			if formToken == "" {
				slog.Warn("CSRF form token missing")
				http.Error(w, "csrf token missing", http.StatusForbidden)
				return
			}
			if len(formToken) != len(cookie.Value) || subtle.ConstantTimeCompare([]byte(formToken), []byte(cookie.Value)) != 1 {
				slog.Warn("CSRF token mismatch")
				http.Error(w, "invalid csrf token", http.StatusForbidden)
				return
			}
		}

		token := ""
		if cookieErr == nil {
			token = cookie.Value
		}
		if token == "" {
			fresh, err := generateCSRFToken()
			if err != nil {
				slog.Error("failed to generate CSRF token", "error", err)
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}
			token = fresh
			h.setCSRFCookie(w, token)
		}
		ctx := model.ContextWithCSRFToken(r.Context(), token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireAuth resolves the session cookie to a profile. A live session
// whose profile document is gone is torn down on the spot.
func (h *Handler) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookieName)
		if err != nil || cookie.Value == "" {
			h.redirectToLogin(w, r)
			return
		}

		profile, err := h.gateway.Resolve(cookie.Value)
		if errors.Is(err, identity.ErrProfileMissing) {
			slog.Warn("live session without profile, signing out")
			if err := h.gateway.SignOut(cookie.Value); err != nil {
				slog.Error("failed to sign out orphaned session", "error", err)
			}
			h.clearSessionCookie(w)
			h.setFlash(w, "ProfileMissing")
			h.redirectToLogin(w, r)
			return
		}
		if err != nil {
			slog.Error("failed to resolve session", "error", err)
			h.redirectToLogin(w, r)
			return
		}
		if profile == nil {
			h.redirectToLogin(w, r)
			return
		}

		ctx := model.ContextWithProfile(r.Context(), profile)
		ctx = contextWithToken(ctx, cookie.Value)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// gate checks the page against the profile's surface on every load.
func (h *Handler) gate(page access.Page) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			profile := model.ProfileFromContext(r.Context())
			if profile == nil {
				h.redirectToLogin(w, r)
				return
			}

			d := access.Decide(access.Resolve(profile), page)
			switch {
			case d.Allow:
				next.ServeHTTP(w, r)
			case d.Forbid:
				// A non-admin reached the console: end the session and
				// return to the entry page.
				if token := tokenFromContext(r.Context()); token != "" {
					if err := h.gateway.SignOut(token); err != nil {
						slog.Error("failed to sign out", "error", err)
					}
				}
				h.clearSessionCookie(w)
				h.setFlash(w, "Unauthorized")
				h.redirectToLogin(w, r)
			default:
				http.Redirect(w, r, h.pagePath(d.RedirectTo), http.StatusSeeOther)
			}
		})
	}
}

func (h *Handler) pagePath(p access.Page) string {
	switch p {
	case access.PageAdmin:
		return h.path("/admin")
	case access.PageExam:
		return h.path("/exam")
	case access.PageResult:
		return h.path("/result")
	default:
		return h.path("/")
	}
}

func (h *Handler) redirectToLogin(w http.ResponseWriter, r *http.Request) {
	loginPath := h.path("/login")
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", loginPath)
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	http.Redirect(w, r, loginPath, http.StatusSeeOther)
}

func (h *Handler) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     h.cookiePath(),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.config.SecureCookies,
	})
}

func (h *Handler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     h.cookiePath(),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.SecureCookies,
	})
}

// setFlash stores a one-shot message ID shown on the next page load.
func (h *Handler) setFlash(w http.ResponseWriter, msgID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    msgID,
		Path:     h.cookiePath(),
		HttpOnly: true,
		Secure:   h.config.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

// takeFlash reads and clears the one-shot message.
func (h *Handler) takeFlash(w http.ResponseWriter, r *http.Request) string {
	cookie, err := r.Cookie(flashCookieName)
	if err != nil || cookie.Value == "" {
		return ""
	}
	http.SetCookie(w, &http.Cookie{
		Name:   flashCookieName,
		Value:  "",
		Path:   h.cookiePath(),
		MaxAge: -1,
	})
	return cookie.Value
}

func (h *Handler) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	errMsg, notice := "", ""
	if id := h.takeFlash(w, r); id != "" {
		if id == "SignupSuccess" {
			notice = appI18n.T(r.Context(), id)
		} else {
			errMsg = appI18n.T(r.Context(), id)
		}
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := views.LoginPage(errMsg, notice).Render(r.Context(), w); err != nil {
		slog.Error("render error", "error", err)
	}
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	email := r.FormValue("email")
	password := r.FormValue("password")

	token, err := h.gateway.SignIn(email, password)
	if errors.Is(err, identity.ErrBadCredentials) {
		h.renderLoginError(w, r, "LoginFailed")
		return
	}
	if err != nil {
		slog.Error("sign-in failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	h.setSessionCookie(w, token)
	http.Redirect(w, r, h.path("/"), http.StatusSeeOther)
}

func (h *Handler) handleSignupPage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := views.SignupPage("").Render(r.Context(), w); err != nil {
		slog.Error("render error", "error", err)
	}
}

func (h *Handler) handleSignup(w http.ResponseWriter, r *http.Request) {
	username := r.FormValue("username")
	email := r.FormValue("email")
	password := r.FormValue("password")

	if username == "" || email == "" || password == "" {
		h.renderSignupError(w, r, "SignupFailed")
		return
	}

	if _, err := h.gateway.SignUp(email, password, username); err != nil {
		if errors.Is(err, identity.ErrEmailTaken) {
			h.renderSignupError(w, r, "EmailTaken")
			return
		}
		slog.Error("sign-up failed", "error", err)
		h.renderSignupError(w, r, "SignupFailed")
		return
	}

	// No auto-login: the new account returns to the sign-in page.
	h.setFlash(w, "SignupSuccess")
	http.Redirect(w, r, h.path("/login"), http.StatusSeeOther)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(sessionCookieName)
	if err == nil && cookie.Value != "" {
		if err := h.gateway.SignOut(cookie.Value); err != nil {
			slog.Error("failed to sign out", "error", err)
		}
	}
	h.clearSessionCookie(w)
	http.Redirect(w, r, h.path("/login"), http.StatusSeeOther)
}

func (h *Handler) renderLoginError(w http.ResponseWriter, r *http.Request, msgID string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusUnauthorized)
	if err := views.LoginPage(appI18n.T(r.Context(), msgID), "").Render(r.Context(), w); err != nil {
		slog.Error("render error", "error", err)
	}
}

func (h *Handler) renderSignupError(w http.ResponseWriter, r *http.Request, msgID string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusBadRequest)
	if err := views.SignupPage(appI18n.T(r.Context(), msgID)).Render(r.Context(), w); err != nil {
		slog.Error("render error", "error", err)
	}
}
