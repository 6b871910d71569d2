package main

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/justinas/nosurf"
	"github.com/myrjola/survey/internal/contexthelpers"
	"github.com/myrjola/survey/internal/errors"
	"github.com/myrjola/survey/internal/logging"
	"github.com/myrjola/survey/internal/random"
)

const cspNonceLength = 24

func secureHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nonce := contexthelpers.CSPNonce(r.Context())
		w.Header().Set("Content-Security-Policy",
			fmt.Sprintf(`script-src 'nonce-%s' 'strict-dynamic' https: http:; object-src 'none'; base-uri 'none';`, nonce))

		w.Header().Set("Referrer-Policy", "origin-when-cross-origin")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "deny")
		w.Header().Set("X-XSS-Protection", "0")

		next.ServeHTTP(w, r)
	})
}

func cacheForeverHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")

		next.ServeHTTP(w, r)
	})
}

// cspNonce generates a fresh nonce for every request.
func (app *application) cspNonce(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nonce, err := random.Letters(cspNonceLength)
		if err != nil {
			app.serverError(w, r, errors.Wrap(err, "generate csp nonce"))
			return
		}
		next.ServeHTTP(w, contexthelpers.SetCSPNonce(r, nonce))
	})
}

func (app *application) logRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var (
			proto  = r.Proto
			method = r.Method
			uri    = r.URL.RequestURI()
		)

		app.logger.LogAttrs(r.Context(), slog.LevelDebug, "received request",
			slog.String("proto", proto), slog.String("method", method), slog.String("uri", uri))

		next.ServeHTTP(w, r)
	})
}

func (app *application) recoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				w.Header().Set("Connection", "close")
				app.serverError(w, r, errors.New(fmt.Sprintf("%v", err)))
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// survey binds the visitor's session to a running survey controller, starting a new one when the session has none
// or its controller was evicted.
func (app *application) survey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id := app.sessionManager.GetString(ctx, string(surveyIDSessionKey))
		if _, ok := app.surveys.Get(id); id == "" || !ok {
			var err error
			if id, _, err = app.surveys.Create(); err != nil {
				app.serverError(w, r, errors.Wrap(err, "create survey"))
				return
			}
			// Renew the token when binding a new survey to prevent session fixation.
			if err = app.sessionManager.RenewToken(ctx); err != nil {
				app.serverError(w, r, errors.Wrap(err, "renew session token"))
				return
			}
			app.sessionManager.Put(ctx, string(surveyIDSessionKey), id)
		}

		r = contexthelpers.SetSurveyID(r, id)
		r = r.WithContext(logging.WithAttrs(r.Context(), slog.String("survey_id", id)))
		next.ServeHTTP(w, r)
	})
}

func commonContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r = contexthelpers.SetCurrentPath(r, r.URL.Path)
		r = contexthelpers.SetCSRFToken(r, nosurf.Token(r))
		next.ServeHTTP(w, r)
	})
}

// noSurf implements CSRF protection using https://github.com/justinas/nosurf
func noSurf(next http.Handler) http.Handler {
	csrfHandler := nosurf.New(next)
	csrfHandler.SetBaseCookie(http.Cookie{ //nolint:exhaustruct // defaults for the rest.
		HttpOnly: true,
		Path:     "/",
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})

	return csrfHandler
}
