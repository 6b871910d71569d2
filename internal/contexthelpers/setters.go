package contexthelpers

import (
	"context"
	"net/http"
)

func withValue(r *http.Request, key contextKey, value string) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), key, value))
}

func SetSurveyID(r *http.Request, surveyID string) *http.Request {
	return withValue(r, surveyIDKey, surveyID)
}

func SetCurrentPath(r *http.Request, currentPath string) *http.Request {
	return withValue(r, currentPathKey, currentPath)
}

func SetCSRFToken(r *http.Request, csrfToken string) *http.Request {
	return withValue(r, csrfTokenKey, csrfToken)
}

func SetCSPNonce(r *http.Request, nonce string) *http.Request {
	return withValue(r, cspNonceKey, nonce)
}
