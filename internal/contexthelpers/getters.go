// Package contexthelpers stores request-scoped values on the request context.
package contexthelpers

import (
	"context"
)

type contextKey int

const (
	surveyIDKey contextKey = iota
	currentPathKey
	csrfTokenKey
	cspNonceKey
)

// stringValue returns the string stored under key or "" when the middleware that sets it did not run.
func stringValue(ctx context.Context, key contextKey) string {
	v, _ := ctx.Value(key).(string)
	return v
}

// SurveyID returns the id of the survey controller bound to the visitor's session.
func SurveyID(ctx context.Context) string {
	return stringValue(ctx, surveyIDKey)
}

func CurrentPath(ctx context.Context) string {
	return stringValue(ctx, currentPathKey)
}

func CSRFToken(ctx context.Context) string {
	return stringValue(ctx, csrfTokenKey)
}

// CSPNonce returns the nonce inline scripts and styles must carry on this request.
func CSPNonce(ctx context.Context) string {
	return stringValue(ctx, cspNonceKey)
}
