package main

import (
	"net/http"
	"time"
)

// timeoutBody reloads the survey after a moment. Inline scripts would be blocked by the nonce based CSP.
const timeoutBody = `<!DOCTYPE html>
<html lang="en-GB">
<head>
    <meta charset="utf-8">
    <meta http-equiv="refresh" content="3; url=/">
    <title>Timeout - Abacus Energy Solutions</title>
</head>
<body>
<h1>This is taking longer than expected</h1>
<p>Your answers are kept. <a href="/">Return to the survey</a>.</p>
</body>
</html>
`

// timeoutHandler responds with a 503 Service Unavailable error when the handler does not meet the deadline.
func timeoutHandler(h http.Handler, defaultTimeout time.Duration) http.Handler {
	// We want the timeout to be a little shorter than the server's read timeout so that the
	// timeout handler has a chance to respond before the server closes the connection.
	httpHandlerTimeout := defaultTimeout - 500*time.Millisecond //nolint:mnd // 500ms
	return http.TimeoutHandler(h, httpHandlerTimeout, timeoutBody)
}
