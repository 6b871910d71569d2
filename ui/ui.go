// Package ui holds the page templates and static assets of the survey front end.
package ui

import "embed"

// Files exposes templates/ and static/ for rendering and HTTP serving.
//
//go:embed templates static
var Files embed.FS
