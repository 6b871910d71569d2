package main

import (
	"net/http"
	"time"

	"github.com/justinas/alice"
	"github.com/myrjola/survey/ui"
)

func (app *application) routes(defaultTimeout time.Duration) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("GET /static/", cacheForeverHeaders(http.FileServerFS(ui.Files)))

	mux.HandleFunc("GET /api/healthy", app.healthy)

	session := alice.New(app.sessionManager.LoadAndSave, noSurf, commonContext, app.survey)

	mux.Handle("GET /{$}", session.ThenFunc(app.showSurvey))
	mux.Handle("POST /survey/next", session.ThenFunc(app.surveyNext))
	mux.Handle("POST /survey/previous", session.ThenFunc(app.surveyPrevious))
	mux.Handle("POST /survey/select", session.ThenFunc(app.surveySelect))
	mux.Handle("POST /survey/field", session.ThenFunc(app.surveyField))
	mux.Handle("POST /survey/submit", session.ThenFunc(app.surveySubmit))

	common := alice.New(app.recoverPanic, app.logRequest, app.cspNonce, secureHeaders)
	return common.Then(timeoutHandler(mux, defaultTimeout))
}
