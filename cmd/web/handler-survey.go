package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/myrjola/survey/internal/contexthelpers"
	"github.com/myrjola/survey/internal/errors"
	"github.com/myrjola/survey/internal/survey"
)

// controller returns the survey controller bound to the request by the survey middleware.
func (app *application) controller(w http.ResponseWriter, r *http.Request) (*survey.Controller, bool) {
	id := contexthelpers.SurveyID(r.Context())
	c, ok := app.surveys.Get(id)
	if !ok {
		app.serverError(w, r, errors.New("survey not found", slog.String("survey_id", id)))
		return nil, false
	}
	return c, true
}

// eventFailed handles the error of a dispatched event. It returns false when the request may continue normally.
//
// Refused transitions are not failures: the snapshot carries the alert and field message, which the next page view
// renders.
func (app *application) eventFailed(w http.ResponseWriter, r *http.Request, err error) bool {
	switch {
	case err == nil, errors.Is(err, survey.ErrValidation), errors.Is(err, survey.ErrNotLastStep):
		return false
	case errors.Is(err, survey.ErrUnknownField), errors.Is(err, survey.ErrUnknownOption):
		app.clientError(w, r, http.StatusBadRequest, err)
	default:
		app.serverError(w, r, err)
	}
	return true
}

// activeStep returns the definition of the step the survey currently shows.
func (app *application) activeStep(c *survey.Controller) survey.Step {
	return app.definition.Step(c.Snapshot().Step)
}

// inputActiveStep records the posted values of a free-form active step without validating or committing them.
func (app *application) inputActiveStep(ctx context.Context, c *survey.Controller, form url.Values) error {
	step := app.activeStep(c)
	if step.Kind != survey.KindFreeForm {
		return nil
	}
	for _, f := range step.Fields {
		if values, ok := form[f.Name]; ok && len(values) > 0 {
			if _, err := c.Input(ctx, f.Name, values[0]); err != nil {
				return errors.Wrap(err, "input", slog.String("field", f.Name))
			}
		}
	}
	return nil
}

// applyActiveStep feeds the posted values of the active step to the controller the way a browser emits them: the
// radio selection or every field's input followed by its blur.
func (app *application) applyActiveStep(ctx context.Context, c *survey.Controller, form url.Values) error {
	step := app.activeStep(c)
	if step.Kind == survey.KindSingleChoice {
		if value := form.Get(step.Name); value != "" {
			if _, err := c.Select(ctx, step.Name, value); err != nil {
				return errors.Wrap(err, "select", slog.String("field", step.Name))
			}
		}
		return nil
	}
	if err := app.inputActiveStep(ctx, c, form); err != nil {
		return err
	}
	for _, f := range step.Fields {
		if _, err := c.Blur(ctx, f.Name); err != nil {
			return errors.Wrap(err, "blur", slog.String("field", f.Name))
		}
	}
	return nil
}

// awaitSettled waits for a pending auto-advance or submission to complete so that the redirect shows its outcome.
// A survey that does not settle in time is rendered in its pending state.
func (app *application) awaitSettled(ctx context.Context, c *survey.Controller) {
	ctx, cancel := context.WithTimeout(ctx, app.settleTimeout)
	defer cancel()
	if _, err := c.Await(ctx, survey.Snapshot.Settled); err != nil {
		app.logger.LogAttrs(ctx, slog.LevelDebug, "survey not settled", errors.SlogError(err))
	}
}

func (app *application) showSurvey(w http.ResponseWriter, r *http.Request) {
	c, ok := app.controller(w, r)
	if !ok {
		return
	}
	app.render(w, r, http.StatusOK, "survey", newSurveyTemplateData(r, c.Snapshot()))
}

func (app *application) surveyNext(w http.ResponseWriter, r *http.Request) {
	c, ok := app.controller(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		app.clientError(w, r, http.StatusBadRequest, errors.Wrap(err, "parse form"))
		return
	}
	ctx := r.Context()
	if err := app.applyActiveStep(ctx, c, r.PostForm); app.eventFailed(w, r, err) {
		return
	}
	if _, err := c.Next(ctx); app.eventFailed(w, r, err) {
		return
	}
	redirectToSurvey(w, r)
}

func (app *application) surveyPrevious(w http.ResponseWriter, r *http.Request) {
	c, ok := app.controller(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		app.clientError(w, r, http.StatusBadRequest, errors.Wrap(err, "parse form"))
		return
	}
	// Typed values survive going back, they are validated when the step is left forwards.
	ctx := r.Context()
	if err := app.inputActiveStep(ctx, c, r.PostForm); app.eventFailed(w, r, err) {
		return
	}
	if _, err := c.Previous(ctx); app.eventFailed(w, r, err) {
		return
	}
	redirectToSurvey(w, r)
}

// surveySelect checks the posted option of the active step and waits for the auto-advance.
func (app *application) surveySelect(w http.ResponseWriter, r *http.Request) {
	c, ok := app.controller(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		app.clientError(w, r, http.StatusBadRequest, errors.Wrap(err, "parse form"))
		return
	}
	ctx := r.Context()
	if app.activeStep(c).Kind != survey.KindSingleChoice {
		redirectToSurvey(w, r)
		return
	}
	if err := app.applyActiveStep(ctx, c, r.PostForm); app.eventFailed(w, r, err) {
		return
	}
	app.awaitSettled(ctx, c)
	redirectToSurvey(w, r)
}

type fieldResponse struct {
	Field   string `json:"field"`
	Value   string `json:"value"`
	Message string `json:"message"`
}

// surveyField records a field value and reports its live check when the input loses focus.
func (app *application) surveyField(w http.ResponseWriter, r *http.Request) {
	c, ok := app.controller(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		app.clientError(w, r, http.StatusBadRequest, errors.Wrap(err, "parse form"))
		return
	}
	var (
		ctx   = r.Context()
		field = r.PostForm.Get("field")
	)
	if _, err := c.Input(ctx, field, r.PostForm.Get("value")); app.eventFailed(w, r, err) {
		return
	}
	snapshot, err := c.Blur(ctx, field)
	if app.eventFailed(w, r, err) {
		return
	}

	resp := fieldResponse{Field: field, Value: snapshot.Record[field], Message: ""}
	for _, step := range snapshot.Steps {
		for _, f := range step.Fields {
			if f.Name == field {
				resp.Value = f.Value
				resp.Message = f.Message
			}
		}
	}
	w.Header().Set("Content-Type", "application/json")
	if err = json.NewEncoder(w).Encode(resp); err != nil {
		app.logger.LogAttrs(ctx, slog.LevelError, "encode field response", errors.SlogError(err))
	}
}

// surveySubmit commits the last step and waits for the submission outcome.
func (app *application) surveySubmit(w http.ResponseWriter, r *http.Request) {
	c, ok := app.controller(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		app.clientError(w, r, http.StatusBadRequest, errors.Wrap(err, "parse form"))
		return
	}
	ctx := r.Context()
	if err := app.applyActiveStep(ctx, c, r.PostForm); app.eventFailed(w, r, err) {
		return
	}
	snapshot, err := c.Submit(ctx)
	if app.eventFailed(w, r, err) {
		return
	}
	if snapshot.State == survey.StateSubmitting {
		app.awaitSettled(ctx, c)
	}
	redirectToSurvey(w, r)
}
