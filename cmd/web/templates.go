package main

import (
	"math"
	"net/http"

	"github.com/myrjola/survey/internal/contexthelpers"
	"github.com/myrjola/survey/internal/survey"
)

type BaseTemplateData struct {
	CurrentPath string
}

func newBaseTemplateData(r *http.Request) BaseTemplateData {
	return BaseTemplateData{
		CurrentPath: contexthelpers.CurrentPath(r.Context()),
	}
}

type surveyTemplateData struct {
	BaseTemplateData
	Survey survey.Snapshot
	// ProgressPercent renders the progress indicator.
	ProgressPercent int
	// Refresh reloads the page while an auto-advance or submission is pending.
	Refresh bool
}

func newSurveyTemplateData(r *http.Request, snapshot survey.Snapshot) surveyTemplateData {
	return surveyTemplateData{
		BaseTemplateData: newBaseTemplateData(r),
		Survey:           snapshot,
		ProgressPercent:  int(math.Round(snapshot.Progress * 100)), //nolint:mnd // percent
		Refresh:          !snapshot.Settled(),
	}
}
