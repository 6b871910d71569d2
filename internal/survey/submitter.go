package survey

import (
	"context"
	"fmt"
)

// SubmissionState is the state of the submission lifecycle.
type SubmissionState string

const (
	StateIdle       SubmissionState = "idle"
	StateSubmitting SubmissionState = "submitting"
	StateSuccess    SubmissionState = "success"
	// StateFailed is transient: a failed attempt reports its alert and returns to [StateIdle].
	StateFailed SubmissionState = "failed"
)

// Labels of the submit control.
const (
	SubmitLabel     = "Submit"
	SubmittingLabel = "Submitting..."
)

// Sink receives the finished AnswerRecord. A nil error means the request was dispatched, not that it was processed.
type Sink interface {
	Send(ctx context.Context, record AnswerRecord) error
}

// SinkFunc adapts a function to [Sink].
type SinkFunc func(ctx context.Context, record AnswerRecord) error

func (f SinkFunc) Send(ctx context.Context, record AnswerRecord) error {
	return f(ctx, record)
}

// Submitter tracks Idle -> Submitting -> {Success, Failed}.
type Submitter struct {
	state           SubmissionState
	lastErr         error
	fallbackContact string
}

func NewSubmitter(fallbackContact string) *Submitter {
	return &Submitter{state: StateIdle, lastErr: nil, fallbackContact: fallbackContact}
}

// Begin enters Submitting. It reports false unless the submitter is Idle, which keeps a second submission out while
// one is in flight.
func (s *Submitter) Begin() bool {
	if s.state != StateIdle {
		return false
	}
	s.state = StateSubmitting
	s.lastErr = nil
	return true
}

// Complete settles the in-flight submission. A nil err moves to Success, otherwise the failure is recorded, the
// alert naming the fallback contact is returned and the state returns to Idle so the user may retry.
func (s *Submitter) Complete(err error) string {
	if s.state != StateSubmitting {
		return ""
	}
	if err == nil {
		s.state = StateSuccess
		return ""
	}
	s.lastErr = err
	s.state = StateIdle
	return s.FailureAlert()
}

// FailureAlert is the blocking alert shown after a transport error.
func (s *Submitter) FailureAlert() string {
	return fmt.Sprintf("There was an error submitting your information. "+
		"Please try again or contact us directly at %s", s.fallbackContact)
}

func (s *Submitter) State() SubmissionState {
	return s.state
}

// LastError returns the error of the most recent failed attempt.
func (s *Submitter) LastError() error {
	return s.lastErr
}

// Disabled reports whether the submit control is disabled.
func (s *Submitter) Disabled() bool {
	return s.state == StateSubmitting
}

// Label returns the submit control label.
func (s *Submitter) Label() string {
	if s.state == StateSubmitting {
		return SubmittingLabel
	}
	return SubmitLabel
}
