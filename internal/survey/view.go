package survey

// OptionView is a rendered option of a single-choice step.
type OptionView struct {
	Value   string
	Label   string
	Checked bool
}

// FieldView is a rendered free-form field.
type FieldView struct {
	Field
	Value string
	// Message is the reported validation message. Only one field carries it at a time.
	Message string
	Invalid bool
}

// StepView is a rendered step. Exactly one StepView of a snapshot is Visible.
type StepView struct {
	Number  int
	Title   string
	Kind    Kind
	Name    string
	Visible bool
	Options []OptionView
	Fields  []FieldView
}

// Snapshot is the observable presentation state after an event was processed.
type Snapshot struct {
	// Version increases with every processed event.
	Version  uint64
	Step     int
	Total    int
	Progress float64
	Steps    []StepView
	Controls Controls

	SubmitLabel    string
	SubmitDisabled bool
	State          SubmissionState

	// FormVisible is false once the submission succeeded, ThankYouVisible is its complement.
	FormVisible     bool
	ThankYouVisible bool

	// Alert is the blocking alert produced by the latest user event or submission outcome.
	Alert string
	// Reported is the field-level message currently shown.
	Reported *FieldMessage
	Invalid  map[string]string

	// Record is a copy of the committed answers.
	Record AnswerRecord

	// PendingAdvance is true while an auto-advance is scheduled.
	PendingAdvance bool
	// Scroll increases whenever the step container should be scrolled into view.
	Scroll int
}

// VisibleSteps returns the numbers of the visible steps.
func (s Snapshot) VisibleSteps() []int {
	var visible []int
	for _, step := range s.Steps {
		if step.Visible {
			visible = append(visible, step.Number)
		}
	}
	return visible
}

// ActiveStep returns the visible step.
func (s Snapshot) ActiveStep() StepView {
	return s.Steps[s.Step-1]
}

// Settled reports whether no auto-advance or submission is pending.
func (s Snapshot) Settled() bool {
	return !s.PendingAdvance && s.State != StateSubmitting
}

func (c *Controller) buildSnapshot() Snapshot {
	def := c.cfg.Definition
	steps := make([]StepView, def.Len())
	for i := range steps {
		number := i + 1
		step := def.Step(number)
		view := StepView{
			Number:  number,
			Title:   step.Title,
			Kind:    step.Kind,
			Name:    step.Name,
			Visible: c.nav.Visible(number),
			Options: nil,
			Fields:  nil,
		}
		if step.Kind == KindSingleChoice {
			selected := c.acc.Value(step.Name)
			view.Options = make([]OptionView, len(step.Options))
			for j, o := range step.Options {
				view.Options[j] = OptionView{Value: o.Value, Label: o.Label, Checked: o.Value == selected}
			}
		} else {
			view.Fields = make([]FieldView, len(step.Fields))
			for j, f := range step.Fields {
				_, invalid := c.invalid[f.Name]
				fv := FieldView{Field: f, Value: c.acc.Value(f.Name), Message: "", Invalid: invalid}
				if c.reported != nil && c.reported.Field == f.Name {
					fv.Message = c.reported.Message
				}
				view.Fields[j] = fv
			}
		}
		steps[i] = view
	}

	var reported *FieldMessage
	if c.reported != nil {
		r := *c.reported
		reported = &r
	}
	invalid := make(map[string]string, len(c.invalid))
	for k, v := range c.invalid {
		invalid[k] = v
	}
	success := c.sub.State() == StateSuccess

	return Snapshot{
		Version:         c.version,
		Step:            c.nav.Current(),
		Total:           c.nav.Total(),
		Progress:        c.nav.Progress(),
		Steps:           steps,
		Controls:        c.nav.Controls(),
		SubmitLabel:     c.sub.Label(),
		SubmitDisabled:  c.sub.Disabled(),
		State:           c.sub.State(),
		FormVisible:     !success,
		ThankYouVisible: success,
		Alert:           c.alert,
		Reported:        reported,
		Invalid:         invalid,
		Record:          c.acc.Record(),
		PendingAdvance:  c.pendingFrom != 0,
		Scroll:          c.scroll,
	}
}
