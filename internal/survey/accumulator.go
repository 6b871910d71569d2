package survey

import (
	"log/slog"

	"github.com/myrjola/survey/internal/errors"
)

// FieldMessage is a field-level validation message attached to the offending field.
type FieldMessage struct {
	Field   string
	Message string
}

// Validation is the outcome of validating the active step.
type Validation struct {
	Step  int
	Valid bool
	// Alert is set for single-choice steps without selection.
	Alert string
	// First is the first invalid field in declaration order, the one whose message is reported.
	First *FieldMessage
	// Invalid holds the message of every invalid field since all fields are checked.
	Invalid map[string]string
}

// Err returns a [*ValidationError] for invalid results and nil otherwise.
func (v Validation) Err() error {
	switch {
	case v.Valid:
		return nil
	case v.Alert != "":
		return &ValidationError{Step: v.Step, Field: "", Message: v.Alert}
	case v.First != nil:
		return &ValidationError{Step: v.Step, Field: v.First.Field, Message: v.First.Message}
	default:
		return &ValidationError{Step: v.Step, Field: "", Message: "invalid"}
	}
}

// Accumulator holds the live input state of every step and the committed AnswerRecord.
type Accumulator struct {
	def        *Definition
	record     AnswerRecord
	selections map[string]string
	values     map[string]string
	custom     map[string]string
}

func NewAccumulator(def *Definition) *Accumulator {
	return &Accumulator{
		def:        def,
		record:     AnswerRecord{},
		selections: map[string]string{},
		values:     map[string]string{},
		custom:     map[string]string{},
	}
}

// Select checks the option value of the single-choice group name. An empty value clears the selection.
func (a *Accumulator) Select(name, value string) error {
	n := a.def.StepOf(name)
	if n == 0 || a.def.Step(n).Kind != KindSingleChoice {
		return errors.Wrap(ErrUnknownField, "select", slog.String("field", name))
	}
	if value == "" {
		delete(a.selections, name)
		return nil
	}
	if !a.def.Step(n).HasOption(value) {
		return errors.Wrap(ErrUnknownOption, "select", slog.String("field", name), slog.String("value", value))
	}
	a.selections[name] = value
	return nil
}

// Input sets the current value of a field. Postcode fields are upper-cased as typed. Inputs naming a single-choice
// group behave like [Accumulator.Select].
func (a *Accumulator) Input(name, value string) error {
	n := a.def.StepOf(name)
	if n == 0 {
		return errors.Wrap(ErrUnknownField, "input", slog.String("field", name))
	}
	if a.def.Step(n).Kind == KindSingleChoice {
		return a.Select(name, value)
	}
	f, _ := a.def.Field(name)
	if f.Postcode {
		value = NormalizePostcode(value)
	}
	a.values[name] = value
	return nil
}

// Blur runs the focus-loss checks of a field and returns the custom validity message it reports, if any.
func (a *Accumulator) Blur(name string) (string, error) {
	f, ok := a.def.Field(name)
	if !ok {
		return "", errors.Wrap(ErrUnknownField, "blur", slog.String("field", name))
	}
	if !f.Postcode {
		return "", nil
	}
	message := PostcodeValidity(a.values[name])
	if message == "" {
		delete(a.custom, name)
	} else {
		a.custom[name] = message
	}
	return message, nil
}

// Value returns the current input value or selection of a field.
func (a *Accumulator) Value(name string) string {
	if v, ok := a.selections[name]; ok {
		return v
	}
	return a.values[name]
}

// CustomValidity returns the custom validity message currently attached to a field.
func (a *Accumulator) CustomValidity(name string) string {
	return a.custom[name]
}

// ValidateActive validates the inputs of step without touching any state.
func (a *Accumulator) ValidateActive(step int) Validation {
	s := a.def.Step(step)
	result := Validation{Step: step, Valid: true, Alert: "", First: nil, Invalid: nil}
	if s.Kind == KindSingleChoice {
		if _, ok := a.selections[s.Name]; !ok {
			result.Valid = false
			result.Alert = SelectOptionAlert
		}
		return result
	}
	for _, f := range s.Fields {
		message := checkField(f, a.values[f.Name], a.custom[f.Name])
		if message == "" {
			continue
		}
		if result.Invalid == nil {
			result.Invalid = map[string]string{}
		}
		result.Invalid[f.Name] = message
		if result.First == nil {
			result.First = &FieldMessage{Field: f.Name, Message: message}
		}
		result.Valid = false
	}
	return result
}

// CommitActive writes the values of step into the record, overwriting earlier commits of the same keys.
//
// It must only follow a successful [Accumulator.ValidateActive] of the same step.
func (a *Accumulator) CommitActive(step int) {
	s := a.def.Step(step)
	if s.Kind == KindSingleChoice {
		if v, ok := a.selections[s.Name]; ok {
			a.record[s.Name] = v
		}
		return
	}
	for _, f := range s.Fields {
		a.record[f.Name] = a.values[f.Name]
	}
}

// Record returns a copy of the committed answers.
func (a *Accumulator) Record() AnswerRecord {
	return a.record.Clone()
}

func (a *Accumulator) stamp(timestamp string) {
	a.record[TimestampKey] = timestamp
}

func (a *Accumulator) unstamp() {
	delete(a.record, TimestampKey)
}
