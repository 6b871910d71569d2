package survey

import (
	"log/slog"
	"regexp"

	"github.com/myrjola/survey/internal/errors"
)

// Kind tells how a step collects its answer.
type Kind string

const (
	// KindSingleChoice steps require exactly one option of a mutually exclusive group.
	KindSingleChoice Kind = "single-choice"
	// KindFreeForm steps hold one or more text or contact fields with native constraints.
	KindFreeForm Kind = "free-form"
)

// FieldType mirrors the native input types the form renders.
type FieldType string

const (
	FieldTypeText     FieldType = "text"
	FieldTypeEmail    FieldType = "email"
	FieldTypeTel      FieldType = "tel"
	FieldTypeTextarea FieldType = "textarea"
)

// Option is one selectable answer of a single-choice step.
type Option struct {
	Value string
	Label string
}

// Field is a free-form input together with its declared constraints.
type Field struct {
	Name        string
	Label       string
	Type        FieldType
	Required    bool
	Pattern     string
	MaxLength   int
	Placeholder string
	// Postcode enables live upper-casing and the UK postcode check on blur.
	Postcode bool

	pattern *regexp.Regexp
}

// Step is one page of the survey.
type Step struct {
	Title string
	Kind  Kind
	// Name is the answer key of a single-choice step.
	Name    string
	Options []Option
	Fields  []Field
}

// FieldNames returns the answer keys this step writes on commit.
func (s Step) FieldNames() []string {
	if s.Kind == KindSingleChoice {
		return []string{s.Name}
	}
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// HasOption reports whether value is one of the options of a single-choice step.
func (s Step) HasOption(value string) bool {
	for _, o := range s.Options {
		if o.Value == value {
			return true
		}
	}
	return false
}

// Definition is the immutable, validated sequence of steps.
type Definition struct {
	steps []Step
	// owner maps each field name to its 1-indexed step.
	owner map[string]int
	// columns lists every answer key in step order.
	columns []string
}

var (
	ErrInvalidDefinition = errors.NewSentinel("invalid survey definition")
)

// NewDefinition validates steps and returns a Definition.
//
// Field names must be unique across the whole sequence, single-choice steps need a name and options and free-form
// steps need at least one field. Patterns are compiled with implicit anchoring like the HTML pattern attribute.
func NewDefinition(steps []Step) (*Definition, error) {
	if len(steps) == 0 {
		return nil, errors.Wrap(ErrInvalidDefinition, "no steps")
	}
	d := &Definition{
		steps: make([]Step, len(steps)),
		owner: make(map[string]int),
	}
	for i, step := range steps {
		number := i + 1
		switch step.Kind {
		case KindSingleChoice:
			if step.Name == "" || len(step.Options) == 0 {
				return nil, errors.Wrap(ErrInvalidDefinition, "single-choice step needs a name and options",
					slog.Int("step", number))
			}
		case KindFreeForm:
			if len(step.Fields) == 0 {
				return nil, errors.Wrap(ErrInvalidDefinition, "free-form step needs fields", slog.Int("step", number))
			}
			fields := make([]Field, len(step.Fields))
			for j, f := range step.Fields {
				if f.Name == "" {
					return nil, errors.Wrap(ErrInvalidDefinition, "field without name", slog.Int("step", number))
				}
				if f.Type == "" {
					f.Type = FieldTypeText
				}
				if f.Pattern != "" {
					re, err := regexp.Compile("^(?:" + f.Pattern + ")$")
					if err != nil {
						return nil, errors.Wrap(ErrInvalidDefinition, "compile pattern",
							slog.String("field", f.Name), slog.String("pattern", f.Pattern))
					}
					f.pattern = re
				}
				fields[j] = f
			}
			step.Fields = fields
		default:
			return nil, errors.Wrap(ErrInvalidDefinition, "unknown step kind",
				slog.Int("step", number), slog.String("kind", string(step.Kind)))
		}
		for _, name := range step.FieldNames() {
			if name == TimestampKey {
				return nil, errors.Wrap(ErrInvalidDefinition, "field name is reserved", slog.String("field", name))
			}
			if previous, ok := d.owner[name]; ok {
				return nil, errors.Wrap(ErrInvalidDefinition, "field name reused",
					slog.String("field", name), slog.Int("step", number), slog.Int("first_step", previous))
			}
			d.owner[name] = number
			d.columns = append(d.columns, name)
		}
		d.steps[i] = step
	}
	return d, nil
}

// Len returns the number of steps N.
func (d *Definition) Len() int {
	return len(d.steps)
}

// Step returns the step with the 1-indexed number n.
func (d *Definition) Step(n int) Step {
	return d.steps[n-1]
}

// StepOf returns the 1-indexed step owning the field name, or 0.
func (d *Definition) StepOf(name string) int {
	return d.owner[name]
}

// Field looks up a free-form field by name.
func (d *Definition) Field(name string) (Field, bool) {
	n := d.owner[name]
	if n == 0 {
		return Field{}, false //nolint:exhaustruct // zero value signals absence.
	}
	for _, f := range d.steps[n-1].Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false //nolint:exhaustruct // single-choice names are not fields.
}

// FieldNames returns every answer key in step order, excluding the timestamp.
func (d *Definition) FieldNames() []string {
	return append([]string(nil), d.columns...)
}

// RecordColumns returns the fixed column order of a stored record: the timestamp followed by [Definition.FieldNames].
func (d *Definition) RecordColumns() []string {
	return append([]string{TimestampKey}, d.columns...)
}
