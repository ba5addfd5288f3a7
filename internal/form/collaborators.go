package form

import "context"

// Lookup resolves a form schema by id. Implementations return
// sentinel.ErrNotFound for unknown forms.
type Lookup interface {
	FindByID(ctx context.Context, formID string) (*Form, error)
}

// FieldValidator checks one answer against its field definition. A nil error
// means the answer is acceptable.
type FieldValidator interface {
	Validate(field Field, answer string) error
}

// LogicEvaluator applies the form's conditional logic to a submission.
// VisibleFieldIDs returns the ids not hidden by logic; PreventSubmit reports
// whether a logic rule blocks the submission outright.
type LogicEvaluator interface {
	VisibleFieldIDs(form *Form, responses []Response) map[string]struct{}
	PreventSubmit(form *Form, responses []Response) bool
}
