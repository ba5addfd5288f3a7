package form

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// BasicValidator covers the structural checks this pipeline needs. Richer
// per-type validation belongs to the product's own validators behind the
// FieldValidator interface.
type BasicValidator struct{}

func (BasicValidator) Validate(field Field, answer string) error {
	trimmed := strings.TrimSpace(answer)
	if trimmed == "" {
		if field.Required {
			return fmt.Errorf("field %s requires an answer", field.ID)
		}
		return nil
	}
	switch field.Type {
	case TypeDate:
		if _, err := time.Parse("2006-01-02", trimmed); err != nil {
			return fmt.Errorf("field %s: answer is not a valid date", field.ID)
		}
	case TypeNumber:
		if _, err := strconv.ParseFloat(trimmed, 64); err != nil {
			return fmt.Errorf("field %s: answer is not numeric", field.ID)
		}
	}
	return nil
}

// ShowAllLogic is the evaluator for forms without conditional logic: every
// field is visible and nothing blocks submission.
type ShowAllLogic struct{}

func (ShowAllLogic) VisibleFieldIDs(f *Form, _ []Response) map[string]struct{} {
	visible := make(map[string]struct{}, len(f.Fields))
	for _, field := range f.Fields {
		visible[field.ID] = struct{}{}
	}
	return visible
}

func (ShowAllLogic) PreventSubmit(*Form, []Response) bool {
	return false
}
