// Package form holds the form schema this pipeline reads, plus the
// collaborator contracts (schema lookup, field validation, logic evaluation)
// that the surrounding product supplies.
package form

import (
	"time"

	"formgate/internal/identity/attr"
)

// FieldType is the respondent-facing input kind.
type FieldType string

const (
	TypeShortText FieldType = "textfield"
	TypeMobile    FieldType = "mobile"
	TypeDate      FieldType = "date"
	TypeDropdown  FieldType = "dropdown"
	TypeHomeNo    FieldType = "homeno"
	TypeNumber    FieldType = "number"
)

// Field is one question on a form. Attribute is the identity-provider
// binding; the zero value means the field is filled by the respondent alone.
type Field struct {
	ID        string        `json:"_id"`
	Type      FieldType     `json:"fieldType"`
	Title     string        `json:"title"`
	Required  bool          `json:"required"`
	Attribute attr.Internal `json:"myInfoAttr,omitempty"`
}

// IdentityBound reports whether the field prefills from the provider.
func (f Field) IdentityBound() bool {
	return f.Attribute != ""
}

// Form is the schema slice this pipeline needs. Owner-side editing and the
// rest of the form document live elsewhere.
type Form struct {
	ID          string        `json:"_id"`
	Title       string        `json:"title"`
	ServiceID   string        `json:"esrvcId"`
	Fields      []Field       `json:"form_fields"`
	WhitelistID string        `json:"whitelistId,omitempty"`
	SessionTTL  time.Duration `json:"-"`
}

// RequestedAttrs collects the identity attributes the form's fields bind to,
// deduplicated in field order. This is the consent scope for the redirect.
func (f *Form) RequestedAttrs() []attr.Internal {
	seen := make(map[attr.Internal]bool, len(f.Fields))
	var attrs []attr.Internal
	for _, field := range f.Fields {
		if !field.IdentityBound() || seen[field.Attribute] {
			continue
		}
		seen[field.Attribute] = true
		attrs = append(attrs, field.Attribute)
	}
	return attrs
}

// IdentityEnabled reports whether any field prefills from the provider.
// Only such forms require a login and go through hash verification.
func (f *Form) IdentityEnabled() bool {
	for _, field := range f.Fields {
		if field.IdentityBound() {
			return true
		}
	}
	return false
}

// FieldByID returns the field and whether it exists.
func (f *Form) FieldByID(id string) (Field, bool) {
	for _, field := range f.Fields {
		if field.ID == id {
			return field, true
		}
	}
	return Field{}, false
}

// Response is one raw submitted answer, before annotation.
type Response struct {
	FieldID string `json:"_id"`
	Answer  string `json:"answer"`
}
