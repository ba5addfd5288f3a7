package prefill

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"formgate/internal/form"
	"formgate/internal/identity/adapter"
	"formgate/internal/identity/attr"
)

func TestPrefill(t *testing.T) {
	person := adapter.NewPersonData(adapter.PersonPayload{
		Name:     &adapter.BasicField{Value: "TAN XIAO HUI", Source: adapter.SourceGovtVerified},
		MobileNo: &adapter.PhoneField{Prefix: "+", AreaCode: "65", Number: "91234567", Source: adapter.SourceProviderLogin},
	}, nil)

	fields := []form.Field{
		{ID: "f-name", Type: form.TypeShortText, Title: "Name", Attribute: attr.Name},
		{ID: "f-mobile", Type: form.TypeMobile, Title: "Mobile", Attribute: attr.MobileNo},
		{ID: "f-dob", Type: form.TypeDate, Title: "Date of birth", Attribute: attr.DateOfBirth},
		{ID: "f-free", Type: form.TypeShortText, Title: "Favourite colour"},
	}

	prefilled := Prefill(person, fields)
	require.Len(t, prefilled, 4)

	assert.Equal(t, "TAN XIAO HUI", prefilled[0].FieldValue)
	assert.True(t, prefilled[0].Disabled, "government-verified value locks the field")

	assert.Equal(t, "+65 91234567", prefilled[1].FieldValue)
	assert.False(t, prefilled[1].Disabled, "provider-login value stays editable")

	assert.Empty(t, prefilled[2].FieldValue, "absent attribute prefills nothing")
	assert.False(t, prefilled[2].Disabled)

	assert.Empty(t, prefilled[3].FieldValue, "unbound field passes through")
	assert.False(t, prefilled[3].Disabled)
}

func TestPrefillDoesNotMutateInput(t *testing.T) {
	person := adapter.NewPersonData(adapter.PersonPayload{
		Name: &adapter.BasicField{Value: "TAN XIAO HUI", Source: adapter.SourceGovtVerified},
	}, nil)
	fields := []form.Field{
		{ID: "f-name", Type: form.TypeShortText, Title: "Name", Attribute: attr.Name},
	}

	prefilled := Prefill(person, fields)
	prefilled[0].Title = "mutated"
	prefilled[0].FieldValue = "mutated"

	assert.Equal(t, "Name", fields[0].Title)
}
