// Package adapter translates the identity provider's person payload into
// prefill values: it formats heterogeneous nested attribute shapes into
// display strings and decides which values are locked read-only.
package adapter

import (
	"log/slog"

	"formgate/internal/identity/attr"
)

// Source flags who vouches for an attribute value in the provider's payload.
type Source string

const (
	SourceGovtVerified  Source = "1"
	SourceUserProvided  Source = "2"
	SourceNotApplicable Source = "3"
	SourceProviderLogin Source = "4"
)

// BasicField is a value-only attribute (name, dates, passport number).
type BasicField struct {
	Value       string `json:"value"`
	Source      Source `json:"source"`
	Unavailable bool   `json:"unavailable,omitempty"`
}

// CodedField is a code-plus-description attribute (sex, race, nationality).
// Display always uses the description, never the code.
type CodedField struct {
	Code        string `json:"code"`
	Description string `json:"desc"`
	Source      Source `json:"source"`
	Unavailable bool   `json:"unavailable,omitempty"`
}

// PhoneField is a phone number split into international parts.
type PhoneField struct {
	Prefix      string `json:"prefix"`
	AreaCode    string `json:"areacode"`
	Number      string `json:"nbr"`
	Source      Source `json:"source"`
	Unavailable bool   `json:"unavailable,omitempty"`
}

// AddressType discriminates the two address payload shapes.
type AddressType string

const (
	AddressStructured   AddressType = "SG"
	AddressUnstructured AddressType = "Unformatted"
)

// AddressField is either a fully structured local address or a two-line
// unstructured foreign one, discriminated by Type.
type AddressField struct {
	Type        AddressType `json:"type"`
	Building    string      `json:"building,omitempty"`
	Block       string      `json:"block,omitempty"`
	Street      string      `json:"street,omitempty"`
	Floor       string      `json:"floor,omitempty"`
	Unit        string      `json:"unit,omitempty"`
	Country     string      `json:"country,omitempty"`
	Postal      string      `json:"postal,omitempty"`
	Line1       string      `json:"line1,omitempty"`
	Line2       string      `json:"line2,omitempty"`
	Source      Source      `json:"source"`
	Unavailable bool        `json:"unavailable,omitempty"`
}

// ListEntry is one element of a list-shaped attribute such as vehicle numbers.
type ListEntry struct {
	Value       string `json:"value"`
	Source      Source `json:"source"`
	Unavailable bool   `json:"unavailable,omitempty"`
}

// OccupationField carries either a coded occupation or free text, depending on
// the respondent's residency class.
type OccupationField struct {
	Code        string `json:"code,omitempty"`
	Description string `json:"desc,omitempty"`
	Value       string `json:"value,omitempty"`
	Source      Source `json:"source"`
	Unavailable bool   `json:"unavailable,omitempty"`
}

// PersonPayload mirrors the provider's person JSON, one typed field per
// external attribute. Pointers distinguish absent attributes from zero ones.
type PersonPayload struct {
	NationalID        *BasicField      `json:"uinfin,omitempty"`
	Name              *BasicField      `json:"name,omitempty"`
	Sex               *CodedField      `json:"sex,omitempty"`
	DateOfBirth       *BasicField      `json:"dob,omitempty"`
	Race              *CodedField      `json:"race,omitempty"`
	Nationality       *CodedField      `json:"nationality,omitempty"`
	BirthCountry      *CodedField      `json:"birthcountry,omitempty"`
	ResidentialStatus *CodedField      `json:"residentialstatus,omitempty"`
	Dialect           *CodedField      `json:"dialect,omitempty"`
	HousingType       *CodedField      `json:"housingtype,omitempty"`
	HdbType           *CodedField      `json:"hdbtype,omitempty"`
	PassportNumber    *BasicField      `json:"passportnumber,omitempty"`
	PassportExpiry    *BasicField      `json:"passportexpirydate,omitempty"`
	MaritalStatus     *CodedField      `json:"marital,omitempty"`
	CountryOfMarriage *CodedField      `json:"countryofmarriage,omitempty"`
	MarriageCertNo    *BasicField      `json:"marriagecertno,omitempty"`
	MarriageDate      *BasicField      `json:"marriagedate,omitempty"`
	DivorceDate       *BasicField      `json:"divorcedate,omitempty"`
	RegisteredAddress *AddressField    `json:"regadd,omitempty"`
	Occupation        *OccupationField `json:"occupation,omitempty"`
	Employment        *BasicField      `json:"employment,omitempty"`
	Vehicles          []ListEntry      `json:"vehicles,omitempty"`
	PassStatus        *BasicField      `json:"passstatus,omitempty"`
	PassExpiryDate    *BasicField      `json:"passexpirydate,omitempty"`
	MobileNo          *PhoneField      `json:"mobileno,omitempty"`
}

// PersonData wraps one respondent's payload and answers prefill questions
// about it. It is transient per request and never persisted.
type PersonData struct {
	payload PersonPayload
	logger  *slog.Logger
}

// NewPersonData wraps a decoded payload. A nil logger falls back to
// slog.Default.
func NewPersonData(payload PersonPayload, logger *slog.Logger) *PersonData {
	if logger == nil {
		logger = slog.Default()
	}
	return &PersonData{payload: payload, logger: logger}
}

// NationalID returns the provider-asserted respondent identifier, or "" when
// the provider withheld it.
func (p *PersonData) NationalID() string {
	if p.payload.NationalID == nil {
		return ""
	}
	return p.payload.NationalID.Value
}

// FieldValueForAttr resolves an internal attribute binding to its formatted
// display value and read-only decision in one step.
func (p *PersonData) FieldValueForAttr(a attr.Internal) (value string, readOnly bool) {
	ext := attr.ToExternal(a)
	value = p.FormatValue(ext)
	return value, p.IsReadOnly(ext, value)
}
