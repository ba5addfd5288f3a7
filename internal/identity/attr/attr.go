// Package attr defines the two attribute taxonomies the prefill pipeline
// bridges: the internal enum used by form field bindings, and the external
// names the national identity provider uses in its consent scopes and person
// payloads.
package attr

import "fmt"

// Internal is an attribute as referenced by a form field binding.
type Internal string

const (
	Name               Internal = "name"
	Sex                Internal = "sex"
	DateOfBirth        Internal = "dob"
	Race               Internal = "race"
	Nationality        Internal = "nationality"
	BirthCountry       Internal = "birthcountry"
	ResidentialStatus  Internal = "residentialstatus"
	Dialect            Internal = "dialect"
	HousingType        Internal = "housingtype"
	HdbType            Internal = "hdbtype"
	PassportNumber     Internal = "passportnumber"
	PassportExpiryDate Internal = "passportexpirydate"
	Marital            Internal = "marital"
	CountryOfMarriage  Internal = "countryofmarriage"
	MarriageCertNo     Internal = "marriagecertno"
	MarriageDate       Internal = "marriagedate"
	DivorceDate        Internal = "divorcedate"
	RegisteredAddress  Internal = "regadd"
	Occupation         Internal = "occupation"
	Employment         Internal = "employment"
	VehicleNo          Internal = "vehno"
	WorkpassStatus     Internal = "workpassstatus"
	WorkpassExpiryDate Internal = "workpassexpirydate"
	MobileNo           Internal = "mobileno"
)

// All lists every internal attribute; used for consent scope expansion and
// exhaustiveness tests.
var All = []Internal{
	Name, Sex, DateOfBirth, Race, Nationality, BirthCountry, ResidentialStatus,
	Dialect, HousingType, HdbType, PassportNumber, PassportExpiryDate, Marital,
	CountryOfMarriage, MarriageCertNo, MarriageDate, DivorceDate,
	RegisteredAddress, Occupation, Employment, VehicleNo, WorkpassStatus,
	WorkpassExpiryDate, MobileNo,
}

// IsValid reports whether a is a known internal attribute.
func (a Internal) IsValid() bool {
	switch a {
	case Name, Sex, DateOfBirth, Race, Nationality, BirthCountry,
		ResidentialStatus, Dialect, HousingType, HdbType, PassportNumber,
		PassportExpiryDate, Marital, CountryOfMarriage, MarriageCertNo,
		MarriageDate, DivorceDate, RegisteredAddress, Occupation, Employment,
		VehicleNo, WorkpassStatus, WorkpassExpiryDate, MobileNo:
		return true
	}
	return false
}

// External is an attribute name in the identity provider's taxonomy, used both
// as a consent scope and as a key in the person payload.
type External string

const (
	ExtName              External = "name"
	ExtSex               External = "sex"
	ExtDateOfBirth       External = "dob"
	ExtRace              External = "race"
	ExtNationality       External = "nationality"
	ExtBirthCountry      External = "birthcountry"
	ExtResidentialStatus External = "residentialstatus"
	ExtDialect           External = "dialect"
	ExtHousingType       External = "housingtype"
	ExtHdbType           External = "hdbtype"
	ExtPassportNumber    External = "passportnumber"
	ExtPassportExpiry    External = "passportexpirydate"
	ExtMaritalStatus     External = "marital"
	ExtCountryOfMarriage External = "countryofmarriage"
	ExtMarriageCertNo    External = "marriagecertno"
	ExtMarriageDate      External = "marriagedate"
	ExtDivorceDate       External = "divorcedate"
	ExtRegisteredAddress External = "regadd"
	ExtOccupation        External = "occupation"
	ExtEmployment        External = "employment"
	ExtVehicles          External = "vehicles"
	ExtPassStatus        External = "passstatus"
	ExtPassExpiryDate    External = "passexpirydate"
	ExtMobileNo          External = "mobileno"
	// ExtNationalID is never bound to a form field but is always requested so
	// the respondent identity can be asserted alongside the form attributes.
	ExtNationalID External = "uinfin"
)

// ToExternal maps an internal attribute to the provider's name for it. The
// mapping is explicit rather than a pass-through because the provider renamed
// several attributes (work-pass status and expiry became "pass" attributes,
// vehicle numbers live under "vehicles"). An unmapped internal value is a
// programming error and panics.
func ToExternal(a Internal) External {
	switch a {
	// Renamed between the internal enum and the provider taxonomy.
	case WorkpassStatus:
		return ExtPassStatus
	case WorkpassExpiryDate:
		return ExtPassExpiryDate
	case VehicleNo:
		return ExtVehicles
	// Unchanged names.
	case Name:
		return ExtName
	case Sex:
		return ExtSex
	case DateOfBirth:
		return ExtDateOfBirth
	case Race:
		return ExtRace
	case Nationality:
		return ExtNationality
	case BirthCountry:
		return ExtBirthCountry
	case ResidentialStatus:
		return ExtResidentialStatus
	case Dialect:
		return ExtDialect
	case HousingType:
		return ExtHousingType
	case HdbType:
		return ExtHdbType
	case PassportNumber:
		return ExtPassportNumber
	case PassportExpiryDate:
		return ExtPassportExpiry
	case Marital:
		return ExtMaritalStatus
	case CountryOfMarriage:
		return ExtCountryOfMarriage
	case MarriageCertNo:
		return ExtMarriageCertNo
	case MarriageDate:
		return ExtMarriageDate
	case DivorceDate:
		return ExtDivorceDate
	case RegisteredAddress:
		return ExtRegisteredAddress
	case Occupation:
		return ExtOccupation
	case Employment:
		return ExtEmployment
	case MobileNo:
		return ExtMobileNo
	}
	panic(fmt.Sprintf("attr: no external mapping for internal attribute %q", a))
}

// ToScopes maps internal attributes to consent scopes, always appending the
// national-id scope so consent covers asserting the respondent's identity.
func ToScopes(attrs []Internal) []External {
	scopes := make([]External, 0, len(attrs)+1)
	for _, a := range attrs {
		scopes = append(scopes, ToExternal(a))
	}
	return append(scopes, ExtNationalID)
}

// DateFormatted reports whether answers for this attribute are date-shaped and
// must be normalized to ISO form before hashing or comparison.
func DateFormatted(a Internal) bool {
	switch a {
	case DateOfBirth, PassportExpiryDate, MarriageDate, DivorceDate, WorkpassExpiryDate:
		return true
	}
	return false
}
