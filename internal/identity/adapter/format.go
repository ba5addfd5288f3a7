package adapter

import (
	"strings"

	"formgate/internal/identity/attr"
)

// FormatValue renders the attribute's payload shape as a display string.
// Missing, unavailable, or not-applicable data formats to "".
func (p *PersonData) FormatValue(ext attr.External) string {
	switch ext {
	case attr.ExtMobileNo:
		return formatPhone(p.payload.MobileNo)
	case attr.ExtRegisteredAddress:
		return p.formatAddress(p.payload.RegisteredAddress)
	case attr.ExtVehicles:
		return formatList(p.payload.Vehicles)
	case attr.ExtOccupation:
		return formatOccupation(p.payload.Occupation)
	case attr.ExtPassStatus:
		return formatPassStatus(p.payload.PassStatus)
	case attr.ExtSex:
		return formatCoded(p.payload.Sex)
	case attr.ExtRace:
		return formatCoded(p.payload.Race)
	case attr.ExtDialect:
		return formatCoded(p.payload.Dialect)
	case attr.ExtNationality:
		return formatCoded(p.payload.Nationality)
	case attr.ExtBirthCountry:
		return formatCoded(p.payload.BirthCountry)
	case attr.ExtResidentialStatus:
		return formatCoded(p.payload.ResidentialStatus)
	case attr.ExtHousingType:
		return formatCoded(p.payload.HousingType)
	case attr.ExtHdbType:
		return formatCoded(p.payload.HdbType)
	case attr.ExtMaritalStatus:
		return formatCoded(p.payload.MaritalStatus)
	case attr.ExtCountryOfMarriage:
		return formatCoded(p.payload.CountryOfMarriage)
	case attr.ExtName:
		return formatBasic(p.payload.Name)
	case attr.ExtDateOfBirth:
		return formatBasic(p.payload.DateOfBirth)
	case attr.ExtPassportNumber:
		return formatBasic(p.payload.PassportNumber)
	case attr.ExtPassportExpiry:
		return formatBasic(p.payload.PassportExpiry)
	case attr.ExtMarriageCertNo:
		return formatBasic(p.payload.MarriageCertNo)
	case attr.ExtMarriageDate:
		return formatBasic(p.payload.MarriageDate)
	case attr.ExtDivorceDate:
		return formatBasic(p.payload.DivorceDate)
	case attr.ExtEmployment:
		return formatBasic(p.payload.Employment)
	case attr.ExtPassExpiryDate:
		return formatBasic(p.payload.PassExpiryDate)
	case attr.ExtNationalID:
		return formatBasic(p.payload.NationalID)
	default:
		// Unknown payload shape; leave the field blank rather than guess.
		p.logger.Warn("unknown attribute in person payload", "attr", string(ext))
		return ""
	}
}

// formatPhone joins prefix, area code and number, e.g. "+65 91234567".
// All parts must be present and the record available; otherwise "".
func formatPhone(phone *PhoneField) string {
	if phone == nil || phone.Unavailable {
		return ""
	}
	if phone.Prefix == "" || phone.AreaCode == "" || phone.Number == "" {
		return ""
	}
	return phone.Prefix + phone.AreaCode + " " + phone.Number
}

// formatAddress renders a structured local address as
// "BUILDING, BLOCK STREET, #FLOOR-UNIT, COUNTRY POSTAL", or joins the two
// free-text lines of an unstructured foreign one.
func (p *PersonData) formatAddress(addr *AddressField) string {
	if addr == nil || addr.Unavailable {
		return ""
	}
	if addr.Type == AddressUnstructured {
		return strings.TrimSpace(strings.TrimSpace(addr.Line1) + " " + strings.TrimSpace(addr.Line2))
	}
	if addr.Building == "" || addr.Block == "" || addr.Street == "" ||
		addr.Floor == "" || addr.Unit == "" || addr.Country == "" || addr.Postal == "" {
		p.logger.Warn("structured address missing required parts")
		return ""
	}
	parts := []string{
		addr.Building + ",",
		addr.Block,
		addr.Street + ",",
		"#" + addr.Floor + "-" + addr.Unit + ",",
		addr.Country,
		addr.Postal,
	}
	return strings.Join(parts, " ")
}

// formatCoded returns the human-readable description, never the code.
func formatCoded(field *CodedField) string {
	if field == nil || field.Unavailable {
		return ""
	}
	return field.Description
}

func formatBasic(field *BasicField) string {
	if field == nil || field.Unavailable || field.Source == SourceNotApplicable {
		return ""
	}
	return field.Value
}

// formatList joins available entries with ", ", skipping unavailable ones.
func formatList(entries []ListEntry) string {
	values := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Unavailable || e.Value == "" {
			continue
		}
		values = append(values, e.Value)
	}
	return strings.Join(values, ", ")
}

// formatOccupation prefers the coded description and falls back to free text
// for respondents whose occupation is not coded.
func formatOccupation(occ *OccupationField) string {
	if occ == nil || occ.Unavailable {
		return ""
	}
	if occ.Description != "" {
		return occ.Description
	}
	return occ.Value
}

// formatPassStatus normalizes the provider's all-uppercase pass status values
// ("LIVE") to display case ("Live").
func formatPassStatus(field *BasicField) string {
	value := formatBasic(field)
	if value == "" {
		return ""
	}
	lower := strings.ToLower(value)
	return strings.ToUpper(lower[:1]) + lower[1:]
}
