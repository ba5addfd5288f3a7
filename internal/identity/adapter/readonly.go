package adapter

import "formgate/internal/identity/attr"

// marriageAttrs are always left editable regardless of verification source.
// This is a policy decision covering overseas unregistered marriages, not a
// property derived from the payload.
var marriageAttrs = map[attr.External]bool{
	attr.ExtMaritalStatus:     true,
	attr.ExtMarriageDate:      true,
	attr.ExtDivorceDate:       true,
	attr.ExtCountryOfMarriage: true,
	attr.ExtMarriageCertNo:    true,
}

// IsReadOnly decides whether the prefilled field should be locked against
// edits. An empty value is always editable so the respondent can fill it in.
// List-shaped data is locked only when every entry is government-verified.
// Everything else is locked iff the record is government-verified, available,
// and not a marriage attribute.
func (p *PersonData) IsReadOnly(ext attr.External, formatted string) bool {
	if formatted == "" {
		return false
	}
	if marriageAttrs[ext] {
		return false
	}

	switch ext {
	case attr.ExtVehicles:
		return allEntriesVerified(p.payload.Vehicles)
	case attr.ExtMobileNo:
		return p.payload.MobileNo != nil &&
			!p.payload.MobileNo.Unavailable &&
			p.payload.MobileNo.Source == SourceGovtVerified
	case attr.ExtRegisteredAddress:
		return p.payload.RegisteredAddress != nil &&
			!p.payload.RegisteredAddress.Unavailable &&
			p.payload.RegisteredAddress.Source == SourceGovtVerified
	case attr.ExtOccupation:
		return p.payload.Occupation != nil &&
			!p.payload.Occupation.Unavailable &&
			p.payload.Occupation.Source == SourceGovtVerified
	case attr.ExtSex:
		return codedVerified(p.payload.Sex)
	case attr.ExtRace:
		return codedVerified(p.payload.Race)
	case attr.ExtDialect:
		return codedVerified(p.payload.Dialect)
	case attr.ExtNationality:
		return codedVerified(p.payload.Nationality)
	case attr.ExtBirthCountry:
		return codedVerified(p.payload.BirthCountry)
	case attr.ExtResidentialStatus:
		return codedVerified(p.payload.ResidentialStatus)
	case attr.ExtHousingType:
		return codedVerified(p.payload.HousingType)
	case attr.ExtHdbType:
		return codedVerified(p.payload.HdbType)
	case attr.ExtName:
		return basicVerified(p.payload.Name)
	case attr.ExtDateOfBirth:
		return basicVerified(p.payload.DateOfBirth)
	case attr.ExtPassportNumber:
		return basicVerified(p.payload.PassportNumber)
	case attr.ExtPassportExpiry:
		return basicVerified(p.payload.PassportExpiry)
	case attr.ExtEmployment:
		return basicVerified(p.payload.Employment)
	case attr.ExtPassStatus:
		return basicVerified(p.payload.PassStatus)
	case attr.ExtPassExpiryDate:
		return basicVerified(p.payload.PassExpiryDate)
	case attr.ExtNationalID:
		return basicVerified(p.payload.NationalID)
	default:
		// Unknown data shape: leave the field editable.
		p.logger.Error("unknown attribute in read-only decision", "attr", string(ext))
		return false
	}
}

func basicVerified(field *BasicField) bool {
	return field != nil && !field.Unavailable && field.Source == SourceGovtVerified
}

func codedVerified(field *CodedField) bool {
	return field != nil && !field.Unavailable && field.Source == SourceGovtVerified
}

func allEntriesVerified(entries []ListEntry) bool {
	if len(entries) == 0 {
		return false
	}
	for _, e := range entries {
		if e.Unavailable || e.Source != SourceGovtVerified {
			return false
		}
	}
	return true
}
