package canon

// Domain names of the built-in rule tables.
const (
	DomainMunicipality = "municipality"
	DomainParty        = "party"
	DomainJurisdiction = "jurisdiction"
	DomainLawsuitType  = "lawsuit_type"
	DomainProfession   = "profession"
)

// NotInformed is the sentinel label for missing input.
const NotInformed = "NOT_INFORMED"

// Lawsuit type categories.
const (
	LawsuitCivil          = "CIVIL"
	LawsuitSocialSecurity = "SOCIAL_SECURITY"
	LawsuitLabor          = "LABOR"
	LawsuitOther          = "OTHER"
)

func mustGet(domain string) *Canonicalizer {
	c, err := Default().Get(domain)
	if err != nil {
		panic(err)
	}
	return c
}

// CanonicalizeMunicipality maps a city field to a Sergipe municipality
// name. Missing input yields "", unmatched input its normalized form.
func CanonicalizeMunicipality(v any) string {
	return mustGet(DomainMunicipality).Canonicalize(v)
}

// IsKnownMunicipality reports whether name is one of the 75 municipalities
// kept for geographic aggregation.
func IsKnownMunicipality(name string) bool {
	return mustGet(DomainMunicipality).IsKnown(name)
}

// CanonicalizeParty maps a defendant or creditor name to an institution.
func CanonicalizeParty(v any) string {
	return mustGet(DomainParty).Canonicalize(v)
}

// CanonicalizeJurisdiction maps a court or forum name to its comarca.
func CanonicalizeJurisdiction(v any) string {
	return mustGet(DomainJurisdiction).Canonicalize(v)
}

// ClassifyLawsuitType returns one of CIVIL, SOCIAL_SECURITY, LABOR, OTHER.
func ClassifyLawsuitType(v any) string {
	return mustGet(DomainLawsuitType).Canonicalize(v)
}

// CanonicalizeProfession corrects typos, expands abbreviations and
// collapses a profession into its occupational category.
func CanonicalizeProfession(v any) string {
	return mustGet(DomainProfession).Canonicalize(v)
}
