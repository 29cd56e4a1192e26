package canon

import (
	"math"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
)

var allDomains = []string{DomainMunicipality, DomainParty, DomainJurisdiction, DomainLawsuitType, DomainProfession}

// fuzzInputs mixes realistic field values, fixed-label hits and junk.
func fuzzInputs(seed int64, n int) []any {
	f := gofakeit.New(seed)
	seeds := []string{
		"Sao Critovao", "Itabaianinha", "CEF - Caixa Economica Federal", "Ação Previdenciária - Benefício",
		"APOSNETADA", "AUX ADMINISTRATIVA", "Tec enfermagem", "Aracaju/SE - SE", "BB", "Pan",
		"AUX DE SERVICO GERAIS", "Desempregad ", "  ", "ç", "Straße", "N. Sra. do Socorro",
	}
	out := make([]any, 0, n+len(seeds)+6)
	for _, s := range seeds {
		out = append(out, s)
	}
	out = append(out, nil, math.NaN(), 12.0, 7, map[string]any{"k": "v"}, []any{1})
	for i := 0; i < n; i++ {
		switch f.Number(0, 5) {
		case 0:
			out = append(out, f.City())
		case 1:
			out = append(out, f.Company())
		case 2:
			out = append(out, f.JobTitle())
		case 3:
			out = append(out, f.Sentence(f.Number(1, 6)))
		case 4:
			out = append(out, f.RandomString(seeds)+" "+f.Word())
		default:
			out = append(out, f.LetterN(uint(f.Number(0, 12))))
		}
	}
	return out
}

func TestCanonicalize_Idempotent(t *testing.T) {
	reg := Default()
	for _, domain := range allDomains {
		c, err := reg.Get(domain)
		if err != nil {
			t.Fatal(err)
		}
		for _, in := range fuzzInputs(42, 500) {
			once := c.Canonicalize(in)
			if twice := c.Canonicalize(once); twice != once {
				t.Errorf("%s: %#v -> %q -> %q", domain, in, once, twice)
			}
		}
	}
}

func TestCanonicalize_Deterministic(t *testing.T) {
	reg := Default()
	for _, domain := range allDomains {
		c, _ := reg.Get(domain)
		for _, in := range fuzzInputs(7, 200) {
			if a, b := c.Explain(in), c.Explain(in); a != b {
				t.Errorf("%s: %#v gave %+v then %+v", domain, in, a, b)
			}
		}
	}
}

func TestCanonicalize_LabelsInRange(t *testing.T) {
	reg := Default()

	lawsuit, _ := reg.Get(DomainLawsuitType)
	allowed := map[string]bool{LawsuitCivil: true, LawsuitSocialSecurity: true, LawsuitLabor: true, LawsuitOther: true}
	for _, in := range fuzzInputs(3, 300) {
		if got := lawsuit.Canonicalize(in); !allowed[got] {
			t.Errorf("lawsuit type %#v -> %q outside the closed set", in, got)
		}
	}

	// Open-vocabulary domains return a fixed label or normalized text.
	for _, domain := range []string{DomainMunicipality, DomainParty, DomainJurisdiction, DomainProfession} {
		c, _ := reg.Get(domain)
		for _, in := range fuzzInputs(11, 200) {
			res := c.Explain(in)
			if res.Outcome == OutcomeMatched && res.Rule == "" {
				t.Errorf("%s: matched without a rule: %+v", domain, res)
			}
			if res.Label != NormalizeText(res.Label) {
				t.Errorf("%s: label %q is not normalized", domain, res.Label)
			}
			if res.Outcome == OutcomeMissing && res.Label != c.Ruleset().Missing {
				t.Errorf("%s: missing outcome with label %q", domain, res.Label)
			}
		}
	}
}

func TestLabelSetsDisjoint(t *testing.T) {
	reg := Default()
	mun, _ := reg.Get(DomainMunicipality)
	party, _ := reg.Get(DomainParty)

	munLabels := map[string]bool{}
	for _, l := range mun.Ruleset().Labels() {
		munLabels[l] = true
	}
	for _, l := range mun.Known() {
		munLabels[l] = true
	}
	for _, l := range party.Ruleset().Labels() {
		if munLabels[l] {
			t.Errorf("label %q is both a municipality and a party", l)
		}
	}
}
