package records

import (
	"github.com/hazyhaar/canon/pkg/canon"
)

// FilterGeographic keeps active records whose city canonicalizes to a known
// municipality. Records already enriched are read from their derived field;
// others are canonicalized on the fly with mun.
func FilterGeographic(recs []Record, mun *canon.Canonicalizer) []Record {
	out := make([]Record, 0, len(recs))
	for _, r := range recs {
		if status, _ := r.String(FieldStatus); status != StatusActive {
			continue
		}
		if canon.IsMissing(r[FieldCity]) {
			continue
		}
		name, ok := r.String(FieldMunicipalityCanonical)
		if !ok {
			name = mun.Canonicalize(r[FieldCity])
		}
		if mun.IsKnown(name) {
			out = append(out, r)
		}
	}
	return out
}
