// CLAUDE:SUMMARY Case-record model: JSON-decoded field maps, source/derived field names, envelope-aware decoding.
package records

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
)

// Source field names, as served by the case-management API.
const (
	FieldCity          = "cidade"
	FieldDefendant     = "reu"
	FieldJurisdiction  = "competencia"
	FieldProfession    = "profissaoTexto"
	FieldLawsuitType   = "tipoProcesso"
	FieldStatus        = "status"
	FieldFilingDate    = "data"
	FieldClientID      = "idCliente"
	FieldBirthDay      = "diaNascimento"
	FieldBirthMonth    = "mesNascimento"
	FieldBirthYear     = "anoNascimento"
	FieldClientName    = "nomeCliente"
	FieldSex           = "sexo"
	FieldNeighbourhood = "bairro"
	FieldProspector    = "prospector"
)

// Derived field names written by the Enricher and the age calculations.
const (
	FieldMunicipalityCanonical = "municipality_canonical"
	FieldPartyCanonical        = "party_canonical"
	FieldJurisdictionCanonical = "jurisdiction_canonical"
	FieldLawsuitTypeCategory   = "lawsuit_type_category"
	FieldProfessionCanonical   = "profession_canonical"

	FieldProcessAgeDays  = "idade_processo_dias"
	FieldProcessAgeYears = "idade_processo_anos"
	FieldClientAgeYears  = "idade_cliente_anos"
)

// StatusActive is the status value kept by the geographic filter.
const StatusActive = "Ativo"

// Record is one decoded JSON object. Values keep their decoded types
// (string, float64, bool, nil, nested maps or slices).
type Record map[string]any

// Clone returns a shallow copy of r.
func (r Record) Clone() Record {
	return maps.Clone(r)
}

// String returns the field as a string when it holds one.
func (r Record) String(field string) (string, bool) {
	s, ok := r[field].(string)
	return s, ok
}

// ErrNoRecords is returned by Decode when the payload carries no array of objects.
var ErrNoRecords = errors.New("no record array in payload")

// Decode reads records from JSON. It accepts a bare array of objects, an
// object holding key, or the API envelope: an array whose first element
// holds key.
func Decode(r io.Reader, key string) ([]Record, error) {
	var raw json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode records: %w", err)
	}
	return DecodeBytes(raw, key)
}

// DecodeBytes is Decode over an in-memory payload.
func DecodeBytes(data []byte, key string) ([]Record, error) {
	var arr []json.RawMessage
	if err := json.Unmarshal(data, &arr); err == nil {
		if len(arr) == 0 {
			return []Record{}, nil
		}
		if key != "" {
			var env map[string]json.RawMessage
			if json.Unmarshal(arr[0], &env) == nil {
				if inner, ok := env[key]; ok {
					return decodeArray(inner)
				}
			}
		}
		return decodeArray(data)
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, fmt.Errorf("decode records: %w", err)
	}
	inner, ok := obj[key]
	if !ok {
		return nil, fmt.Errorf("%w: key %q", ErrNoRecords, key)
	}
	return decodeArray(inner)
}

func decodeArray(data []byte) ([]Record, error) {
	var recs []Record
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoRecords, err)
	}
	if recs == nil {
		recs = []Record{}
	}
	return recs, nil
}
