// CLAUDE:SUMMARY Aggregations over enriched records: value counts, top-N rankings, KPI summary, tabular views.
package report

import (
	"fmt"
	"sort"

	"github.com/hazyhaar/canon/pkg/canon"
	"github.com/hazyhaar/canon/pkg/records"
)

// Count is one row of a value distribution.
type Count struct {
	Value   string  `json:"value"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// ValueCounts tallies the values of field, most frequent first. Missing
// values are skipped; percentages are relative to the counted values.
func ValueCounts(recs []records.Record, field string) []Count {
	tally := make(map[string]int)
	total := 0
	for _, r := range recs {
		s, err := canon.Stringify(r[field])
		if err != nil || s == "" {
			continue
		}
		tally[s]++
		total++
	}

	out := make([]Count, 0, len(tally))
	for v, n := range tally {
		out = append(out, Count{Value: v, Count: n, Percent: 100 * float64(n) / float64(total)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Value < out[j].Value
	})
	return out
}

// Top returns the first n counts; n <= 0 returns all.
func Top(counts []Count, n int) []Count {
	if n <= 0 || n >= len(counts) {
		return counts
	}
	return counts[:n]
}

// Summary is the dashboard's headline view of a record set.
type Summary struct {
	TotalProcesses      int      `json:"total_processes"`
	DistinctClients     int      `json:"distinct_clients"`
	ActiveProcesses     int      `json:"active_processes"`
	MeanProcessAgeYears *float64 `json:"mean_process_age_years"`
	MeanClientAgeYears  *float64 `json:"mean_client_age_years"`
	ProspectorPercent   float64  `json:"prospector_percent"`

	LawsuitTypes   []Count `json:"lawsuit_types"`
	Defendants     []Count `json:"defendants"`
	Jurisdictions  []Count `json:"jurisdictions"`
	Professions    []Count `json:"professions"`
	Municipalities []Count `json:"municipalities"`
}

// Summarize computes KPIs and the top-n rankings of every canonical field.
// Municipality counts are not truncated; the map needs all of them.
func Summarize(recs []records.Record, top int) Summary {
	s := Summary{TotalProcesses: len(recs)}

	clients := make(map[string]struct{})
	var withProspector int
	var procAge, clientAge mean
	for _, r := range recs {
		if id, err := canon.Stringify(r[records.FieldClientID]); err == nil {
			clients[id] = struct{}{}
		}
		if st, _ := r.String(records.FieldStatus); st == records.StatusActive {
			s.ActiveProcesses++
		}
		if !canon.IsMissing(r[records.FieldProspector]) {
			withProspector++
		}
		procAge.add(r[records.FieldProcessAgeYears])
		clientAge.add(r[records.FieldClientAgeYears])
	}
	s.DistinctClients = len(clients)
	s.MeanProcessAgeYears = procAge.value()
	s.MeanClientAgeYears = clientAge.value()
	if len(recs) > 0 {
		s.ProspectorPercent = 100 * float64(withProspector) / float64(len(recs))
	}

	s.LawsuitTypes = ValueCounts(recs, records.FieldLawsuitTypeCategory)
	s.Defendants = Top(ValueCounts(recs, records.FieldPartyCanonical), top)
	s.Jurisdictions = Top(ValueCounts(recs, records.FieldJurisdictionCanonical), top)
	s.Professions = Top(ValueCounts(recs, records.FieldProfessionCanonical), top)
	s.Municipalities = ValueCounts(recs, records.FieldMunicipalityCanonical)
	return s
}

type mean struct {
	sum float64
	n   int
}

func (m *mean) add(v any) {
	switch x := v.(type) {
	case float64:
		m.sum += x
		m.n++
	case int:
		m.sum += float64(x)
		m.n++
	}
}

func (m *mean) value() *float64 {
	if m.n == 0 {
		return nil
	}
	v := m.sum / float64(m.n)
	return &v
}

// Table is a titled grid of cells ready for any exporter.
type Table struct {
	Title  string
	Header []string
	Rows   [][]string
}

// Tables lays the summary out as one KPI table followed by one table per
// distribution.
func (s Summary) Tables() []Table {
	kpi := Table{
		Title:  "KPIs",
		Header: []string{"metric", "value"},
		Rows: [][]string{
			{"total_processes", fmt.Sprint(s.TotalProcesses)},
			{"distinct_clients", fmt.Sprint(s.DistinctClients)},
			{"active_processes", fmt.Sprint(s.ActiveProcesses)},
			{"mean_process_age_years", formatOptional(s.MeanProcessAgeYears)},
			{"mean_client_age_years", formatOptional(s.MeanClientAgeYears)},
			{"prospector_percent", fmt.Sprintf("%.1f", s.ProspectorPercent)},
		},
	}
	return []Table{
		kpi,
		countTable("Lawsuit types", s.LawsuitTypes),
		countTable("Defendants", s.Defendants),
		countTable("Jurisdictions", s.Jurisdictions),
		countTable("Professions", s.Professions),
		countTable("Municipalities", s.Municipalities),
	}
}

func countTable(title string, counts []Count) Table {
	t := Table{Title: title, Header: []string{"value", "count", "percent"}}
	for _, c := range counts {
		t.Rows = append(t.Rows, []string{c.Value, fmt.Sprint(c.Count), fmt.Sprintf("%.1f", c.Percent)})
	}
	return t
}

func formatOptional(v *float64) string {
	if v == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.1f", *v)
}
