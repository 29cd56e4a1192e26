package records

import (
	"github.com/hazyhaar/canon/pkg/canon"
)

// ClientSuffix marks client fields whose names clash with process fields.
const ClientSuffix = "_cliente"

// Merge left-joins processes with clients on idCliente. A process matching
// several clients is emitted once per client; a process matching none is
// kept as is. Process fields win name clashes.
func Merge(processes, clients []Record) []Record {
	byID := make(map[string][]Record, len(clients))
	for _, c := range clients {
		key, err := canon.Stringify(c[FieldClientID])
		if err != nil {
			continue
		}
		byID[key] = append(byID[key], c)
	}

	out := make([]Record, 0, len(processes))
	for _, p := range processes {
		key, err := canon.Stringify(p[FieldClientID])
		matches := byID[key]
		if err != nil || len(matches) == 0 {
			out = append(out, p.Clone())
			continue
		}
		for _, c := range matches {
			out = append(out, joinRecord(p, c))
		}
	}
	return out
}

func joinRecord(p, c Record) Record {
	row := p.Clone()
	for k, v := range c {
		if k == FieldClientID {
			continue
		}
		if _, clash := p[k]; clash {
			row[k+ClientSuffix] = v
			continue
		}
		row[k] = v
	}
	return row
}
