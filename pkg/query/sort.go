package query

import "strings"

type SortField struct {
	Field      string
	Descending bool
}

type Sort []SortField

// DefaultSort orders newest records first.
var DefaultSort = Sort{{Field: "createdAt", Descending: true}}

// ParseSort reads a comma-joined field list; a leading "-" means descending.
func ParseSort(raw string) Sort {
	var out Sort
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		desc := strings.HasPrefix(part, "-")
		part = strings.TrimPrefix(part, "-")
		if part == "" {
			continue
		}
		out = append(out, SortField{Field: part, Descending: desc})
	}
	return out
}

func (s Sort) OrDefault() Sort {
	if len(s) == 0 {
		return append(Sort(nil), DefaultSort...)
	}
	return s
}

type Projection []string

// ParseProjection reads the comma-joined select list.
func ParseProjection(raw string) Projection {
	var out Projection
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
