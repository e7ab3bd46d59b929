package query

import (
	"net/url"
	"regexp"
	"sort"
	"strings"
)

const (
	KeySelect = "select"
	KeySort   = "sort"
	KeyPage   = "page"
	KeyLimit  = "limit"
)

// ReservedKeys are control parameters, never treated as filters.
var ReservedKeys = []string{KeySelect, KeySort, KeyPage, KeyLimit}

var bracketKey = regexp.MustCompile(`^(.+)\[([^\[\]]*)\]$`)

// Translate turns raw query parameters into a Filter. It never fails: a
// bracket token other than gt|gte|lt|lte|in leaves the key untouched, so
// price[ne]=5 becomes an equality condition on the literal field "price[ne]".
func Translate(raw url.Values) Filter {
	keys := make([]string, 0, len(raw))
	for key := range raw {
		if isReserved(key) {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	conds := make([]Condition, 0, len(keys))
	for _, key := range keys {
		values := raw[key]
		if len(values) == 0 {
			continue
		}

		field, op := splitKey(key)
		if op == OpIn {
			conds = append(conds, Condition{Field: field, Op: OpIn, Values: splitList(values)})
			continue
		}
		conds = append(conds, Condition{Field: field, Op: op, Values: []string{values[0]}})
	}

	return NewFilter(conds...)
}

func splitKey(key string) (string, Operator) {
	m := bracketKey.FindStringSubmatch(key)
	if m == nil {
		return key, OpEqual
	}
	op, ok := tokenOperators[m[2]]
	if !ok {
		return key, OpEqual
	}
	return m[1], op
}

func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func isReserved(key string) bool {
	for _, r := range ReservedKeys {
		if key == r {
			return true
		}
	}
	return false
}
