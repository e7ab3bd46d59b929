package query

import (
	"net/url"
	"sort"
	"strings"
)

type Operator string

const (
	OpEqual          Operator = "equal"
	OpGreaterThan    Operator = "greaterThan"
	OpGreaterOrEqual Operator = "greaterOrEqual"
	OpLessThan       Operator = "lessThan"
	OpLessOrEqual    Operator = "lessOrEqual"
	OpIn             Operator = "in"
)

// wire tokens accepted inside brackets, e.g. price[gte]=100
var tokenOperators = map[string]Operator{
	"gt":  OpGreaterThan,
	"gte": OpGreaterOrEqual,
	"lt":  OpLessThan,
	"lte": OpLessOrEqual,
	"in":  OpIn,
}

var operatorTokens = map[Operator]string{
	OpGreaterThan:    "gt",
	OpGreaterOrEqual: "gte",
	OpLessThan:       "lt",
	OpLessOrEqual:    "lte",
	OpIn:             "in",
}

// Condition is a single predicate on one field. Scalar operators use
// Values[0]; OpIn uses the whole slice.
type Condition struct {
	Field  string
	Op     Operator
	Values []string
}

func Eq(field, value string) Condition {
	return Condition{Field: field, Op: OpEqual, Values: []string{value}}
}

func In(field string, values ...string) Condition {
	return Condition{Field: field, Op: OpIn, Values: append([]string(nil), values...)}
}

func (c Condition) Value() string {
	if len(c.Values) == 0 {
		return ""
	}
	return c.Values[0]
}

func (c Condition) clone() Condition {
	c.Values = append([]string(nil), c.Values...)
	return c
}

// Filter is an immutable conjunction of conditions. The zero value matches
// everything. Methods never modify the receiver.
type Filter struct {
	conditions []Condition
}

func NewFilter(conds ...Condition) Filter {
	return Filter{}.And(conds...)
}

// And returns a new filter holding the receiver's conditions plus conds.
func (f Filter) And(conds ...Condition) Filter {
	merged := make([]Condition, 0, len(f.conditions)+len(conds))
	for _, c := range f.conditions {
		merged = append(merged, c.clone())
	}
	for _, c := range conds {
		merged = append(merged, c.clone())
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Field < merged[j].Field
	})
	return Filter{conditions: merged}
}

// Conditions returns a copy of the filter's conditions ordered by field.
func (f Filter) Conditions() []Condition {
	out := make([]Condition, len(f.conditions))
	for i, c := range f.conditions {
		out[i] = c.clone()
	}
	return out
}

func (f Filter) Len() int {
	return len(f.conditions)
}

func (f Filter) IsEmpty() bool {
	return len(f.conditions) == 0
}

// Has reports whether any condition targets field.
func (f Filter) Has(field string) bool {
	for _, c := range f.conditions {
		if c.Field == field {
			return true
		}
	}
	return false
}

// Encode serializes the filter back into the bracket-suffixed wire form.
func (f Filter) Encode() url.Values {
	out := url.Values{}
	for _, c := range f.conditions {
		if c.Op == OpEqual {
			out.Add(c.Field, c.Value())
			continue
		}
		key := c.Field + "[" + operatorTokens[c.Op] + "]"
		if c.Op == OpIn {
			out.Add(key, strings.Join(c.Values, ","))
			continue
		}
		out.Add(key, c.Value())
	}
	return out
}
