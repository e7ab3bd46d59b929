package query

import "net/url"

// Request bundles everything a listing needs, parsed once per call.
type Request struct {
	Filter     Filter
	Sort       Sort
	Projection Projection
	Page       Page
}

func ParseRequest(raw url.Values, maxLimit int) Request {
	return Request{
		Filter:     Translate(raw),
		Sort:       ParseSort(raw.Get(KeySort)).OrDefault(),
		Projection: ParseProjection(raw.Get(KeySelect)),
		Page:       ParsePage(raw).WithMaxLimit(maxLimit),
	}
}

// WithFilter returns a copy of r using f.
func (r Request) WithFilter(f Filter) Request {
	r.Filter = f
	return r
}
