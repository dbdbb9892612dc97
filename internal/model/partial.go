package model

// PartialExtraction is the ordered field→price output of one extractor for
// one region. First write wins: a later conflicting value for an already
// known field is discarded, so a partial never carries two different known
// values for the same field.
type PartialExtraction struct {
	order  []Field
	values map[Field]Price
}

// NewPartial returns an empty partial extraction.
func NewPartial() *PartialExtraction {
	return &PartialExtraction{values: make(map[Field]Price)}
}

// Set records v for f. Unknown values are recorded only when the field is
// absent (keeps the field enumerable); known values never overwrite an
// earlier known value.
func (p *PartialExtraction) Set(f Field, v Price) {
	cur, seen := p.values[f]
	if !seen {
		p.order = append(p.order, f)
		p.values[f] = v
		return
	}
	if !cur.Known() && v.Known() {
		p.values[f] = v
	}
}

// Get returns the value for f, Unknown when absent.
func (p *PartialExtraction) Get(f Field) Price {
	return p.values[f]
}

// Fields returns the fields in insertion order.
func (p *PartialExtraction) Fields() []Field {
	return p.order
}

// Len returns the number of recorded fields.
func (p *PartialExtraction) Len() int { return len(p.order) }
