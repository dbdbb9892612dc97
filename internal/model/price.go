// Package model defines the domain types shared by every extractor:
// prices with an explicit unknown sentinel, per-region records, and the
// regression-zone bracket tables.
package model

import "strconv"

// UnknownMark is how an unknown price renders in the output table. The
// sentinel is deliberately visible; an empty cell would be ambiguous
// between "not found" and "not attempted".
const UnknownMark = "❌"

// Price is an extracted integer price or the explicit Unknown sentinel.
// The zero value is Unknown.
type Price struct {
	v     int
	known bool
}

// Unknown is the "not found" sentinel.
var Unknown = Price{}

// Known wraps an integer price.
func Known(v int) Price {
	return Price{v: v, known: true}
}

// Known reports whether the price holds a value.
func (p Price) Known() bool { return p.known }

// Value returns the integer price; ok is false for Unknown.
func (p Price) Value() (int, bool) {
	return p.v, p.known
}

// Int returns the price value, or 0 for Unknown. Use Value when the
// distinction matters.
func (p Price) Int() int { return p.v }

func (p Price) String() string {
	if !p.known {
		return UnknownMark
	}
	return strconv.Itoa(p.v)
}
