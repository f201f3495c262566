// Package model defines the areal units, analysis results, and run records
// shared across the hotspot detection pipeline.
package model

import (
	"github.com/twpayne/go-geom"
)

// Unit is a single areal observation: a stable unique id, a polygon boundary,
// and one numeric attribute. A nil Value means the attribute is missing for
// this unit.
type Unit struct {
	ID    string
	Geom  geom.T
	Value *float64
}

// Float returns a pointer to v, for building attribute values inline.
func Float(v float64) *float64 {
	return &v
}
