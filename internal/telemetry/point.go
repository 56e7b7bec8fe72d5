// Package telemetry implements the per-component append-only telemetry
// channels described by the supervisor's data model: timestamped points
// tagged with a value kind, collected into named channels and drained
// once per cycle.
package telemetry

import "time"

// Kind tags the dynamic type carried by a Point's Value.
type Kind string

const (
	// KindDefault carries an untyped value (interface{}), used when the
	// driver-reported value doesn't fit a more specific kind.
	KindDefault Kind = "default"
	KindString  Kind = "string"
	KindBoolean Kind = "boolean"
	KindFloat   Kind = "float"
	// KindUnit carries a float value paired with a unit string (e.g.
	// "volts", "amperes").
	KindUnit Kind = "unit"
)

// Point is one timestamped, kind-tagged telemetry sample. It replaces an
// untyped dict with an explicit tagged variant: callers switch on Kind
// rather than type-asserting Value.
type Point struct {
	Name      string      `json:"name"`
	Timestamp time.Time   `json:"-"`
	Value     interface{} `json:"value"`
	Kind      Kind        `json:"type"`
	Unit      string      `json:"unit,omitempty"`
}

// wirePoint is the per-point field set of the log file / HTTP wire format
// (§6 "Persisted state"). It has no timestamp: Point leaves Timestamp out
// of its JSON, and Bucket carries the timestamp as float seconds since the
// Unix epoch. Nothing in this package uses wirePoint.
type wirePoint struct {
	Name  string      `json:"name"`
	Value interface{} `json:"value"`
	Kind  Kind        `json:"type"`
	Unit  string      `json:"unit,omitempty"`
}

// Default builds an untagged-kind point.
func Default(name string, value interface{}, ts time.Time) Point {
	return Point{Name: name, Value: value, Kind: KindDefault, Timestamp: ts}
}

// String builds a string-kind point.
func String(name, value string, ts time.Time) Point {
	return Point{Name: name, Value: value, Kind: KindString, Timestamp: ts}
}

// Boolean builds a boolean-kind point.
func Boolean(name string, value bool, ts time.Time) Point {
	return Point{Name: name, Value: value, Kind: KindBoolean, Timestamp: ts}
}

// Float builds a float-kind point.
func Float(name string, value float64, ts time.Time) Point {
	return Point{Name: name, Value: value, Kind: KindFloat, Timestamp: ts}
}

// Unit builds a unit-kind point: a float value plus a unit string.
func Unit(name string, value float64, unit string, ts time.Time) Point {
	return Point{Name: name, Value: value, Kind: KindUnit, Unit: unit, Timestamp: ts}
}

// WithName returns a copy of the point with its Name replaced. Used by the
// aggregator to patch in the fully-qualified, dotted channel name while
// draining a subtree.
func (p Point) WithName(name string) Point {
	p.Name = name
	return p
}
