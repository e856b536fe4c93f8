package heap

import (
	"encoding/json"
	"fmt"
)

// ID addresses a node inside a single Heap. Root is always 0.
type ID int

// Root is the identifier every decode starts from.
const Root ID = 0

// String renders the identifier the way it is shown inside markers.
func (id ID) String() string {
	return fmt.Sprintf("%d", int(id))
}

// Tag names the semantic kind of a node on the wire.
type Tag string

const (
	TagObject    Tag = "object"
	TagArray     Tag = "array"
	TagDate      Tag = "date"
	TagFunction  Tag = "function"
	TagString    Tag = "string"
	TagNumber    Tag = "number"
	TagBoolean   Tag = "boolean"
	TagUndefined Tag = "undefined"
	TagNull      Tag = "null"
	TagNaN       Tag = "nan"
	TagInfinity  Tag = "infinity"
)

// Tags lists every tag the wire format defines, in declaration order.
var Tags = []Tag{
	TagObject, TagArray, TagDate, TagFunction, TagString, TagNumber,
	TagBoolean, TagUndefined, TagNull, TagNaN, TagInfinity,
}

// Node is one tagged record of a Heap.
// The set of implementations is closed: only types in this package satisfy it.
type Node interface {
	Tag() Tag
	isNode()
}

// Pair is one entry of an object. Keys are nodes too, so that non-string
// keys (e.g. Map keys on the producer side) survive the trip.
type Pair struct {
	Key   ID `json:"key"`
	Value ID `json:"value"`
}

// Object holds its entries in producer order.
type Object struct {
	Entries []Pair
}

// Array holds element identifiers in index order.
type Array struct {
	Items []ID
}

// Date is an instant in epoch milliseconds.
type Date struct {
	Millis float64
}

// Function carries the source text of a function value. It is never executed.
type Function struct {
	Body string
}

type String struct {
	Value string
}

// Number is always finite; NaN and ±Inf travel as NaN and Infinity.
type Number struct {
	Value float64
}

type Boolean struct {
	Value bool
}

type Undefined struct{}

type Null struct{}

type NaN struct{}

// Infinity is +Inf unless Negative is set.
type Infinity struct {
	Negative bool
}

// Invalid keeps a record that could not be understood: an unknown tag or a
// payload that does not fit its tag. It is kept rather than rejected so that
// only the entry containing it degrades.
type Invalid struct {
	Type string
	Raw  json.RawMessage
	Err  error
}

func (Object) Tag() Tag    { return TagObject }
func (Array) Tag() Tag     { return TagArray }
func (Date) Tag() Tag      { return TagDate }
func (Function) Tag() Tag  { return TagFunction }
func (String) Tag() Tag    { return TagString }
func (Number) Tag() Tag    { return TagNumber }
func (Boolean) Tag() Tag   { return TagBoolean }
func (Undefined) Tag() Tag { return TagUndefined }
func (Null) Tag() Tag      { return TagNull }
func (NaN) Tag() Tag       { return TagNaN }
func (Infinity) Tag() Tag  { return TagInfinity }
func (i Invalid) Tag() Tag { return Tag(i.Type) }

func (Object) isNode()    {}
func (Array) isNode()     {}
func (Date) isNode()      {}
func (Function) isNode()  {}
func (String) isNode()    {}
func (Number) isNode()    {}
func (Boolean) isNode()   {}
func (Undefined) isNode() {}
func (Null) isNode()      {}
func (NaN) isNode()       {}
func (Infinity) isNode()  {}
func (Invalid) isNode()   {}

// Children returns the identifiers a node references, keys before values.
func Children(n Node) []ID {
	switch v := n.(type) {
	case Object:
		ids := make([]ID, 0, len(v.Entries)*2)
		for _, p := range v.Entries {
			ids = append(ids, p.Key, p.Value)
		}
		return ids
	case Array:
		return v.Items
	}
	return nil
}
