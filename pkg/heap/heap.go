package heap

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
)

// Heap is the flat, identifier-addressed table that carries one evaluation
// result. It is never mutated once built.
type Heap map[ID]Node

// Lookup returns the node stored under id.
func (h Heap) Lookup(id ID) (Node, bool) {
	n, ok := h[id]
	return n, ok
}

// IDs returns the identifiers of the heap in ascending order.
func (h Heap) IDs() []ID {
	ids := make([]ID, 0, len(h))
	for id := range h {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// ErrMalformedPayload marks a record whose value does not fit its tag.
var ErrMalformedPayload = errors.New("malformed payload")

// ErrUnknownTag marks a record whose type is not part of the wire format.
var ErrUnknownTag = errors.New("unknown tag")

// record is the wire shape of a single node.
type record struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value,omitempty"`
}

// Parse decodes a heap from its JSON wire form.
func Parse(data []byte) (Heap, error) {
	var h Heap
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, err
	}
	return h, nil
}

// UnmarshalJSON reads the `{"<id>": {"type": ..., "value": ...}}` form.
// Only a broken envelope is an error; a broken record becomes Invalid.
func (h *Heap) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("heap: %w", err)
	}
	out := make(Heap, len(raw))
	for key, msg := range raw {
		n, err := strconv.Atoi(key)
		if err != nil {
			return fmt.Errorf("heap: node key %q is not an integer", key)
		}
		out[ID(n)] = parseRecord(msg)
	}
	*h = out
	return nil
}

func parseRecord(msg json.RawMessage) Node {
	var rec record
	if err := json.Unmarshal(msg, &rec); err != nil {
		return Invalid{Raw: msg, Err: fmt.Errorf("%w: %v", ErrMalformedPayload, err)}
	}
	n, err := decodeValue(Tag(rec.Type), rec.Value)
	if err != nil {
		return Invalid{Type: rec.Type, Raw: rec.Value, Err: err}
	}
	return n
}

func decodeValue(tag Tag, value json.RawMessage) (Node, error) {
	present := len(value) > 0 && !bytes.Equal(value, []byte("null"))
	need := func(v any) error {
		if !present {
			return fmt.Errorf("%w: %s without value", ErrMalformedPayload, tag)
		}
		if err := json.Unmarshal(value, v); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrMalformedPayload, tag, err)
		}
		return nil
	}

	switch tag {
	case TagObject:
		var pairs []struct {
			Key   *ID `json:"key"`
			Value *ID `json:"value"`
		}
		if err := need(&pairs); err != nil {
			return nil, err
		}
		obj := Object{Entries: make([]Pair, len(pairs))}
		for i, p := range pairs {
			if p.Key == nil || p.Value == nil {
				return nil, fmt.Errorf("%w: object entry %d lacks key or value", ErrMalformedPayload, i)
			}
			obj.Entries[i] = Pair{Key: *p.Key, Value: *p.Value}
		}
		return obj, nil
	case TagArray:
		var items []ID
		if err := need(&items); err != nil {
			return nil, err
		}
		return Array{Items: items}, nil
	case TagDate:
		var ms float64
		if err := need(&ms); err != nil {
			return nil, err
		}
		return Date{Millis: ms}, nil
	case TagFunction:
		var body string
		if present && value[0] == '"' {
			if err := json.Unmarshal(value, &body); err != nil {
				return nil, fmt.Errorf("%w: function: %v", ErrMalformedPayload, err)
			}
			return Function{Body: body}, nil
		}
		var fn struct {
			Body *string `json:"body"`
		}
		if err := need(&fn); err != nil {
			return nil, err
		}
		if fn.Body == nil {
			return nil, fmt.Errorf("%w: function without body", ErrMalformedPayload)
		}
		return Function{Body: *fn.Body}, nil
	case TagString:
		var s string
		if err := need(&s); err != nil {
			return nil, err
		}
		return String{Value: s}, nil
	case TagNumber:
		var f float64
		if err := need(&f); err != nil {
			return nil, err
		}
		return Number{Value: f}, nil
	case TagBoolean:
		var b bool
		if err := need(&b); err != nil {
			return nil, err
		}
		return Boolean{Value: b}, nil
	case TagUndefined:
		return Undefined{}, nil
	case TagNull:
		return Null{}, nil
	case TagNaN:
		return NaN{}, nil
	case TagInfinity:
		var sign string
		if err := need(&sign); err != nil {
			return nil, err
		}
		switch sign {
		case "+":
			return Infinity{}, nil
		case "-":
			return Infinity{Negative: true}, nil
		}
		return nil, fmt.Errorf("%w: infinity sign %q", ErrMalformedPayload, sign)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownTag, string(tag))
}

// MarshalJSON writes the wire form. Invalid records are written back as received.
func (h Heap) MarshalJSON() ([]byte, error) {
	out := make(map[string]record, len(h))
	for id, n := range h {
		rec, err := encodeRecord(n)
		if err != nil {
			return nil, fmt.Errorf("heap: node %d: %w", id, err)
		}
		out[strconv.Itoa(int(id))] = rec
	}
	return json.Marshal(out)
}

func encodeRecord(n Node) (record, error) {
	rec := record{Type: string(n.Tag())}
	var v any
	switch x := n.(type) {
	case Object:
		entries := x.Entries
		if entries == nil {
			entries = []Pair{}
		}
		v = entries
	case Array:
		items := x.Items
		if items == nil {
			items = []ID{}
		}
		v = items
	case Date:
		v = x.Millis
	case Function:
		v = map[string]string{"body": x.Body}
	case String:
		v = x.Value
	case Number:
		if math.IsNaN(x.Value) || math.IsInf(x.Value, 0) {
			return rec, fmt.Errorf("number node holds %v", x.Value)
		}
		v = x.Value
	case Boolean:
		v = x.Value
	case Infinity:
		v = "+"
		if x.Negative {
			v = "-"
		}
	case Undefined, Null, NaN:
		return rec, nil
	case Invalid:
		rec.Value = x.Raw
		return rec, nil
	default:
		return rec, fmt.Errorf("%w: %T", ErrUnknownTag, n)
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return rec, err
	}
	rec.Value = raw
	return rec, nil
}
