package heap

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"reflect"
	"sort"
	"strings"
	"time"
)

// ErrUnsupported is returned by Encode for values with no heap representation.
var ErrUnsupported = errors.New("unsupported value")

type undefined struct{}

// UndefinedValue encodes as the undefined tag.
var UndefinedValue any = undefined{}

// Func is the producer-side form of a function value.
type Func struct {
	Body string
}

// Field is one key/value pair of an Ordered object.
type Field struct {
	Key   any
	Value any
}

// Ordered is an object whose entry order is significant.
// Keys may be any encodable value.
type Ordered struct {
	Fields []Field
}

// Set appends a field.
func (o *Ordered) Set(key, value any) *Ordered {
	o.Fields = append(o.Fields, Field{Key: key, Value: value})
	return o
}

var timeType = reflect.TypeOf(time.Time{})

// Encode converts a Go value into a Heap rooted at Root.
//
// Maps, slices and pointers that share storage are emitted once and
// referenced from every place they appear. A reference cycle in v becomes a
// back-reference, so the resulting heap is cyclic; consumers are expected
// to cope with that.
func Encode(v any) (Heap, error) {
	e := &encoder{b: NewBuilder(), seen: make(map[identity]ID)}
	if _, err := e.encode(reflect.ValueOf(v)); err != nil {
		return nil, err
	}
	return e.b.Heap(), nil
}

type identity struct {
	ptr uintptr
	typ reflect.Type
	len int
}

type encoder struct {
	b    *Builder
	seen map[identity]ID
}

func (e *encoder) encode(v reflect.Value) (ID, error) {
	if !v.IsValid() {
		return e.b.Add(Null{}), nil
	}

	switch x := v.Interface().(type) {
	case undefined:
		return e.b.Add(Undefined{}), nil
	case time.Time:
		return e.b.Add(Date{Millis: float64(x.UnixMilli())}), nil
	case Func:
		return e.b.Add(Function{Body: x.Body}), nil
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return 0, fmt.Errorf("%w: number %q", ErrUnsupported, x.String())
		}
		return e.b.Number(f), nil
	case *big.Int:
		if x == nil {
			return e.b.Add(Null{}), nil
		}
		f, _ := new(big.Float).SetInt(x).Float64()
		return e.b.Number(f), nil
	case *Ordered:
		if x == nil {
			return e.b.Add(Null{}), nil
		}
		return e.shared(identity{ptr: v.Pointer(), typ: v.Type()}, func(id ID) error {
			return e.ordered(id, x.Fields)
		})
	}

	switch v.Kind() {
	case reflect.Bool:
		return e.b.Bool(v.Bool()), nil
	case reflect.String:
		return e.b.String(v.String()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return e.b.Number(float64(v.Int())), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return e.b.Number(float64(v.Uint())), nil
	case reflect.Float32, reflect.Float64:
		return e.b.Number(v.Float()), nil
	case reflect.Interface, reflect.Pointer:
		if isStructPointer(v) {
			return e.shared(identity{ptr: v.Pointer(), typ: v.Type()}, func(id ID) error {
				return e.structFields(id, v.Elem())
			})
		}
		target, err := deref(v)
		if err != nil {
			return 0, err
		}
		if !target.IsValid() {
			return e.b.Add(Null{}), nil
		}
		return e.encode(target)
	case reflect.Slice:
		if v.IsNil() {
			return e.b.Add(Null{}), nil
		}
		return e.shared(identity{ptr: v.Pointer(), typ: v.Type(), len: v.Len()}, func(id ID) error {
			return e.array(id, v)
		})
	case reflect.Array:
		id := e.b.Reserve()
		return id, e.array(id, v)
	case reflect.Map:
		if v.IsNil() {
			return e.b.Add(Null{}), nil
		}
		return e.shared(identity{ptr: v.Pointer(), typ: v.Type()}, func(id ID) error {
			return e.mapFields(id, v)
		})
	case reflect.Struct:
		id := e.b.Reserve()
		return id, e.structFields(id, v)
	case reflect.Func:
		if v.IsNil() {
			return e.b.Add(Null{}), nil
		}
		return e.b.Add(Function{Body: v.Type().String()}), nil
	}
	return 0, fmt.Errorf("%w: %s", ErrUnsupported, v.Type())
}

func isStructPointer(v reflect.Value) bool {
	return v.Kind() == reflect.Pointer && !v.IsNil() &&
		v.Elem().Kind() == reflect.Struct && v.Elem().Type() != timeType
}

// deref follows pointers and interfaces down to the value they hold. It
// stops at a pointer to a struct, whose address is its identity. A chain of
// pointers that comes back to itself holds no value and is rejected.
func deref(v reflect.Value) (reflect.Value, error) {
	var seen map[uintptr]struct{}
	for {
		switch v.Kind() {
		case reflect.Interface:
			if v.IsNil() {
				return reflect.Value{}, nil
			}
			v = v.Elem()
		case reflect.Pointer:
			if v.IsNil() {
				return reflect.Value{}, nil
			}
			if isStructPointer(v) {
				return v, nil
			}
			if seen == nil {
				seen = make(map[uintptr]struct{})
			}
			if _, ok := seen[v.Pointer()]; ok {
				return reflect.Value{}, fmt.Errorf("%w: pointer cycle through %s", ErrUnsupported, v.Type())
			}
			seen[v.Pointer()] = struct{}{}
			v = v.Elem()
		default:
			return v, nil
		}
	}
}

// shared emits a composite once per identity. The id is registered before
// the children are encoded so that a cycle resolves to a back-reference.
func (e *encoder) shared(key identity, fill func(ID) error) (ID, error) {
	if id, ok := e.seen[key]; ok {
		return id, nil
	}
	id := e.b.Reserve()
	e.seen[key] = id
	return id, fill(id)
}

func (e *encoder) array(id ID, v reflect.Value) error {
	items := make([]ID, v.Len())
	for i := range items {
		child, err := e.encode(v.Index(i))
		if err != nil {
			return err
		}
		items[i] = child
	}
	e.b.Set(id, Array{Items: items})
	return nil
}

func (e *encoder) ordered(id ID, fields []Field) error {
	obj := Object{Entries: make([]Pair, 0, len(fields))}
	for _, f := range fields {
		k, err := e.encode(reflect.ValueOf(f.Key))
		if err != nil {
			return err
		}
		val, err := e.encode(reflect.ValueOf(f.Value))
		if err != nil {
			return err
		}
		obj.Entries = append(obj.Entries, Pair{Key: k, Value: val})
	}
	e.b.Set(id, obj)
	return nil
}

// mapFields sorts keys by their printed form so that output is deterministic.
func (e *encoder) mapFields(id ID, v reflect.Value) error {
	keys := v.MapKeys()
	sort.SliceStable(keys, func(i, j int) bool {
		return fmt.Sprint(keys[i].Interface()) < fmt.Sprint(keys[j].Interface())
	})
	fields := make([]Field, len(keys))
	for i, k := range keys {
		fields[i] = Field{Key: k.Interface(), Value: v.MapIndex(k).Interface()}
	}
	return e.ordered(id, fields)
}

func (e *encoder) structFields(id ID, v reflect.Value) error {
	t := v.Type()
	var fields []Field
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		name := sf.Name
		if tag, ok := sf.Tag.Lookup("json"); ok {
			tagName, _, _ := strings.Cut(tag, ",")
			if tagName == "-" {
				continue
			}
			if tagName != "" {
				name = tagName
			}
		}
		fields = append(fields, Field{Key: name, Value: v.Field(i).Interface()})
	}
	return e.ordered(id, fields)
}
