package decode_test

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/aretw0/flatval/pkg/decode"
	"github.com/aretw0/flatval/pkg/domain"
	"github.com/aretw0/flatval/pkg/heap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_Leaves(t *testing.T) {
	tests := []struct {
		name string
		node heap.Node
		kind decode.Kind
		text string
	}{
		{"String", heap.String{Value: `say "hi" <b>`}, decode.KindString, `"say \"hi\" <b>"`},
		{"Integer", heap.Number{Value: 5}, decode.KindNumber, "5"},
		{"Fraction", heap.Number{Value: 0.1}, decode.KindNumber, "0.1"},
		{"NegativeZero", heap.Number{Value: math.Copysign(0, -1)}, decode.KindNumber, "0"},
		{"Large", heap.Number{Value: 1e21}, decode.KindNumber, "1e+21"},
		{"BelowExponent", heap.Number{Value: 1e20}, decode.KindNumber, "100000000000000000000"},
		{"Tiny", heap.Number{Value: 1.5e-7}, decode.KindNumber, "1.5e-7"},
		{"True", heap.Boolean{Value: true}, decode.KindBoolean, "true"},
		{"False", heap.Boolean{}, decode.KindBoolean, "false"},
		{"Undefined", heap.Undefined{}, decode.KindUndefined, "undefined"},
		{"Null", heap.Null{}, decode.KindNull, "null"},
		{"NaN", heap.NaN{}, decode.KindNaN, "NaN"},
		{"PosInf", heap.Infinity{}, decode.KindInfinity, "Infinity"},
		{"NegInf", heap.Infinity{Negative: true}, decode.KindInfinity, "-Infinity"},
		{"Function", heap.Function{Body: "function f() { return 1 }"}, decode.KindFunction, "function f() { return 1 }"},
		{"Epoch", heap.Date{Millis: 0}, decode.KindDate, "Thu Jan 01 1970 00:00:00 GMT+0000 (UTC)"},
		{"BadDate", heap.Date{Millis: 9e15}, decode.KindDate, "Invalid Date"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := heap.Heap{0: tt.node}
			n, err := decode.Decode(h, heap.Root, decode.Path{})
			require.NoError(t, err)
			assert.Equal(t, tt.kind, n.Kind)
			assert.Equal(t, tt.text, n.Text)
			assert.False(t, n.Kind.Composite())
		})
	}
}

func TestDecode_DateLocation(t *testing.T) {
	loc := time.FixedZone("BRT", -3*60*60)
	d := decode.New(decode.WithLocation(loc))
	n, err := d.Decode(heap.Heap{0: heap.Date{Millis: 0}}, heap.Root, decode.Path{})
	require.NoError(t, err)
	assert.Equal(t, "Wed Dec 31 1969 21:00:00 GMT-0300 (BRT)", n.Text)
}

func TestDecode_ArrayIsLazy(t *testing.T) {
	h := heap.Heap{
		0: heap.Array{Items: []heap.ID{1, 2}},
		1: heap.Number{Value: 5},
		2: heap.String{Value: "x"},
	}

	n, err := decode.Decode(h, heap.Root, decode.Path{})
	require.NoError(t, err)
	assert.Equal(t, decode.KindArray, n.Kind)
	assert.Equal(t, "(2) []", n.Text)
	require.Len(t, n.Items, 2)
	assert.Equal(t, 2, n.Len())

	first, err := decode.Decode(h, n.Items[0].ID, n.Items[0].Path)
	require.NoError(t, err)
	assert.Equal(t, "5", first.Text)
	assert.Equal(t, []heap.ID{0}, n.Items[0].Path.IDs())
}

func TestDecode_ObjectKeysAreNodes(t *testing.T) {
	h := heap.Heap{
		0: heap.Object{Entries: []heap.Pair{{Key: 1, Value: 2}}},
		1: heap.String{Value: "k"},
		2: heap.NaN{},
	}

	n, err := decode.Decode(h, heap.Root, decode.Path{})
	require.NoError(t, err)
	assert.Equal(t, "{}", n.Text)
	require.Len(t, n.Entries, 1)

	key, err := decode.Decode(h, n.Entries[0].Key.ID, n.Entries[0].Key.Path)
	require.NoError(t, err)
	val, err := decode.Decode(h, n.Entries[0].Value.ID, n.Entries[0].Value.Path)
	require.NoError(t, err)
	assert.Equal(t, `"k"`, key.Text)
	assert.Equal(t, "NaN", val.Text)
}

func TestDecode_CycleBecomesMarker(t *testing.T) {
	h := heap.Heap{
		0: heap.Array{Items: []heap.ID{1}},
		1: heap.Array{Items: []heap.ID{0}},
	}

	root, err := decode.Decode(h, heap.Root, decode.Path{})
	require.NoError(t, err)
	inner, err := decode.Decode(h, root.Items[0].ID, root.Items[0].Path)
	require.NoError(t, err)
	back, err := decode.Decode(h, inner.Items[0].ID, inner.Items[0].Path)
	require.NoError(t, err)

	assert.Equal(t, decode.KindCycle, back.Kind)
	assert.Equal(t, heap.ID(0), back.ID)
	assert.Equal(t, "[Circular *0]", back.Text)
	assert.Empty(t, back.Items)
}

func TestDecode_MissingNode(t *testing.T) {
	h := heap.Heap{0: heap.Array{Items: []heap.ID{7}}}
	root, err := decode.Decode(h, heap.Root, decode.Path{})
	require.NoError(t, err)

	_, err = decode.Decode(h, root.Items[0].ID, root.Items[0].Path)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrMissingNode)

	var missing *decode.MissingNodeError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, heap.ID(7), missing.ID)
	assert.Equal(t, "missing node 7 (via 0)", err.Error())
}

func TestDecode_InvalidRecordIsFault(t *testing.T) {
	h := heap.Heap{0: heap.Invalid{Type: "symbol", Err: heap.ErrUnknownTag}}
	_, err := decode.Decode(h, heap.Root, decode.Path{})
	assert.ErrorIs(t, err, domain.ErrRenderFault)
	assert.ErrorIs(t, err, heap.ErrUnknownTag)
	assert.NotErrorIs(t, err, domain.ErrMissingNode)
}

func TestDecode_DepthLimit(t *testing.T) {
	b := heap.NewBuilder()
	ids := make([]heap.ID, 10)
	for i := range ids {
		ids[i] = b.Reserve()
	}
	for i := 0; i < len(ids)-1; i++ {
		b.Set(ids[i], heap.Array{Items: []heap.ID{ids[i+1]}})
	}
	b.Set(ids[len(ids)-1], heap.Null{})
	h := b.Heap()

	d := decode.New(decode.WithMaxDepth(3))
	var faults int
	err := d.Walk(h, func(ref decode.Ref, n decode.Node, err error) error {
		if err != nil {
			assert.ErrorIs(t, err, decode.ErrTooDeep)
			faults++
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, faults)
}

func TestDecode_IsPure(t *testing.T) {
	h := heap.Heap{
		0: heap.Object{Entries: []heap.Pair{{Key: 1, Value: 2}}},
		1: heap.String{Value: "a"},
		2: heap.Array{Items: []heap.ID{1, 1}},
	}
	first, err := decode.Decode(h, heap.Root, decode.Path{})
	require.NoError(t, err)
	second, err := decode.Decode(h, heap.Root, decode.Path{})
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Len(t, h, 3)
}
