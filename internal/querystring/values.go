// Package querystring encodes and decodes the flat parameter sets carried in picker
// launch URLs.
//
// The codec is deliberately literal: values are never percent-decoded or escaped,
// digit-only values decode as integers, and repeated keys accumulate into sequences.
// Inputs are built by trusted code, so Decode never fails.
package querystring

import "strconv"

type scalarKind uint8

const (
	kindString scalarKind = iota
	kindInt
	kindUndefined
)

// Scalar is a single decoded value: a string, an int, or undefined (a segment with no '=').
type Scalar struct {
	kind scalarKind
	str  string
	num  int
}

// Str returns a string scalar.
func Str(s string) Scalar {
	return Scalar{kind: kindString, str: s}
}

// Int returns an integer scalar.
func Int(n int) Scalar {
	return Scalar{kind: kindInt, num: n}
}

// Undefined returns the scalar produced by a segment without a value.
func Undefined() Scalar {
	return Scalar{kind: kindUndefined}
}

// IsInt reports whether the scalar holds an integer.
func (s Scalar) IsInt() bool { return s.kind == kindInt }

// IsUndefined reports whether the scalar has no value.
func (s Scalar) IsUndefined() bool { return s.kind == kindUndefined }

// Int returns the integer value and whether the scalar is an integer.
func (s Scalar) Int() (int, bool) {
	return s.num, s.kind == kindInt
}

// String renders the scalar the way Encode writes it. Undefined renders as "".
func (s Scalar) String() string {
	switch s.kind {
	case kindInt:
		return strconv.Itoa(s.num)
	case kindUndefined:
		return ""
	default:
		return s.str
	}
}

// Value is either a single scalar or an ordered sequence of scalars.
type Value struct {
	items []Scalar
	seq   bool
}

// Single wraps one scalar.
func Single(s Scalar) Value {
	return Value{items: []Scalar{s}}
}

// Seq builds a sequence value. A sequence stays a sequence even with one element.
func Seq(items ...Scalar) Value {
	cp := make([]Scalar, len(items))
	copy(cp, items)
	return Value{items: cp, seq: true}
}

// IsSeq reports whether the value is a sequence.
func (v Value) IsSeq() bool { return v.seq }

// Scalar returns the value itself for scalars, or the first element of a sequence.
func (v Value) Scalar() Scalar {
	if len(v.items) == 0 {
		return Undefined()
	}
	return v.items[0]
}

// Items returns the scalars in order. A scalar value yields one item.
func (v Value) Items() []Scalar {
	out := make([]Scalar, len(v.items))
	copy(out, v.items)
	return out
}

// Len returns the number of scalars held.
func (v Value) Len() int { return len(v.items) }

func (v Value) equal(o Value) bool {
	if v.seq != o.seq || len(v.items) != len(o.items) {
		return false
	}
	for i := range v.items {
		if v.items[i] != o.items[i] {
			return false
		}
	}
	return true
}

// Values is an insertion-ordered parameter set.
type Values struct {
	keys []string
	vals map[string]Value
}

// New returns an empty parameter set.
func New() *Values {
	return &Values{vals: make(map[string]Value)}
}

// Set stores v under key, replacing any previous value but keeping the key's position.
func (p *Values) Set(key string, v Value) {
	if _, ok := p.vals[key]; !ok {
		p.keys = append(p.keys, key)
	}
	p.vals[key] = v
}

// SetString is shorthand for Set(key, Single(Str(s))).
func (p *Values) SetString(key, s string) {
	p.Set(key, Single(Str(s)))
}

// Add accumulates s under key: the first occurrence stores a scalar, the second
// converts it into a two-element sequence, later ones append.
func (p *Values) Add(key string, s Scalar) {
	cur, ok := p.vals[key]
	switch {
	case !ok:
		p.Set(key, Single(s))
	case !cur.seq:
		p.vals[key] = Seq(cur.Scalar(), s)
	default:
		cur.items = append(cur.items, s)
		p.vals[key] = cur
	}
}

// Get returns the value stored under key.
func (p *Values) Get(key string) (Value, bool) {
	v, ok := p.vals[key]
	return v, ok
}

// String returns the first scalar under key rendered as a string, or "" if absent.
func (p *Values) String(key string) string {
	v, ok := p.vals[key]
	if !ok {
		return ""
	}
	return v.Scalar().String()
}

// Has reports whether key is present, even with an undefined value.
func (p *Values) Has(key string) bool {
	_, ok := p.vals[key]
	return ok
}

// Keys returns the keys in insertion order.
func (p *Values) Keys() []string {
	out := make([]string, len(p.keys))
	copy(out, p.keys)
	return out
}

// Len returns the number of distinct keys.
func (p *Values) Len() int { return len(p.keys) }

// Equal reports whether both sets hold the same keys, in the same order, with equal values.
func (p *Values) Equal(o *Values) bool {
	if p.Len() != o.Len() {
		return false
	}
	for i, k := range p.keys {
		if o.keys[i] != k || !p.vals[k].equal(o.vals[k]) {
			return false
		}
	}
	return true
}
