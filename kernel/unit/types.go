// Package unit implements the system's universal tagged-variant value: the
// recursive data type that is simultaneously message payload, database
// record, program source and inter-task stream.
package unit

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
)

// Kind discriminates the variant carried by a Unit.
type Kind uint8

const (
	KindNone Kind = iota
	KindBool
	KindByte
	KindInt
	KindDec
	KindStr
	KindRef
	KindStream
	KindPair
	KindList
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindBool:
		return "bool"
	case KindByte:
		return "byte"
	case KindInt:
		return "int"
	case KindDec:
		return "dec"
	case KindStr:
		return "str"
	case KindRef:
		return "ref"
	case KindStream:
		return "stream"
	case KindPair:
		return "pair"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Unit is the algebraic sum described by the data model: every concrete
// variant type below implements it.
type Unit interface {
	Kind() Kind
	String() string
	// Equal reports structural equality, the contract Map/Find/Merge rely on.
	Equal(Unit) bool
}

// None is the absence sentinel.
type None struct{}

func (None) Kind() Kind         { return KindNone }
func (None) String() string     { return "-" }
func (None) Equal(u Unit) bool  { _, ok := u.(None); return ok }
func NewNone() Unit             { return None{} }

// Bool carries a boolean.
type Bool bool

func (Bool) Kind() Kind { return KindBool }
func (b Bool) String() string {
	if b {
		return "t"
	}
	return "f"
}
func (b Bool) Equal(u Unit) bool { o, ok := u.(Bool); return ok && o == b }

// Byte carries an 8-bit unsigned value, printed as hex.
type Byte byte

func (Byte) Kind() Kind          { return KindByte }
func (b Byte) String() string    { return fmt.Sprintf("0x%02x", byte(b)) }
func (b Byte) Equal(u Unit) bool { o, ok := u.(Byte); return ok && o == b }

// IntRepr selects the narrowest representation an Int actually holds.
type IntRepr uint8

const (
	IntI32 IntRepr = iota
	IntU32
	IntBig
)

// Int is a signed 32-bit, unsigned 32-bit, or arbitrary-precision integer.
// The parser always picks the narrowest exact representation; operations
// that need to widen (e.g. merges of two differently-repr'd ints never
// happen — Int values are opaque to merge) preserve whichever repr they
// were built with.
type Int struct {
	repr IntRepr
	i32  int32
	u32  uint32
	big  *big.Int
}

func NewInt(v int32) Int  { return Int{repr: IntI32, i32: v} }
func NewUint(v uint32) Int { return Int{repr: IntU32, u32: v} }
func NewIntBig(v *big.Int) Int {
	return Int{repr: IntBig, big: new(big.Int).Set(v)}
}

func (i Int) Repr() IntRepr { return i.repr }

func (Int) Kind() Kind { return KindInt }

func (i Int) String() string {
	switch i.repr {
	case IntI32:
		return fmt.Sprintf("%d", i.i32)
	case IntU32:
		return fmt.Sprintf("%d", i.u32)
	default:
		return i.big.String()
	}
}

// Equal compares by numeric value, not by stored representation: narrowing
// is a storage optimization, not part of a Unit's identity.
func (i Int) Equal(u Unit) bool {
	o, ok := u.(Int)
	if !ok {
		return false
	}
	return i.AsBigInt().Cmp(o.AsBigInt()) == 0
}

// AsInt32 returns the narrow signed value and whether it was the stored repr.
func (i Int) AsInt32() (int32, bool) { return i.i32, i.repr == IntI32 }

// AsUint32 returns the narrow unsigned value and whether it was the stored repr.
func (i Int) AsUint32() (uint32, bool) { return i.u32, i.repr == IntU32 }

// AsBigInt returns the value widened to *big.Int regardless of repr.
func (i Int) AsBigInt() *big.Int {
	switch i.repr {
	case IntI32:
		return big.NewInt(int64(i.i32))
	case IntU32:
		return new(big.Int).SetUint64(uint64(i.u32))
	default:
		return i.big
	}
}

// DecRepr selects the narrowest representation a Dec actually holds.
type DecRepr uint8

const (
	DecF32 DecRepr = iota
	DecBig
)

// Dec is a 32-bit float or an arbitrary-precision rational.
type Dec struct {
	repr DecRepr
	f32  float32
	rat  *big.Rat
}

func NewDec(v float32) Dec { return Dec{repr: DecF32, f32: v} }
func NewDecBig(v *big.Rat) Dec {
	return Dec{repr: DecBig, rat: new(big.Rat).Set(v)}
}

func (d Dec) Repr() DecRepr { return d.repr }

func (Dec) Kind() Kind { return KindDec }

func (d Dec) String() string {
	if d.repr == DecF32 {
		return formatF32(d.f32)
	}
	return ratToDecimalString(d.rat)
}

// ratToDecimalString renders r as "<int>.<int>" (the Dec text grammar) if it
// terminates within a reasonable number of digits, else falls back to
// numerator/denominator form for values that cannot.
func ratToDecimalString(r *big.Rat) string {
	for prec := 0; prec <= 64; prec++ {
		s := r.FloatString(prec)
		back, ok := new(big.Rat).SetString(s)
		if ok && back.Cmp(r) == 0 {
			if !strings.ContainsRune(s, '.') {
				s += ".0"
			}
			return s
		}
	}
	return r.RatString()
}

// Equal compares by numeric value, not by stored representation.
func (d Dec) Equal(u Unit) bool {
	o, ok := u.(Dec)
	if !ok {
		return false
	}
	return d.AsBigRat().Cmp(o.AsBigRat()) == 0
}

func (d Dec) AsFloat32() (float32, bool) { return d.f32, d.repr == DecF32 }
func (d Dec) AsBigRat() *big.Rat {
	if d.repr == DecBig {
		return d.rat
	}
	return new(big.Rat).SetFloat64(float64(d.f32))
}

// formatF32 renders a float with a decimal point always present, matching
// the "<int>.<int>" text grammar for Dec.
func formatF32(v float32) string {
	s := strconv.FormatFloat(float64(v), 'f', -1, 32)
	if strings.ContainsRune(s, '.') {
		return s
	}
	return s + ".0"
}

// Str is an arbitrary character sequence.
type Str string

func (Str) Kind() Kind { return KindStr }

// String renders s bare when it matches the identifier character class,
// else quoted with whichever of `` ` ``, `'`, `"` does not collide.
func (s Str) String() string {
	str := string(s)
	if isBareIdent(str) {
		return str
	}
	for _, q := range []byte{'`', '\'', '"'} {
		if !containsByte(str, q) {
			return string(q) + str + string(q)
		}
	}
	return "\"" + str + "\""
}
func (s Str) Equal(u Unit) bool { o, ok := u.(Str); return ok && o == s }

func containsByte(s string, b byte) bool {
	for i := 0; i < len(s); i++ {
		if s[i] == b {
			return true
		}
	}
	return false
}

// isBareIdent reports whether s can be printed without quoting.
func isBareIdent(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if !isIdentChar(c) {
			return false
		}
	}
	return true
}

func isIdentChar(c rune) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') ||
		c == '.' || c == '#' || c == '_'
}

// Ref names a path into another Unit, typically the RAM store root.
type Ref []string

func (Ref) Kind() Kind      { return KindRef }
func (r Ref) String() string {
	out := "@"
	for i, s := range r {
		if i > 0 {
			out += "."
		}
		out += s
	}
	return out
}
func (r Ref) Equal(u Unit) bool {
	o, ok := u.(Ref)
	if !ok || len(o) != len(r) {
		return false
	}
	for i := range r {
		if r[i] != o[i] {
			return false
		}
	}
	return true
}

// Addr is either the local service table or a remote node.
type Addr struct {
	Remote bool
	Parts  [8]uint16
}

// AddrLocal is the address of services registered on this node.
var AddrLocal = Addr{}

func NewAddrRemote(parts [8]uint16) Addr { return Addr{Remote: true, Parts: parts} }

func (a Addr) String() string {
	if !a.Remote {
		return "loc"
	}
	return fmt.Sprintf("0x%04x:0x%04x:0x%04x:0x%04x:0x%04x:0x%04x:0x%04x:0x%04x",
		a.Parts[0], a.Parts[1], a.Parts[2], a.Parts[3],
		a.Parts[4], a.Parts[5], a.Parts[6], a.Parts[7])
}

func (a Addr) Equal(o Addr) bool { return a == o }

// Stream binds a payload Unit to a service name and address: the in-grammar
// form of "send this there" (payload@service[:addr]).
type Stream struct {
	Inner   Unit
	Service string
	Addr    Addr
}

func (Stream) Kind() Kind { return KindStream }
func (s Stream) String() string {
	if s.Addr.Remote {
		return fmt.Sprintf("%s@%s:%s", s.Inner, s.Service, s.Addr)
	}
	return fmt.Sprintf("%s@%s", s.Inner, s.Service)
}
func (s Stream) Equal(u Unit) bool {
	o, ok := u.(Stream)
	return ok && o.Service == s.Service && o.Addr.Equal(s.Addr) && o.Inner.Equal(s.Inner)
}

// Pair is an anonymous two-tuple.
type Pair struct {
	First  Unit
	Second Unit
}

func (Pair) Kind() Kind        { return KindPair }
func (p Pair) String() string  { return fmt.Sprintf("(%s %s)", p.First, p.Second) }
func (p Pair) Equal(u Unit) bool {
	o, ok := u.(Pair)
	return ok && o.First.Equal(p.First) && o.Second.Equal(p.Second)
}

// List is an ordered sequence of Units.
type List []Unit

func (List) Kind() Kind { return KindList }
func (l List) String() string {
	out := "["
	for i, u := range l {
		if i > 0 {
			out += " "
		}
		out += u.String()
	}
	return out + "]"
}
func (l List) Equal(u Unit) bool {
	o, ok := u.(List)
	if !ok || len(o) != len(l) {
		return false
	}
	for i := range l {
		if !l[i].Equal(o[i]) {
			return false
		}
	}
	return true
}

// MapEntry is one (key, value) pair of a Map, order preserved.
type MapEntry struct {
	Key   Unit
	Value Unit
}

// Map is an ordered sequence of entries; lookup is first-key-wins.
type Map []MapEntry

func (Map) Kind() Kind { return KindMap }
func (m Map) String() string {
	out := "{"
	for i, e := range m {
		if i > 0 {
			out += " "
		}
		out += fmt.Sprintf("%s:%s", e.Key, e.Value)
	}
	return out + "}"
}
func (m Map) Equal(u Unit) bool {
	o, ok := u.(Map)
	if !ok || len(o) != len(m) {
		return false
	}
	for i := range m {
		if !m[i].Key.Equal(o[i].Key) || !m[i].Value.Equal(o[i].Value) {
			return false
		}
	}
	return true
}

// Get returns the first value under key, first-key-wins.
func (m Map) Get(key string) (Unit, bool) {
	for _, e := range m {
		if s, ok := e.Key.(Str); ok && string(s) == key {
			return e.Value, true
		}
	}
	return nil, false
}

