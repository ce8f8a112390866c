package unit

import (
	"encoding/binary"
	"math"
	"math/big"

	"vnix/kernel/kernerr"
)

// Binary tags (§4.2). Int is split into narrower sub-bands than the
// variant table lists, to satisfy the binary-narrowing testable property:
// zero gets its own zero-payload tag, then i8/u8/i16/u16/i32/u32 bands,
// falling back to an arbitrary-precision tag only when none of those fit.
type tag byte

const (
	tagNone tag = iota
	tagBool
	tagByte
	tagIntZero
	tagIntI8
	tagIntU8
	tagIntI16
	tagIntU16
	tagIntI32
	tagIntU32
	tagIntBig
	tagDecF32
	tagDecBig
	tagStr
	tagRef
	tagPair
	tagList
	tagMap
	tagStream
	tagAddrLoc
	tagAddrRemote
)

// EncodeBinary renders u in the compact binary grammar.
func EncodeBinary(u Unit) ([]byte, error) {
	var buf []byte
	return appendUnit(buf, u)
}

func appendUnit(buf []byte, u Unit) ([]byte, error) {
	switch v := u.(type) {
	case None:
		return append(buf, byte(tagNone)), nil
	case Bool:
		b := byte(0)
		if v {
			b = 1
		}
		return append(buf, byte(tagBool), b), nil
	case Byte:
		return append(buf, byte(tagByte), byte(v)), nil
	case Int:
		return appendInt(buf, v), nil
	case Dec:
		return appendDec(buf, v), nil
	case Str:
		return appendLenStr(append(buf, byte(tagStr)), string(v)), nil
	case Ref:
		joined := ""
		for i, s := range v {
			if i > 0 {
				joined += "."
			}
			joined += s
		}
		return appendLenStr(append(buf, byte(tagRef)), joined), nil
	case Pair:
		buf = append(buf, byte(tagPair))
		var err error
		buf, err = appendUnit(buf, v.First)
		if err != nil {
			return nil, err
		}
		return appendUnit(buf, v.Second)
	case List:
		buf = append(buf, byte(tagList))
		buf = appendU32(buf, uint32(len(v)))
		var err error
		for _, el := range v {
			buf, err = appendUnit(buf, el)
			if err != nil {
				return nil, err
			}
		}
		return buf, nil
	case Map:
		buf = append(buf, byte(tagMap))
		buf = appendU32(buf, uint32(len(v)))
		var err error
		for _, e := range v {
			buf, err = appendUnit(buf, e.Key)
			if err != nil {
				return nil, err
			}
			buf, err = appendUnit(buf, e.Value)
			if err != nil {
				return nil, err
			}
		}
		return buf, nil
	case Stream:
		buf = append(buf, byte(tagStream))
		var err error
		buf, err = appendUnit(buf, v.Inner)
		if err != nil {
			return nil, err
		}
		buf = appendLenStr(buf, v.Service)
		if v.Addr.Remote {
			buf = append(buf, byte(tagAddrRemote))
			for _, p := range v.Addr.Parts {
				buf = appendU16(buf, p)
			}
		} else {
			buf = append(buf, byte(tagAddrLoc))
		}
		return buf, nil
	default:
		return nil, kernerr.ParseError("UnknownVariant", "cannot encode unit")
	}
}

func appendU32(buf []byte, v uint32) []byte {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	return append(buf, tmp[:]...)
}

func appendU16(buf []byte, v uint16) []byte {
	var tmp [2]byte
	binary.LittleEndian.PutUint16(tmp[:], v)
	return append(buf, tmp[:]...)
}

func appendLenStr(buf []byte, s string) []byte {
	buf = appendU32(buf, uint32(len(s)))
	return append(buf, []byte(s)...)
}

func appendInt(buf []byte, i Int) []byte {
	bi := i.AsBigInt()
	if bi.Sign() == 0 {
		return append(buf, byte(tagIntZero))
	}
	if bi.IsInt64() {
		v := bi.Int64()
		switch {
		case v >= -128 && v <= 127:
			return append(buf, byte(tagIntI8), byte(int8(v)))
		case v >= 0 && v <= 255:
			return append(buf, byte(tagIntU8), byte(v))
		case v >= -32768 && v <= 32767:
			buf = append(buf, byte(tagIntI16))
			return appendU16(buf, uint16(int16(v)))
		case v >= 0 && v <= 65535:
			buf = append(buf, byte(tagIntU16))
			return appendU16(buf, uint16(v))
		case v >= -2147483648 && v <= 2147483647:
			buf = append(buf, byte(tagIntI32))
			return appendU32(buf, uint32(int32(v)))
		case v >= 0 && v <= 4294967295:
			buf = append(buf, byte(tagIntU32))
			return appendU32(buf, uint32(v))
		}
	}
	if bi.Sign() >= 0 && bi.IsUint64() {
		v := bi.Uint64()
		if v <= 4294967295 {
			buf = append(buf, byte(tagIntU32))
			return appendU32(buf, uint32(v))
		}
	}
	return appendBigInt(append(buf, byte(tagIntBig)), bi)
}

func appendBigInt(buf []byte, bi *big.Int) []byte {
	sign := byte(0)
	if bi.Sign() < 0 {
		sign = 1
	}
	mag := new(big.Int).Abs(bi).Bytes() // big-endian magnitude
	littleEndianMag := reverseBytes(mag)
	buf = append(buf, sign)
	buf = appendU32(buf, uint32(len(littleEndianMag)))
	return append(buf, littleEndianMag...)
}

func reverseBytes(b []byte) []byte {
	out := make([]byte, len(b))
	for i, c := range b {
		out[len(b)-1-i] = c
	}
	return out
}

func appendDec(buf []byte, d Dec) []byte {
	if d.repr == DecF32 {
		buf = append(buf, byte(tagDecF32))
		return appendU32(buf, math.Float32bits(d.f32))
	}
	if f, exact := d.rat.Float32(); exact {
		buf = append(buf, byte(tagDecF32))
		return appendU32(buf, math.Float32bits(f))
	}
	buf = append(buf, byte(tagDecBig))
	buf = appendBigInt(buf, d.rat.Num())
	return appendBigInt(buf, d.rat.Denom())
}

// ParseBinary decodes one Unit and returns the number of bytes consumed.
func ParseBinary(data []byte) (Unit, int, error) {
	return decodeUnit(data)
}

func need(data []byte, n int) error {
	if len(data) < n {
		return kernerr.ParseError("UnexpectedEOF", "truncated binary unit")
	}
	return nil
}

func decodeUnit(data []byte) (Unit, int, error) {
	if err := need(data, 1); err != nil {
		return nil, 0, err
	}
	t := tag(data[0])
	rest := data[1:]
	pos := 1
	switch t {
	case tagNone:
		return None{}, pos, nil
	case tagBool:
		if err := need(rest, 1); err != nil {
			return nil, 0, err
		}
		return Bool(rest[0] != 0), pos + 1, nil
	case tagByte:
		if err := need(rest, 1); err != nil {
			return nil, 0, err
		}
		return Byte(rest[0]), pos + 1, nil
	case tagIntZero:
		return NewInt(0), pos, nil
	case tagIntI8:
		if err := need(rest, 1); err != nil {
			return nil, 0, err
		}
		return NewInt(int32(int8(rest[0]))), pos + 1, nil
	case tagIntU8:
		if err := need(rest, 1); err != nil {
			return nil, 0, err
		}
		return NewInt(int32(rest[0])), pos + 1, nil
	case tagIntI16:
		if err := need(rest, 2); err != nil {
			return nil, 0, err
		}
		v := int16(binary.LittleEndian.Uint16(rest))
		return NewInt(int32(v)), pos + 2, nil
	case tagIntU16:
		if err := need(rest, 2); err != nil {
			return nil, 0, err
		}
		v := binary.LittleEndian.Uint16(rest)
		return NewInt(int32(v)), pos + 2, nil
	case tagIntI32:
		if err := need(rest, 4); err != nil {
			return nil, 0, err
		}
		v := int32(binary.LittleEndian.Uint32(rest))
		return NewInt(v), pos + 4, nil
	case tagIntU32:
		if err := need(rest, 4); err != nil {
			return nil, 0, err
		}
		v := binary.LittleEndian.Uint32(rest)
		return NewUint(v), pos + 4, nil
	case tagIntBig:
		bi, n, err := decodeBigInt(rest)
		if err != nil {
			return nil, 0, err
		}
		return NewIntBig(bi), pos + n, nil
	case tagDecF32:
		if err := need(rest, 4); err != nil {
			return nil, 0, err
		}
		bits := binary.LittleEndian.Uint32(rest)
		return NewDec(math.Float32frombits(bits)), pos + 4, nil
	case tagDecBig:
		num, n1, err := decodeBigInt(rest)
		if err != nil {
			return nil, 0, err
		}
		den, n2, err := decodeBigInt(rest[n1:])
		if err != nil {
			return nil, 0, err
		}
		r := new(big.Rat).SetFrac(num, den)
		return NewDecBig(r), pos + n1 + n2, nil
	case tagStr:
		s, n, err := decodeLenStr(rest)
		if err != nil {
			return nil, 0, err
		}
		return Str(s), pos + n, nil
	case tagRef:
		s, n, err := decodeLenStr(rest)
		if err != nil {
			return nil, 0, err
		}
		segs, err := splitValidRef(s)
		if err != nil {
			return nil, 0, err
		}
		return Ref(segs), pos + n, nil
	case tagPair:
		a, n1, err := decodeUnit(rest)
		if err != nil {
			return nil, 0, err
		}
		b, n2, err := decodeUnit(rest[n1:])
		if err != nil {
			return nil, 0, err
		}
		return Pair{First: a, Second: b}, pos + n1 + n2, nil
	case tagList:
		if err := need(rest, 4); err != nil {
			return nil, 0, err
		}
		count := binary.LittleEndian.Uint32(rest)
		off := 4
		items := make(List, 0, count)
		for i := uint32(0); i < count; i++ {
			u, n, err := decodeUnit(rest[off:])
			if err != nil {
				return nil, 0, err
			}
			items = append(items, u)
			off += n
		}
		return items, pos + off, nil
	case tagMap:
		if err := need(rest, 4); err != nil {
			return nil, 0, err
		}
		count := binary.LittleEndian.Uint32(rest)
		off := 4
		entries := make(Map, 0, count)
		for i := uint32(0); i < count; i++ {
			k, n1, err := decodeUnit(rest[off:])
			if err != nil {
				return nil, 0, err
			}
			off += n1
			v, n2, err := decodeUnit(rest[off:])
			if err != nil {
				return nil, 0, err
			}
			off += n2
			entries = append(entries, MapEntry{Key: k, Value: v})
		}
		return entries, pos + off, nil
	case tagStream:
		inner, n1, err := decodeUnit(rest)
		if err != nil {
			return nil, 0, err
		}
		off := n1
		name, n2, err := decodeLenStr(rest[off:])
		if err != nil {
			return nil, 0, err
		}
		off += n2
		if err := need(rest[off:], 1); err != nil {
			return nil, 0, err
		}
		addrTag := rest[off]
		off++
		var addr Addr
		switch tag(addrTag) {
		case tagAddrLoc:
			addr = AddrLocal
		case tagAddrRemote:
			var parts [8]uint16
			for i := 0; i < 8; i++ {
				if err := need(rest[off:], 2); err != nil {
					return nil, 0, err
				}
				parts[i] = binary.LittleEndian.Uint16(rest[off:])
				off += 2
			}
			addr = NewAddrRemote(parts)
		default:
			return nil, 0, kernerr.ParseError("BadAddrTag", "")
		}
		return Stream{Inner: inner, Service: name, Addr: addr}, pos + off, nil
	default:
		return nil, 0, kernerr.ParseError("UnknownTag", "")
	}
}

func decodeLenStr(data []byte) (string, int, error) {
	if err := need(data, 4); err != nil {
		return "", 0, err
	}
	n := binary.LittleEndian.Uint32(data)
	if err := need(data[4:], int(n)); err != nil {
		return "", 0, err
	}
	return string(data[4 : 4+n]), 4 + int(n), nil
}

func decodeBigInt(data []byte) (*big.Int, int, error) {
	if err := need(data, 1); err != nil {
		return nil, 0, err
	}
	sign := data[0]
	if err := need(data[1:], 4); err != nil {
		return nil, 0, err
	}
	n := binary.LittleEndian.Uint32(data[1:])
	if err := need(data[5:], int(n)); err != nil {
		return nil, 0, err
	}
	littleEndianMag := data[5 : 5+n]
	mag := reverseBytes(littleEndianMag)
	bi := new(big.Int).SetBytes(mag)
	if sign == 1 {
		bi.Neg(bi)
	}
	return bi, 5 + int(n), nil
}

func splitValidRef(s string) ([]string, error) {
	if s == "" {
		return nil, nil
	}
	var segs []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == '.' {
			seg := s[start:i]
			for _, c := range seg {
				if !isIdentChar(c) {
					return nil, kernerr.ParseError("BadRef", "invalid ref segment")
				}
			}
			segs = append(segs, seg)
			start = i + 1
		}
	}
	return segs, nil
}
