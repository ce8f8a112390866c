package unit

import (
	"math/big"
	"strconv"
	"strings"

	"vnix/kernel/kernerr"
)

// ParseText parses the canonical text grammar (§4.1) and returns the single
// Unit at the front of s, ignoring surrounding whitespace. Trailing
// non-whitespace input is an error: exactly one Unit is parsed per call.
func ParseText(s string) (Unit, error) {
	p := &parser{src: []rune(s)}
	p.skipWS()
	u, err := p.parseUnit()
	if err != nil {
		return nil, err
	}
	p.skipWS()
	if !p.eof() {
		return nil, kernerr.ParseError("TrailingInput", "unexpected content after unit")
	}
	return u, nil
}

type parser struct {
	src []rune
	pos int
}

func (p *parser) eof() bool { return p.pos >= len(p.src) }

func (p *parser) peek() rune {
	if p.eof() {
		return 0
	}
	return p.src[p.pos]
}

func (p *parser) peekAt(off int) rune {
	if p.pos+off >= len(p.src) {
		return 0
	}
	return p.src[p.pos+off]
}

func (p *parser) advance() rune {
	c := p.src[p.pos]
	p.pos++
	return c
}

func (p *parser) skipWS() {
	for !p.eof() && isSpace(p.peek()) {
		p.pos++
	}
}

func isSpace(c rune) bool { return c == ' ' || c == '\t' || c == '\n' || c == '\r' }

func isAlnum(c rune) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func isHexDigit(c rune) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func isDigit(c rune) bool { return c >= '0' && c <= '9' }

// parseUnit tries each production of §4.1 in order at the current position,
// then checks for a trailing @service binding (rule 11).
func (p *parser) parseUnit() (Unit, error) {
	inner, err := p.parseInner()
	if err != nil {
		return nil, err
	}
	if !p.eof() && p.peek() == '@' && p.pos+1 < len(p.src) {
		save := p.pos
		p.pos++
		if name, ok := p.tryIdentRun(); ok && name != "" {
			return Stream{Inner: inner, Service: name, Addr: AddrLocal}, nil
		}
		p.pos = save
	}
	return inner, nil
}

func (p *parser) parseInner() (Unit, error) {
	if p.eof() {
		return nil, kernerr.ParseError("UnexpectedEnd", "expected a unit")
	}
	c := p.peek()

	// 1. None
	if c == '-' && !isAlnum(p.peekAt(1)) && p.peekAt(1) != '.' {
		p.pos++
		return None{}, nil
	}

	// 2. Bool
	if (c == 't' || c == 'f') && !isAlnum(p.peekAt(1)) {
		p.pos++
		return Bool(c == 't'), nil
	}

	// 3. Byte: 0x + exactly two hex digits
	if c == '0' && p.peekAt(1) == 'x' && isHexDigit(p.peekAt(2)) && isHexDigit(p.peekAt(3)) &&
		!isAlnum(p.peekAt(4)) {
		hex := string(p.src[p.pos+2 : p.pos+4])
		v, err := strconv.ParseUint(hex, 16, 8)
		if err != nil {
			return nil, kernerr.ParseError("BadByte", err.Error())
		}
		p.pos += 4
		return Byte(v), nil
	}

	// Quoted strings
	if c == '`' || c == '\'' || c == '"' {
		return p.parseQuoted(c)
	}

	// 4/5. Number: Dec or Int
	if c == '-' || isDigit(c) {
		if u, ok, err := p.tryParseNumber(); ok || err != nil {
			return u, err
		}
	}

	// 7. Ref
	if c == '@' {
		p.pos++
		return p.parseRef()
	}

	// 8. Pair
	if c == '(' {
		return p.parsePair()
	}

	// 9. List
	if c == '[' {
		return p.parseList()
	}

	// 10. Map
	if c == '{' {
		return p.parseMap()
	}

	// 6. Bare identifier → Str
	if name, ok := p.tryIdentRun(); ok {
		return Str(name), nil
	}

	return nil, kernerr.ParseError("UnexpectedChar", "unrecognized input at position "+strconv.Itoa(p.pos))
}

// tryIdentRun consumes a maximal run of identifier characters.
func (p *parser) tryIdentRun() (string, bool) {
	start := p.pos
	for !p.eof() && isIdentChar(p.peek()) {
		p.pos++
	}
	if p.pos == start {
		return "", false
	}
	return string(p.src[start:p.pos]), true
}

func (p *parser) parseQuoted(q rune) (Unit, error) {
	p.pos++ // opening quote
	start := p.pos
	for {
		if p.eof() {
			return nil, kernerr.ParseError("UnclosedQuote", "")
		}
		if p.peek() == q {
			s := string(p.src[start:p.pos])
			p.pos++
			return Str(s), nil
		}
		p.pos++
	}
}

// tryParseNumber attempts Dec (item 4) then Int (item 5). Returns ok=false
// if the current position is not actually a number (lets '-' fall through
// when nothing numeric follows, though the grammar guarantees a digit run).
func (p *parser) tryParseNumber() (Unit, bool, error) {
	start := p.pos
	neg := false
	if p.peek() == '-' {
		neg = true
		p.pos++
	}
	digStart := p.pos
	for !p.eof() && isDigit(p.peek()) {
		p.pos++
	}
	if p.pos == digStart {
		p.pos = start
		return nil, false, nil
	}
	intPart := string(p.src[digStart:p.pos])

	if !p.eof() && p.peek() == '.' && isDigit(p.peekAt(1)) {
		p.pos++
		fracStart := p.pos
		for !p.eof() && isDigit(p.peek()) {
			p.pos++
		}
		fracPart := string(p.src[fracStart:p.pos])
		return p.finishDec(neg, intPart, fracPart), true, nil
	}

	u, err := finishInt(neg, intPart)
	return u, true, err
}

func (p *parser) finishDec(neg bool, intPart, fracPart string) Unit {
	text := intPart + "." + fracPart
	if neg {
		text = "-" + text
	}
	f, err := strconv.ParseFloat(text, 32)
	if err == nil {
		f32 := float32(f)
		// Exactness check: does the literal round-trip through float32?
		back := new(big.Rat)
		back.SetString(strconv.FormatFloat(float64(f32), 'f', -1, 32))
		want := new(big.Rat)
		want.SetString(text)
		if back.Cmp(want) == 0 {
			return NewDec(f32)
		}
	}
	r := new(big.Rat)
	r.SetString(text)
	return NewDecBig(r)
}

func finishInt(neg bool, digits string) (Unit, error) {
	text := digits
	if neg {
		text = "-" + digits
	}
	bi, ok := new(big.Int).SetString(text, 10)
	if !ok {
		return nil, kernerr.ParseError("BadInt", text)
	}
	if bi.IsInt64() {
		v := bi.Int64()
		if v >= -2147483648 && v <= 2147483647 {
			return NewInt(int32(v)), nil
		}
	}
	if bi.Sign() >= 0 && bi.IsUint64() {
		v := bi.Uint64()
		if v <= 4294967295 {
			return NewUint(uint32(v)), nil
		}
	}
	return NewIntBig(bi), nil
}

func (p *parser) parseRef() (Unit, error) {
	var segs []string
	for {
		name, ok := p.tryIdentRun()
		if !ok {
			return nil, kernerr.ParseError("BadRef", "expected path segment")
		}
		// Split dotted identifier run into segments; '.' is itself a valid
		// identifier character class member, so a run like "a.b.c" must be
		// split on '.' to produce path segments.
		for _, seg := range strings.Split(name, ".") {
			segs = append(segs, seg)
		}
		break
	}
	return Ref(segs), nil
}

func (p *parser) parsePair() (Unit, error) {
	p.pos++ // '('
	p.skipWS()
	a, err := p.parseUnit()
	if err != nil {
		return nil, err
	}
	if !p.expectWS() {
		return nil, kernerr.ParseError("BadPair", "expected whitespace between pair elements")
	}
	p.skipWS()
	b, err := p.parseUnit()
	if err != nil {
		return nil, err
	}
	p.skipWS()
	if p.eof() || p.peek() != ')' {
		return nil, kernerr.ParseError("UnclosedPair", "")
	}
	p.pos++
	return Pair{First: a, Second: b}, nil
}

// expectWS requires at least one whitespace char be consumed (rule 8).
func (p *parser) expectWS() bool {
	if p.eof() || !isSpace(p.peek()) {
		return false
	}
	for !p.eof() && isSpace(p.peek()) {
		p.pos++
	}
	return true
}

func (p *parser) parseList() (Unit, error) {
	p.pos++ // '['
	p.skipWS()
	var items List
	for {
		if p.eof() {
			return nil, kernerr.ParseError("UnclosedList", "")
		}
		if p.peek() == ']' {
			p.pos++
			return items, nil
		}
		u, err := p.parseUnit()
		if err != nil {
			return nil, err
		}
		items = append(items, u)
		p.skipWS()
	}
}

func (p *parser) parseMap() (Unit, error) {
	p.pos++ // '{'
	p.skipWS()
	var entries Map
	for {
		if p.eof() {
			return nil, kernerr.ParseError("UnclosedMap", "")
		}
		if p.peek() == '}' {
			p.pos++
			return entries, nil
		}
		k, err := p.parseUnit()
		if err != nil {
			return nil, err
		}
		p.skipWS()
		if p.eof() || p.peek() != ':' {
			return nil, kernerr.ParseError("BadMap", "expected ':' after key")
		}
		p.pos++
		p.skipWS()
		v, err := p.parseUnit()
		if err != nil {
			return nil, err
		}
		entries = append(entries, MapEntry{Key: k, Value: v})
		p.skipWS()
	}
}
