package ifc

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode/utf16"
)

// ErrNotStep is returned when the input does not start with the
// ISO-10303-21 marker
var ErrNotStep = errors.New("not an ISO-10303-21 file")

// SyntaxError describes a malformed file
type SyntaxError struct {
	Line int
	Msg  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

// ReadFile parses a STEP file from disk
func ReadFile(filename string) (*File, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return Parse(data)
}

// Read parses a STEP file from a reader
func Read(r io.Reader) (*File, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	return Parse(data)
}

// Parse parses the contents of a STEP physical file
func Parse(data []byte) (*File, error) {
	p := &parser{data: data}
	f := &File{Entities: make(map[int]*Entity)}

	p.skipSpace()
	if p.keyword() != "ISO-10303-21" {
		return nil, ErrNotStep
	}
	if err := p.expect(';'); err != nil {
		return nil, err
	}

	section := ""
	for {
		p.skipSpace()
		if p.eof() {
			return nil, p.errorf("unexpected end of file")
		}

		if p.peek() == '#' {
			if section != "DATA" {
				return nil, p.errorf("instance outside of DATA section")
			}
			e, err := p.entity()
			if err != nil {
				return nil, err
			}
			if _, dup := f.Entities[e.ID]; dup {
				return nil, p.errorf("duplicate instance #%d", e.ID)
			}
			f.Entities[e.ID] = e
			f.order = append(f.order, e.ID)
			continue
		}

		kw := p.keyword()
		if kw == "" {
			return nil, p.errorf("unexpected character %q", p.peek())
		}
		p.skipSpace()

		switch {
		case p.peek() == ';':
			p.pos++
			switch kw {
			case "HEADER", "DATA":
				section = kw
			case "ENDSEC":
				section = ""
			case "END-ISO-10303-21":
				return f, nil
			default:
				return nil, p.errorf("unexpected keyword %s", kw)
			}
		case p.peek() == '(':
			args, err := p.list()
			if err != nil {
				return nil, err
			}
			if err := p.expect(';'); err != nil {
				return nil, err
			}
			if kw == "DATA" {
				section = "DATA"
			} else if section == "HEADER" {
				f.applyHeader(kw, args)
			}
		default:
			return nil, p.errorf("expected ';' or '(' after %s", kw)
		}
	}
}

func (f *File) applyHeader(kw string, args []Value) {
	switch kw {
	case "FILE_SCHEMA":
		if len(args) > 0 && args[0].Kind == KindList && len(args[0].List) > 0 {
			f.Schema, _ = args[0].List[0].AsString()
		}
	case "FILE_NAME":
		if len(args) > 0 {
			f.Name, _ = args[0].AsString()
		}
	case "FILE_DESCRIPTION":
		if len(args) > 0 && args[0].Kind == KindList {
			for _, v := range args[0].List {
				if s, ok := v.AsString(); ok {
					f.Description = append(f.Description, s)
				}
			}
		}
	}
}

type parser struct {
	data []byte
	pos  int
}

func (p *parser) eof() bool {
	return p.pos >= len(p.data)
}

func (p *parser) peek() byte {
	if p.eof() {
		return 0
	}
	return p.data[p.pos]
}

func (p *parser) errorf(format string, args ...any) error {
	end := min(p.pos, len(p.data))
	line := bytes.Count(p.data[:end], []byte{'\n'}) + 1
	return &SyntaxError{Line: line, Msg: fmt.Sprintf(format, args...)}
}

// skipSpace skips whitespace and /* */ comments
func (p *parser) skipSpace() {
	for !p.eof() {
		c := p.data[p.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			p.pos++
		case c == '/' && p.pos+1 < len(p.data) && p.data[p.pos+1] == '*':
			end := bytes.Index(p.data[p.pos+2:], []byte("*/"))
			if end < 0 {
				p.pos = len(p.data)
				return
			}
			p.pos += end + 4
		default:
			return
		}
	}
}

func (p *parser) expect(c byte) error {
	p.skipSpace()
	if p.peek() != c {
		return p.errorf("expected %q", c)
	}
	p.pos++
	return nil
}

func isKeywordByte(c byte) bool {
	return c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z' || c >= '0' && c <= '9' || c == '_' || c == '-'
}

func (p *parser) keyword() string {
	start := p.pos
	for !p.eof() && isKeywordByte(p.data[p.pos]) {
		p.pos++
	}
	return strings.ToUpper(string(p.data[start:p.pos]))
}

func (p *parser) integer() (int, error) {
	start := p.pos
	for !p.eof() && p.data[p.pos] >= '0' && p.data[p.pos] <= '9' {
		p.pos++
	}
	if start == p.pos {
		return 0, p.errorf("expected instance number")
	}
	return strconv.Atoi(string(p.data[start:p.pos]))
}

// entity parses "#id = TYPE(args);"
func (p *parser) entity() (*Entity, error) {
	p.pos++ // '#'
	id, err := p.integer()
	if err != nil {
		return nil, err
	}
	if err := p.expect('='); err != nil {
		return nil, err
	}
	p.skipSpace()

	e := &Entity{ID: id}
	if p.peek() == '(' {
		// complex instance: (TYPEA(...) TYPEB(...)), flattened in order
		p.pos++
		for {
			p.skipSpace()
			if p.peek() == ')' {
				p.pos++
				break
			}
			typ := p.keyword()
			if typ == "" {
				return nil, p.errorf("expected entity type in complex instance #%d", id)
			}
			args, err := p.list()
			if err != nil {
				return nil, err
			}
			if e.Type == "" {
				e.Type = typ
			}
			e.Args = append(e.Args, args...)
		}
	} else {
		e.Type = p.keyword()
		if e.Type == "" {
			return nil, p.errorf("expected entity type for #%d", id)
		}
		e.Args, err = p.list()
		if err != nil {
			return nil, err
		}
	}
	if err := p.expect(';'); err != nil {
		return nil, err
	}
	return e, nil
}

// list parses a parenthesized, comma separated parameter list
func (p *parser) list() ([]Value, error) {
	if err := p.expect('('); err != nil {
		return nil, err
	}
	var items []Value
	p.skipSpace()
	if p.peek() == ')' {
		p.pos++
		return items, nil
	}
	for {
		v, err := p.value()
		if err != nil {
			return nil, err
		}
		items = append(items, v)
		p.skipSpace()
		switch p.peek() {
		case ',':
			p.pos++
		case ')':
			p.pos++
			return items, nil
		default:
			return nil, p.errorf("expected ',' or ')' in parameter list")
		}
	}
}

func (p *parser) value() (Value, error) {
	p.skipSpace()
	if p.eof() {
		return Value{}, p.errorf("unexpected end of file in parameter list")
	}
	c := p.peek()
	switch {
	case c == '$':
		p.pos++
		return Value{Kind: KindNull}, nil
	case c == '*':
		p.pos++
		return Value{Kind: KindDerived}, nil
	case c == '#':
		p.pos++
		id, err := p.integer()
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: KindRef, Ref: id}, nil
	case c == '\'':
		s, err := p.str()
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: KindString, Str: s}, nil
	case c == '"':
		end := bytes.IndexByte(p.data[p.pos+1:], '"')
		if end < 0 {
			return Value{}, p.errorf("unterminated binary literal")
		}
		s := string(p.data[p.pos+1 : p.pos+1+end])
		p.pos += end + 2
		return Value{Kind: KindBinary, Str: s}, nil
	case c == '.':
		end := bytes.IndexByte(p.data[p.pos+1:], '.')
		if end < 0 {
			return Value{}, p.errorf("unterminated enumeration")
		}
		s := string(p.data[p.pos+1 : p.pos+1+end])
		p.pos += end + 2
		return Value{Kind: KindEnum, Str: strings.ToUpper(s)}, nil
	case c == '(':
		items, err := p.list()
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: KindList, List: items}, nil
	case c == '-' || c == '+' || c >= '0' && c <= '9':
		return p.number()
	case c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z':
		typ := p.keyword()
		inner, err := p.list()
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: KindTyped, Str: typ, List: inner}, nil
	}
	return Value{}, p.errorf("unexpected character %q", c)
}

func (p *parser) number() (Value, error) {
	start := p.pos
	isReal := false
	p.pos++
	for !p.eof() {
		c := p.data[p.pos]
		if c >= '0' && c <= '9' {
			p.pos++
			continue
		}
		if c == '.' || c == 'E' || c == 'e' || ((c == '-' || c == '+') && (p.data[p.pos-1] == 'E' || p.data[p.pos-1] == 'e')) {
			isReal = true
			p.pos++
			continue
		}
		break
	}
	text := string(p.data[start:p.pos])
	num, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return Value{}, p.errorf("invalid number %q", text)
	}
	if isReal {
		return Value{Kind: KindReal, Num: num}, nil
	}
	return Value{Kind: KindInteger, Num: num}, nil
}

// str parses a quoted string, '' is an escaped quote
func (p *parser) str() (string, error) {
	p.pos++
	var b bytes.Buffer
	for {
		if p.eof() {
			return "", p.errorf("unterminated string")
		}
		c := p.data[p.pos]
		if c == '\'' {
			if p.pos+1 < len(p.data) && p.data[p.pos+1] == '\'' {
				b.WriteByte('\'')
				p.pos += 2
				continue
			}
			p.pos++
			return decodeString(b.String()), nil
		}
		b.WriteByte(c)
		p.pos++
	}
}

// decodeString resolves the \X\, \X2\, \X4\ and \S\ control directives
func decodeString(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); {
		rest := s[i:]
		switch {
		case strings.HasPrefix(rest, `\X2\`), strings.HasPrefix(rest, `\X4\`):
			width := 4
			if rest[2] == '4' {
				width = 8
			}
			end := strings.Index(rest[4:], `\X0\`)
			if end < 0 {
				b.WriteString(rest)
				return b.String()
			}
			hex := rest[4 : 4+end]
			var units []uint16
			for j := 0; j+width <= len(hex); j += width {
				n, err := strconv.ParseUint(hex[j:j+width], 16, 32)
				if err != nil {
					continue
				}
				if width == 8 {
					b.WriteRune(rune(n))
				} else {
					units = append(units, uint16(n))
				}
			}
			if len(units) > 0 {
				b.WriteString(string(utf16.Decode(units)))
			}
			i += 4 + end + 4
		case strings.HasPrefix(rest, `\X\`) && len(rest) >= 5:
			if n, err := strconv.ParseUint(rest[3:5], 16, 8); err == nil {
				b.WriteRune(rune(n))
			}
			i += 5
		case strings.HasPrefix(rest, `\S\`) && len(rest) >= 4:
			b.WriteRune(rune(rest[3]) + 128)
			i += 4
		case strings.HasPrefix(rest, `\\`):
			b.WriteByte('\\')
			i += 2
		default:
			b.WriteByte(s[i])
			i++
		}
	}
	return b.String()
}
