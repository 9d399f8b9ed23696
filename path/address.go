package path

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind distinguishes named fields from sequence elements.
type Kind uint8

const (
	KindField Kind = iota + 1
	KindElem
)

// Segment is one step of an Address.
type Segment struct {
	Kind  Kind
	Token string
}

// Field selects a struct field or map entry by name.
func Field(name string) Segment {
	return Segment{Kind: KindField, Token: name}
}

// Key selects the element of an identity-keyed sequence whose identity is id.
func Key(id string) Segment {
	return Segment{Kind: KindElem, Token: id}
}

// Index selects the element at position i of a positional sequence.
func Index(i int) Segment {
	return Segment{Kind: KindElem, Token: strconv.Itoa(i)}
}

func (s Segment) String() string {
	token := s.Token
	if !isBare(token) {
		token = strconv.Quote(token)
	}
	if s.Kind == KindElem {
		return "[" + token + "]"
	}
	return token
}

// Address names a node inside a state tree. The empty address is the root.
type Address []Segment

// Root is the address of the whole tree.
var Root Address

// New builds an address from segments, detached from the argument slice.
func New(segments ...Segment) Address {
	if len(segments) == 0 {
		return nil
	}
	out := make(Address, len(segments))
	copy(out, segments)
	return out
}

// With returns a new address extended by segments. a is never modified.
func (a Address) With(segments ...Segment) Address {
	if len(a)+len(segments) == 0 {
		return nil
	}
	out := make(Address, 0, len(a)+len(segments))
	out = append(out, a...)
	return append(out, segments...)
}

func (a Address) Field(name string) Address { return a.With(Field(name)) }

func (a Address) Key(id string) Address { return a.With(Key(id)) }

func (a Address) Index(i int) Address { return a.With(Index(i)) }

func (a Address) IsRoot() bool { return len(a) == 0 }

// Parent returns the address one level up. The parent of the root is the root.
func (a Address) Parent() Address {
	if len(a) <= 1 {
		return nil
	}
	return New(a[:len(a)-1]...)
}

// Equal reports whether both addresses have structurally equal segments.
func (a Address) Equal(b Address) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// HasPrefix reports whether prefix equals a or is one of its ancestors.
func (a Address) HasPrefix(prefix Address) bool {
	if len(prefix) > len(a) {
		return false
	}
	return a[:len(prefix)].Equal(prefix)
}

// Overlaps reports whether a and b are equal or one is an ancestor of the
// other. A write at b is visible to a reader of a exactly when they overlap.
func (a Address) Overlaps(b Address) bool {
	return a.HasPrefix(b) || b.HasPrefix(a)
}

func (a Address) String() string {
	var b strings.Builder
	for i, seg := range a {
		if seg.Kind == KindField && i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(seg.String())
	}
	return b.String()
}

// MarshalText encodes the canonical form so addresses serialize as strings.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// MustParse is like Parse but panics on malformed input. Use it for literals.
func MustParse(s string) Address {
	addr, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return addr
}

// Parse reads the canonical form produced by Address.String. The empty string
// is the root address.
func Parse(s string) (Address, error) {
	p := parser{src: s}
	return p.parse()
}

type parser struct {
	src string
	pos int
}

func (p *parser) parse() (Address, error) {
	var out Address
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch {
		case c == '[':
			p.pos++
			token, err := p.token()
			if err != nil {
				return nil, err
			}
			if p.pos >= len(p.src) || p.src[p.pos] != ']' {
				return nil, p.fail("missing ']'")
			}
			p.pos++
			out = append(out, Key(token))
		case c == '.' && len(out) > 0:
			p.pos++
			token, err := p.token()
			if err != nil {
				return nil, err
			}
			out = append(out, Field(token))
		case len(out) == 0:
			token, err := p.token()
			if err != nil {
				return nil, err
			}
			out = append(out, Field(token))
		default:
			return nil, p.fail(fmt.Sprintf("unexpected %q", c))
		}
	}
	return out, nil
}

func (p *parser) token() (string, error) {
	if p.pos < len(p.src) && p.src[p.pos] == '"' {
		quoted, err := strconv.QuotedPrefix(p.src[p.pos:])
		if err != nil {
			return "", p.fail("bad quoted token")
		}
		p.pos += len(quoted)
		return strconv.Unquote(quoted)
	}
	start := p.pos
	for p.pos < len(p.src) && isBareByte(p.src[p.pos]) {
		p.pos++
	}
	if start == p.pos {
		return "", p.fail("empty segment")
	}
	return p.src[start:p.pos], nil
}

func (p *parser) fail(reason string) error {
	return fmt.Errorf("%w: %q at offset %d: %s", ErrInvalidAddress, p.src, p.pos, reason)
}

func isBare(token string) bool {
	if token == "" {
		return false
	}
	for i := 0; i < len(token); i++ {
		if !isBareByte(token[i]) {
			return false
		}
	}
	return true
}

func isBareByte(c byte) bool {
	return c == '_' || c == '-' ||
		('a' <= c && c <= 'z') ||
		('A' <= c && c <= 'Z') ||
		('0' <= c && c <= '9')
}
