package launch

import (
	"encoding/json"
	"fmt"
)

// span is a half-open byte range [start, end).
type span struct{ start, end int }

// member is one top-level key/value pair.
type member struct {
	name  string
	key   span
	value span
}

// arrayLayout locates an array value and its elements.
type arrayLayout struct {
	value span
	elems []span
}

// layout records where the parts of a document live in its source text.
type layout struct {
	open, close int
	members     []member
	arrays      map[string]*arrayLayout
}

// scanLayout locates the top-level members of a comment-stripped document
// and the elements of its configurations and compounds arrays. The input
// must already be valid JSON.
func scanLayout(src []byte) (*layout, error) {
	s := &scanner{src: src}
	s.ws()
	if err := s.expect('{'); err != nil {
		return nil, err
	}
	l := &layout{open: s.pos - 1, arrays: make(map[string]*arrayLayout)}
	for {
		s.ws()
		if s.peek() == '}' {
			l.close = s.pos
			return l, nil
		}
		keyStart := s.pos
		if err := s.skipString(); err != nil {
			return nil, err
		}
		var name string
		if err := json.Unmarshal(src[keyStart:s.pos], &name); err != nil {
			return nil, fmt.Errorf("scan: key at %d: %w", keyStart, err)
		}
		m := member{name: name, key: span{keyStart, s.pos}}
		s.ws()
		if err := s.expect(':'); err != nil {
			return nil, err
		}
		s.ws()
		m.value.start = s.pos
		if (name == "configurations" || name == "compounds") && s.peek() == '[' {
			arr, err := s.array()
			if err != nil {
				return nil, err
			}
			l.arrays[name] = arr
		} else if err := s.skipValue(); err != nil {
			return nil, err
		}
		m.value.end = s.pos
		l.members = append(l.members, m)
		s.ws()
		if s.peek() == ',' {
			s.pos++
		}
	}
}

type scanner struct {
	src []byte
	pos int
}

func (s *scanner) peek() byte {
	if s.pos >= len(s.src) {
		return 0
	}
	return s.src[s.pos]
}

func (s *scanner) ws() {
	for s.pos < len(s.src) {
		switch s.src[s.pos] {
		case ' ', '\t', '\n', '\r':
			s.pos++
		default:
			return
		}
	}
}

func (s *scanner) expect(c byte) error {
	if s.peek() != c {
		return fmt.Errorf("scan: expected %q at offset %d", c, s.pos)
	}
	s.pos++
	return nil
}

func (s *scanner) array() (*arrayLayout, error) {
	arr := &arrayLayout{value: span{start: s.pos}}
	s.pos++ // [
	for {
		s.ws()
		if s.peek() == ']' {
			s.pos++
			arr.value.end = s.pos
			return arr, nil
		}
		start := s.pos
		if err := s.skipValue(); err != nil {
			return nil, err
		}
		arr.elems = append(arr.elems, span{start, s.pos})
		s.ws()
		if s.peek() == ',' {
			s.pos++
		}
	}
}

func (s *scanner) skipValue() error {
	switch c := s.peek(); {
	case c == '"':
		return s.skipString()
	case c == '{' || c == '[':
		return s.skipContainer()
	case c == 0:
		return fmt.Errorf("scan: unexpected end of input")
	default:
		// literal or number
		start := s.pos
		for s.pos < len(s.src) {
			switch s.src[s.pos] {
			case ',', '}', ']', ' ', '\t', '\n', '\r':
				if s.pos == start {
					return fmt.Errorf("scan: unexpected %q at offset %d", s.src[s.pos], s.pos)
				}
				return nil
			}
			s.pos++
		}
		return nil
	}
}

func (s *scanner) skipString() error {
	if err := s.expect('"'); err != nil {
		return err
	}
	for s.pos < len(s.src) {
		switch s.src[s.pos] {
		case '\\':
			s.pos += 2
		case '"':
			s.pos++
			return nil
		default:
			s.pos++
		}
	}
	return fmt.Errorf("scan: unterminated string")
}

func (s *scanner) skipContainer() error {
	depth := 0
	for s.pos < len(s.src) {
		switch s.src[s.pos] {
		case '"':
			if err := s.skipString(); err != nil {
				return err
			}
			continue
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				s.pos++
				return nil
			}
		}
		s.pos++
	}
	return fmt.Errorf("scan: unterminated container")
}
