package launch

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/tidwall/jsonc"
)

// ParseError reports a document that exists but cannot be decoded. Line and
// Column are 1-based and zero when the position is unknown.
type ParseError struct {
	Offset int64
	Line   int
	Column int
	Msg    string
	Err    error
}

func (e *ParseError) Error() string {
	var b strings.Builder
	b.WriteString("invalid launch document")
	if e.Line > 0 {
		fmt.Fprintf(&b, " at line %d, column %d", e.Line, e.Column)
	}
	b.WriteString(": ")
	b.WriteString(e.Msg)
	return b.String()
}

func (e *ParseError) Unwrap() error { return e.Err }

// newParseError builds a ParseError from a decoder error, locating the
// offset in src.
func newParseError(src []byte, err error) *ParseError {
	pe := &ParseError{Msg: err.Error(), Err: err}
	var (
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
	)
	switch {
	case errors.As(err, &syntaxErr):
		pe.Offset = syntaxErr.Offset
	case errors.As(err, &typeErr):
		pe.Offset = typeErr.Offset
	case errors.Is(err, io.ErrUnexpectedEOF), errors.Is(err, io.EOF):
		pe.Msg = "unexpected end of document"
		pe.Offset = int64(len(src))
	default:
		return pe
	}
	pe.Line, pe.Column = position(src, pe.Offset)
	return pe
}

func shapeError(path, format string, args ...any) *ParseError {
	return &ParseError{Msg: path + ": " + fmt.Sprintf(format, args...)}
}

// position converts a byte offset into a 1-based line and column.
func position(src []byte, offset int64) (line, col int) {
	if offset > int64(len(src)) {
		offset = int64(len(src))
	}
	if offset < 0 {
		offset = 0
	}
	head := src[:offset]
	line = bytes.Count(head, []byte{'\n'}) + 1
	col = int(offset) - (bytes.LastIndexByte(head, '\n') + 1) + 1
	return line, col
}

// StripComments removes // and /* */ comments and trailing commas. The
// result has the same length as text, with line breaks at the same offsets.
func StripComments(text []byte) []byte {
	return jsonc.ToJSON(text)
}

// Decode parses JSON-with-comments text into a Document.
func Decode(text []byte) (*Document, error) {
	root, err := decodeRoot(text)
	if err != nil {
		return nil, err
	}
	return documentFromObject(root)
}

// DecodeConfigurations parses only the configurations of a document. It is
// the fast path for listing; compounds and other keys are skipped without
// being interpreted.
func DecodeConfigurations(text []byte) ([]Configuration, error) {
	src := StripComments(text)
	dec := json.NewDecoder(bytes.NewReader(src))
	dec.UseNumber()
	d := valueDecoder{dec: dec}

	if err := d.expectDelim('{'); err != nil {
		return nil, d.wrap(src, err)
	}
	configs := []Configuration{}
	for dec.More() {
		key, err := d.key()
		if err != nil {
			return nil, d.wrap(src, err)
		}
		if key != "configurations" {
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return nil, d.wrap(src, err)
			}
			continue
		}
		v, err := d.value()
		if err != nil {
			return nil, d.wrap(src, err)
		}
		if configs, err = configurationsFromValue(v); err != nil {
			return nil, err
		}
	}
	if _, err := dec.Token(); err != nil {
		return nil, d.wrap(src, err)
	}
	if err := d.expectEOF(); err != nil {
		return nil, d.wrap(src, err)
	}
	return configs, nil
}

// DecodeEntry parses a single configuration or compound object. An object
// with a "configurations" array is a compound.
func DecodeEntry(text []byte) (Entry, error) {
	src := StripComments(text)
	dec := json.NewDecoder(bytes.NewReader(src))
	dec.UseNumber()
	d := valueDecoder{dec: dec}
	v, err := d.value()
	if err != nil {
		return nil, d.wrap(src, err)
	}
	if err := d.expectEOF(); err != nil {
		return nil, d.wrap(src, err)
	}
	obj, ok := v.AsObject()
	if !ok {
		return nil, shapeError("entry", "expected object, got %s", v.Kind())
	}
	if refs, ok := obj.Get("configurations"); ok && refs.Kind() == KindArray {
		return compoundFromObject("entry", obj)
	}
	return configurationFromObject("entry", obj)
}

func decodeRoot(text []byte) (*Object, error) {
	src := StripComments(text)
	dec := json.NewDecoder(bytes.NewReader(src))
	dec.UseNumber()
	d := valueDecoder{dec: dec}
	v, err := d.value()
	if err != nil {
		return nil, d.wrap(src, err)
	}
	if err := d.expectEOF(); err != nil {
		return nil, d.wrap(src, err)
	}
	obj, ok := v.AsObject()
	if !ok {
		return nil, shapeError("document", "expected object, got %s", v.Kind())
	}
	return obj, nil
}

func documentFromObject(root *Object) (*Document, error) {
	doc := &Document{Configurations: []Configuration{}}
	var err error
	root.Range(func(key string, v Value) bool {
		switch key {
		case "version":
			s, ok := v.AsString()
			if !ok {
				err = shapeError("version", "expected string, got %s", v.Kind())
				return false
			}
			doc.Version = s
		case "configurations":
			doc.Configurations, err = configurationsFromValue(v)
		case "compounds":
			doc.HasCompounds = true
			doc.Compounds, err = compoundsFromValue(v)
		default:
			if doc.Extra == nil {
				doc.Extra = NewObject()
			}
			doc.Extra.Set(key, v)
		}
		return err == nil
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func configurationsFromValue(v Value) ([]Configuration, error) {
	arr, ok := v.AsArray()
	if !ok {
		return nil, shapeError("configurations", "expected array, got %s", v.Kind())
	}
	out := make([]Configuration, 0, len(arr))
	for i, e := range arr {
		path := fmt.Sprintf("configurations[%d]", i)
		obj, ok := e.AsObject()
		if !ok {
			return nil, shapeError(path, "expected object, got %s", e.Kind())
		}
		c, err := configurationFromObject(path, obj)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func configurationFromObject(path string, obj *Object) (Configuration, error) {
	var (
		c   Configuration
		err error
	)
	obj.Range(func(k string, v Value) bool {
		var dst *string
		switch k {
		case "name":
			dst = &c.Name
		case "type":
			dst, c.HasType = &c.Type, true
		case "request":
			dst, c.HasRequest = &c.Request, true
		default:
			c.SetAttr(k, v)
			return true
		}
		s, ok := v.AsString()
		if !ok {
			err = shapeError(path+"."+k, "expected string, got %s", v.Kind())
			return false
		}
		*dst = s
		return true
	})
	return c, err
}

func compoundsFromValue(v Value) ([]Compound, error) {
	arr, ok := v.AsArray()
	if !ok {
		return nil, shapeError("compounds", "expected array, got %s", v.Kind())
	}
	out := make([]Compound, 0, len(arr))
	for i, e := range arr {
		path := fmt.Sprintf("compounds[%d]", i)
		obj, ok := e.AsObject()
		if !ok {
			return nil, shapeError(path, "expected object, got %s", e.Kind())
		}
		c, err := compoundFromObject(path, obj)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func compoundFromObject(path string, obj *Object) (Compound, error) {
	c := Compound{Configurations: []string{}}
	var err error
	obj.Range(func(k string, v Value) bool {
		switch k {
		case "name":
			s, ok := v.AsString()
			if !ok {
				err = shapeError(path+".name", "expected string, got %s", v.Kind())
				return false
			}
			c.Name = s
		case "configurations":
			refs, ok := v.AsStrings()
			if !ok {
				err = shapeError(path+".configurations", "expected array of names")
				return false
			}
			c.Configurations = refs
		default:
			if c.Attrs == nil {
				c.Attrs = NewObject()
			}
			c.Attrs.Set(k, v)
		}
		return true
	})
	return c, err
}

// valueDecoder reads Values from a token stream, keeping object key order.
type valueDecoder struct {
	dec *json.Decoder
}

func (d valueDecoder) wrap(src []byte, err error) error {
	var pe *ParseError
	if errors.As(err, &pe) {
		if pe.Line == 0 && pe.Offset > 0 {
			pe.Line, pe.Column = position(src, pe.Offset)
		}
		return pe
	}
	return newParseError(src, err)
}

func (d valueDecoder) value() (Value, error) {
	tok, err := d.dec.Token()
	if err != nil {
		return Value{}, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			return d.object()
		case '[':
			return d.array()
		}
		return Value{}, d.unexpected(fmt.Sprintf("unexpected %q", rune(t)))
	case bool:
		return Bool(t), nil
	case json.Number:
		return Number(t), nil
	case string:
		return String(t), nil
	case nil:
		return Null(), nil
	}
	return Value{}, d.unexpected(fmt.Sprintf("unexpected token %v", tok))
}

func (d valueDecoder) object() (Value, error) {
	obj := NewObject()
	for d.dec.More() {
		key, err := d.key()
		if err != nil {
			return Value{}, err
		}
		v, err := d.value()
		if err != nil {
			return Value{}, err
		}
		// duplicate keys: last one wins, first position kept
		obj.Set(key, v)
	}
	if _, err := d.dec.Token(); err != nil {
		return Value{}, err
	}
	return ObjectValue(obj), nil
}

func (d valueDecoder) array() (Value, error) {
	arr := []Value{}
	for d.dec.More() {
		v, err := d.value()
		if err != nil {
			return Value{}, err
		}
		arr = append(arr, v)
	}
	if _, err := d.dec.Token(); err != nil {
		return Value{}, err
	}
	return Array(arr...), nil
}

func (d valueDecoder) key() (string, error) {
	tok, err := d.dec.Token()
	if err != nil {
		return "", err
	}
	key, ok := tok.(string)
	if !ok {
		return "", d.unexpected(fmt.Sprintf("expected object key, got %v", tok))
	}
	return key, nil
}

func (d valueDecoder) expectDelim(want json.Delim) error {
	tok, err := d.dec.Token()
	if err != nil {
		return err
	}
	if got, ok := tok.(json.Delim); !ok || got != want {
		return d.unexpected(fmt.Sprintf("document: expected %q, got %v", rune(want), tok))
	}
	return nil
}

func (d valueDecoder) expectEOF() error {
	if _, err := d.dec.Token(); err != io.EOF {
		if err != nil {
			return err
		}
		return d.unexpected("unexpected data after the top-level value")
	}
	return nil
}

func (d valueDecoder) unexpected(msg string) *ParseError {
	return &ParseError{Msg: msg, Offset: d.dec.InputOffset()}
}

// Indent is the indentation unit used by Encode.
const Indent = "    "

// Encode serializes doc as indented JSON with a trailing newline. Comments
// are not reproduced; use Rewrite to keep the comments of an existing text.
func Encode(doc *Document) []byte {
	var buf bytes.Buffer
	e := encoder{buf: &buf, unit: Indent}
	e.value(doc.Value(), 0)
	buf.WriteByte('\n')
	return buf.Bytes()
}

// EncodeEntry serializes a single configuration or compound as indented
// JSON with a trailing newline.
func EncodeEntry(entry Entry) []byte {
	var buf bytes.Buffer
	e := encoder{buf: &buf, unit: Indent}
	e.value(entryValue(entry), 0)
	buf.WriteByte('\n')
	return buf.Bytes()
}

func entryValue(entry Entry) Value {
	switch e := entry.(type) {
	case Configuration:
		return e.Value()
	case *Configuration:
		return e.Value()
	case Compound:
		return e.Value()
	case *Compound:
		return e.Value()
	}
	return Null()
}

// encoder writes values. Every line after the first starts with prefix
// followed by one unit per nesting level.
type encoder struct {
	buf     *bytes.Buffer
	unit    string
	prefix  string
	compact bool
}

func (e encoder) newline(level int) {
	if e.compact {
		return
	}
	e.buf.WriteByte('\n')
	e.buf.WriteString(e.prefix)
	for i := 0; i < level; i++ {
		e.buf.WriteString(e.unit)
	}
}

func (e encoder) value(v Value, level int) {
	switch v.kind {
	case KindNull:
		e.buf.WriteString("null")
	case KindBool:
		if v.b {
			e.buf.WriteString("true")
		} else {
			e.buf.WriteString("false")
		}
	case KindNumber:
		e.buf.WriteString(v.s)
	case KindString:
		e.buf.WriteString(quote(v.s))
	case KindArray:
		if len(v.arr) == 0 {
			e.buf.WriteString("[]")
			return
		}
		e.buf.WriteByte('[')
		for i, elem := range v.arr {
			if i > 0 {
				e.buf.WriteByte(',')
			}
			e.newline(level + 1)
			e.value(elem, level+1)
		}
		e.newline(level)
		e.buf.WriteByte(']')
	case KindObject:
		if v.obj.Len() == 0 {
			e.buf.WriteString("{}")
			return
		}
		e.buf.WriteByte('{')
		for i, k := range v.obj.keys {
			if i > 0 {
				e.buf.WriteByte(',')
			}
			e.newline(level + 1)
			e.buf.WriteString(quote(k))
			if e.compact {
				e.buf.WriteByte(':')
			} else {
				e.buf.WriteString(": ")
			}
			e.value(v.obj.vals[k], level+1)
		}
		e.newline(level)
		e.buf.WriteByte('}')
	}
}

// quote returns s as a JSON string without HTML escaping.
func quote(s string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	return strings.TrimSuffix(buf.String(), "\n")
}
