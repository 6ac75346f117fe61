package launch

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrNotPatchable is returned by Patch when the change cannot be expressed
// as edits to the configurations and compounds arrays.
var ErrNotPatchable = errors.New("change cannot be applied as a text patch")

// Rewrite returns the text for after, given that original decodes to
// before. It patches original in place when it can, so comments and
// formatting outside the changed elements survive, and otherwise falls back
// to Encode. patched reports which path was taken.
func Rewrite(original []byte, before, after *Document) (text []byte, patched bool) {
	if len(bytes.TrimSpace(original)) > 0 && before != nil {
		if out, err := Patch(original, before, after); err == nil {
			return out, true
		}
	}
	return Encode(after), false
}

// Patch edits original, which must decode to before, so that it decodes to
// after. Only elements of the configurations and compounds arrays that
// differ are rewritten; inserted elements are indented to match their
// neighbours. The result is verified by decoding it.
func Patch(original []byte, before, after *Document) ([]byte, error) {
	if before.Version != after.Version || !before.Extra.Equal(after.Extra) {
		return nil, fmt.Errorf("%w: document envelope changed", ErrNotPatchable)
	}
	if before.hasCompounds() && !after.hasCompounds() {
		return nil, fmt.Errorf("%w: compounds removed", ErrNotPatchable)
	}

	src := StripComments(original)
	if len(src) != len(original) {
		return nil, fmt.Errorf("%w: comment stripping changed offsets", ErrNotPatchable)
	}
	l, err := scanLayout(src)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotPatchable, err)
	}

	p := &patcher{src: original, stripped: src, layout: l, unit: detectIndent(original)}
	if err := p.array("configurations", configurationValues(before.Configurations), configurationValues(after.Configurations), true); err != nil {
		return nil, err
	}
	if err := p.array("compounds", compoundValues(before.Compounds), compoundValues(after.Compounds), after.hasCompounds()); err != nil {
		return nil, err
	}

	out := p.apply()
	check, err := Decode(out)
	if err != nil {
		return nil, fmt.Errorf("%w: patched text does not decode: %v", ErrNotPatchable, err)
	}
	if !check.Equal(after) {
		return nil, fmt.Errorf("%w: patched text differs from the target document", ErrNotPatchable)
	}
	return out, nil
}

type edit struct {
	start, end int
	text       string
	seq        int
}

type patcher struct {
	src      []byte
	stripped []byte
	layout   *layout
	unit     string
	edits    []edit
}

func (p *patcher) add(start, end int, text string) {
	p.edits = append(p.edits, edit{start: start, end: end, text: text, seq: len(p.edits)})
}

func (p *patcher) apply() []byte {
	edits := append([]edit(nil), p.edits...)
	// Back to front, so earlier offsets stay valid. Insertions at the same
	// offset are applied last-added first, which leaves them in added order.
	sort.SliceStable(edits, func(i, j int) bool {
		if edits[i].start != edits[j].start {
			return edits[i].start > edits[j].start
		}
		return edits[i].seq > edits[j].seq
	})
	out := append([]byte(nil), p.src...)
	for _, e := range edits {
		var b bytes.Buffer
		b.Grow(len(out) - (e.end - e.start) + len(e.text))
		b.Write(out[:e.start])
		b.WriteString(e.text)
		b.Write(out[e.end:])
		out = b.Bytes()
	}
	return out
}

// array emits the edits turning the named array from old into new. want
// reports whether the key must exist afterwards.
func (p *patcher) array(name string, old, new Value, want bool) error {
	oldVals, _ := old.AsArray()
	newVals, _ := new.AsArray()

	arr := p.layout.arrays[name]
	if arr == nil {
		for _, m := range p.layout.members {
			if m.name == name {
				return fmt.Errorf("%w: %s is not an array", ErrNotPatchable, name)
			}
		}
		if len(newVals) == 0 && (!want || name == "configurations") {
			// Decoding an absent configurations key yields an empty list.
			return nil
		}
		p.insertMember(name, new)
		return nil
	}
	if len(arr.elems) != len(oldVals) {
		return fmt.Errorf("%w: %s has %d elements in the text, %d decoded", ErrNotPatchable, name, len(arr.elems), len(oldVals))
	}

	indent := p.elementIndent(arr)
	ops := diffValues(oldVals, newVals)
	oi, ni := 0, 0
	for k := 0; k < len(ops); {
		if ops[k] == opKeep {
			oi++
			ni++
			k++
			continue
		}
		a, c := oi, ni
		for k < len(ops) && ops[k] != opKeep {
			if ops[k] == opDelete {
				oi++
			} else {
				ni++
			}
			k++
		}
		p.hunk(arr, indent, a, oi, newVals[c:ni])
	}
	return nil
}

// hunk replaces old elements [a, b) with repl.
func (p *patcher) hunk(arr *arrayLayout, indent string, a, b int, repl []Value) {
	pairs := min(b-a, len(repl))
	for i := 0; i < pairs; i++ {
		e := arr.elems[a+i]
		p.add(e.start, e.end, p.encode(repl[i], indent))
	}
	a += pairs
	repl = repl[pairs:]

	switch {
	case a < b:
		// Remove the elements and one separating comma. Prefer the comma
		// before them, so comments above the next element stay put.
		switch {
		case a > 0:
			p.add(arr.elems[a-1].end, arr.elems[b-1].end, "")
		case b < len(arr.elems):
			p.removeLeading(arr, b)
		default:
			p.add(arr.value.start+1, arr.value.end-1, "")
		}

	case len(repl) > 0:
		var sb strings.Builder
		switch {
		case a > 0:
			for _, v := range repl {
				sb.WriteString(",\n")
				sb.WriteString(indent)
				sb.WriteString(p.encode(v, indent))
			}
			pos := arr.elems[a-1].end
			p.add(pos, pos, sb.String())
		case len(arr.elems) > 0:
			for _, v := range repl {
				sb.WriteString(p.encode(v, indent))
				sb.WriteString(",\n")
				sb.WriteString(indent)
			}
			pos := arr.elems[0].start
			p.add(pos, pos, sb.String())
		default:
			for i, v := range repl {
				if i > 0 {
					sb.WriteByte(',')
				}
				sb.WriteString("\n")
				sb.WriteString(indent)
				sb.WriteString(p.encode(v, indent))
			}
			sb.WriteString("\n")
			sb.WriteString(lineIndent(p.src, arr.value.start))
			p.add(arr.value.start+1, arr.value.end-1, sb.String())
		}
	}
}

// removeLeading deletes the first b elements and the comma after them.
// Whole lines are removed when the elements start and end their lines.
func (p *patcher) removeLeading(arr *arrayLayout, b int) {
	start := arr.elems[0].start
	end := arr.elems[b-1].end
	for end < len(p.stripped) && p.stripped[end] != ',' {
		end++
	}
	end++
	if startsLine(p.src, start) {
		eol := end
		for eol < len(p.stripped) && (p.stripped[eol] == ' ' || p.stripped[eol] == '\t' || p.stripped[eol] == '\r') {
			eol++
		}
		if eol < len(p.stripped) && p.stripped[eol] == '\n' {
			start = bytes.LastIndexByte(p.src[:start], '\n') + 1
			end = eol + 1
		}
	}
	p.add(start, end, "")
}

func (p *patcher) insertMember(name string, v Value) {
	l := p.layout
	indent := p.unit
	if len(l.members) > 0 && startsLine(p.src, l.members[0].key.start) {
		indent = lineIndent(p.src, l.members[0].key.start)
	}
	text := quote(name) + ": " + p.encode(v, indent)
	if len(l.members) > 0 {
		pos := l.members[len(l.members)-1].value.end
		p.add(pos, pos, ",\n"+indent+text)
		return
	}
	// Empty object: insert before the closing brace, keeping any comments.
	if startsLine(p.src, l.close) {
		pos := bytes.LastIndexByte(p.src[:l.close], '\n') + 1
		p.add(pos, pos, indent+text+"\n")
		return
	}
	p.add(l.close, l.close, "\n"+indent+text+"\n"+lineIndent(p.src, l.open))
}

// elementIndent is the indent of the line holding the first element, which
// may be the line of the opening bracket.
func (p *patcher) elementIndent(arr *arrayLayout) string {
	if len(arr.elems) > 0 {
		return lineIndent(p.src, arr.elems[0].start)
	}
	return lineIndent(p.src, arr.value.start) + p.unit
}

func (p *patcher) encode(v Value, indent string) string {
	var buf bytes.Buffer
	e := encoder{buf: &buf, unit: p.unit, prefix: indent}
	e.value(v, 0)
	return buf.String()
}

// detectIndent returns the leading whitespace of the first indented line,
// or Indent.
func detectIndent(src []byte) string {
	for _, line := range bytes.Split(src, []byte{'\n'}) {
		if len(line) == 0 {
			continue
		}
		if line[0] == '\t' {
			return "\t"
		}
		n := 0
		for n < len(line) && line[n] == ' ' {
			n++
		}
		if n > 0 && n < len(line) && line[n] != '\r' {
			return strings.Repeat(" ", n)
		}
	}
	return Indent
}

// lineIndent returns the leading whitespace of the line containing pos.
func lineIndent(src []byte, pos int) string {
	start := bytes.LastIndexByte(src[:pos], '\n') + 1
	end := start
	for end < len(src) && (src[end] == ' ' || src[end] == '\t') {
		end++
	}
	return string(src[start:end])
}

// startsLine reports whether only whitespace precedes pos on its line.
func startsLine(src []byte, pos int) bool {
	start := bytes.LastIndexByte(src[:pos], '\n') + 1
	return len(bytes.TrimLeft(src[start:pos], " \t")) == 0
}

type diffOp uint8

const (
	opKeep diffOp = iota
	opDelete
	opInsert
)

// diffValues returns an edit script turning a into b, keeping a longest
// common subsequence of equal values.
func diffValues(a, b []Value) []diffOp {
	n, m := len(a), len(b)
	lcs := make([][]int, n+1)
	for i := range lcs {
		lcs[i] = make([]int, m+1)
	}
	for i := n - 1; i >= 0; i-- {
		for j := m - 1; j >= 0; j-- {
			if a[i].Equal(b[j]) {
				lcs[i][j] = lcs[i+1][j+1] + 1
			} else {
				lcs[i][j] = max(lcs[i+1][j], lcs[i][j+1])
			}
		}
	}
	ops := make([]diffOp, 0, n+m)
	i, j := 0, 0
	for i < n && j < m {
		switch {
		case a[i].Equal(b[j]):
			ops = append(ops, opKeep)
			i++
			j++
		case lcs[i+1][j] >= lcs[i][j+1]:
			ops = append(ops, opDelete)
			i++
		default:
			ops = append(ops, opInsert)
			j++
		}
	}
	for ; i < n; i++ {
		ops = append(ops, opDelete)
	}
	for ; j < m; j++ {
		ops = append(ops, opInsert)
	}
	return ops
}
