// Package sexpr reads and writes the S-expression dialect used by KiCad
// symbol libraries, footprints and library tables.
package sexpr

import (
	"bytes"
	"fmt"
	"strings"
)

// Node is either an atom or a list. Lists keep their children in file order.
type Node struct {
	Value    string
	Quoted   bool
	Children []*Node
	list     bool
}

// Atom returns an unquoted atom such as a keyword or number.
func Atom(v string) *Node {
	return &Node{Value: v}
}

// String returns a quoted atom.
func String(v string) *Node {
	return &Node{Value: v, Quoted: true}
}

// List returns a list node with the given children.
func List(children ...*Node) *Node {
	return &Node{Children: children, list: true}
}

// Form returns a list whose first child is the unquoted head keyword,
// e.g. Form("uri", String("/x")) is (uri "/x").
func Form(head string, args ...*Node) *Node {
	return List(append([]*Node{Atom(head)}, args...)...)
}

// IsList reports whether n is a list.
func (n *Node) IsList() bool {
	return n != nil && n.list
}

// Head returns the value of the first child when it is an atom.
func (n *Node) Head() string {
	if !n.IsList() || len(n.Children) == 0 || n.Children[0].IsList() {
		return ""
	}
	return n.Children[0].Value
}

// Arg returns the value of the i-th atom after the head, or "" if absent.
func (n *Node) Arg(i int) string {
	if !n.IsList() || i+1 >= len(n.Children) {
		return ""
	}
	c := n.Children[i+1]
	if c.IsList() {
		return ""
	}
	return c.Value
}

// SetArg replaces the i-th argument after the head with a quoted string atom.
// Missing positions are padded with empty strings.
func (n *Node) SetArg(i int, v string) {
	for len(n.Children) < i+2 {
		n.Children = append(n.Children, String(""))
	}
	c := n.Children[i+1]
	if c.IsList() {
		n.Children[i+1] = String(v)
		return
	}
	c.Value = v
	c.Quoted = true
}

// Find returns the first direct child list with the given head.
func (n *Node) Find(head string) *Node {
	if !n.IsList() {
		return nil
	}
	for _, c := range n.Children {
		if c.Head() == head {
			return c
		}
	}
	return nil
}

// FindAll returns every direct child list with the given head.
func (n *Node) FindAll(head string) []*Node {
	if !n.IsList() {
		return nil
	}
	var out []*Node
	for _, c := range n.Children {
		if c.Head() == head {
			out = append(out, c)
		}
	}
	return out
}

// Append adds children to the end of the list.
func (n *Node) Append(children ...*Node) {
	n.Children = append(n.Children, children...)
}

// InsertAfter inserts child directly after the last child list with the given head,
// or appends it when no such child exists.
func (n *Node) InsertAfter(head string, child *Node) {
	idx := -1
	for i, c := range n.Children {
		if c.Head() == head {
			idx = i
		}
	}
	if idx < 0 {
		n.Append(child)
		return
	}
	n.Children = append(n.Children[:idx+1], append([]*Node{child}, n.Children[idx+1:]...)...)
}

// RemoveAll deletes every direct child list with the given head and returns how many were removed.
func (n *Node) RemoveAll(head string) int {
	return n.RemoveFunc(func(c *Node) bool { return c.Head() == head })
}

// RemoveFunc deletes direct children for which fn returns true.
func (n *Node) RemoveFunc(fn func(*Node) bool) int {
	kept := n.Children[:0]
	removed := 0
	for _, c := range n.Children {
		if fn(c) {
			removed++
			continue
		}
		kept = append(kept, c)
	}
	for i := len(kept); i < len(n.Children); i++ {
		n.Children[i] = nil
	}
	n.Children = kept
	return removed
}

// Clone returns a deep copy of n.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	c := &Node{Value: n.Value, Quoted: n.Quoted, list: n.list}
	if n.Children != nil {
		c.Children = make([]*Node, len(n.Children))
		for i, ch := range n.Children {
			c.Children[i] = ch.Clone()
		}
	}
	return c
}

// SyntaxError reports malformed input with the 1-based line it was found on.
type SyntaxError struct {
	Line int
	Msg  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("sexpr: line %d: %s", e.Line, e.Msg)
}

// utf8BOM is written by some Windows editors ahead of the first form.
var utf8BOM = []byte("\xEF\xBB\xBF")

// Parse reads every top-level expression in data. A leading UTF-8 byte order
// mark is skipped.
func Parse(data []byte) ([]*Node, error) {
	p := &parser{src: bytes.TrimPrefix(data, utf8BOM), line: 1}
	var out []*Node
	for {
		p.skipSpace()
		if p.pos >= len(p.src) {
			return out, nil
		}
		n, err := p.parseNode()
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
}

// ParseOne reads data that must contain exactly one top-level list.
func ParseOne(data []byte) (*Node, error) {
	nodes, err := Parse(data)
	if err != nil {
		return nil, err
	}
	if len(nodes) != 1 || !nodes[0].IsList() {
		return nil, &SyntaxError{Line: 1, Msg: fmt.Sprintf("expected one top-level list, found %d expressions", len(nodes))}
	}
	return nodes[0], nil
}

type parser struct {
	src  []byte
	pos  int
	line int
}

func (p *parser) skipSpace() {
	for p.pos < len(p.src) {
		switch p.src[p.pos] {
		case '\n':
			p.line++
			p.pos++
		case ' ', '\t', '\r':
			p.pos++
		default:
			return
		}
	}
}

func (p *parser) parseNode() (*Node, error) {
	switch p.src[p.pos] {
	case '(':
		return p.parseList()
	case ')':
		return nil, &SyntaxError{Line: p.line, Msg: "unexpected ')'"}
	case '"':
		return p.parseString()
	default:
		return p.parseAtom(), nil
	}
}

func (p *parser) parseList() (*Node, error) {
	start := p.line
	p.pos++ // (
	n := List()
	for {
		p.skipSpace()
		if p.pos >= len(p.src) {
			return nil, &SyntaxError{Line: start, Msg: "unterminated list"}
		}
		if p.src[p.pos] == ')' {
			p.pos++
			return n, nil
		}
		child, err := p.parseNode()
		if err != nil {
			return nil, err
		}
		n.Children = append(n.Children, child)
	}
}

func (p *parser) parseString() (*Node, error) {
	start := p.line
	p.pos++ // opening quote
	var b strings.Builder
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch c {
		case '"':
			p.pos++
			return String(b.String()), nil
		case '\\':
			if p.pos+1 >= len(p.src) {
				return nil, &SyntaxError{Line: p.line, Msg: "dangling escape"}
			}
			next := p.src[p.pos+1]
			switch next {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			default:
				b.WriteByte(next)
			}
			p.pos += 2
		default:
			if c == '\n' {
				p.line++
			}
			b.WriteByte(c)
			p.pos++
		}
	}
	return nil, &SyntaxError{Line: start, Msg: "unterminated string"}
}

func (p *parser) parseAtom() *Node {
	start := p.pos
	for p.pos < len(p.src) {
		switch p.src[p.pos] {
		case ' ', '\t', '\r', '\n', '(', ')', '"':
			return Atom(string(p.src[start:p.pos]))
		}
		p.pos++
	}
	return Atom(string(p.src[start:p.pos]))
}

// Marshal formats nodes one per top-level expression, each followed by a newline.
func Marshal(nodes ...*Node) []byte {
	var buf bytes.Buffer
	for _, n := range nodes {
		writeNode(&buf, n, 0)
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// Format returns the formatted text of n without a trailing newline.
func (n *Node) Format() string {
	var buf bytes.Buffer
	writeNode(&buf, n, 0)
	return buf.String()
}

// writeNode puts a list on one line when it holds only atoms. Otherwise the head
// and leading atoms stay on the opening line and every later child gets its own
// line, indented one tab deeper.
func writeNode(buf *bytes.Buffer, n *Node, depth int) {
	if !n.IsList() {
		writeAtom(buf, n)
		return
	}
	buf.WriteByte('(')
	nested := false
	for i, c := range n.Children {
		if c.IsList() {
			nested = true
		}
		if nested {
			buf.WriteByte('\n')
			buf.WriteString(strings.Repeat("\t", depth+1))
		} else if i > 0 {
			buf.WriteByte(' ')
		}
		writeNode(buf, c, depth+1)
	}
	if nested {
		buf.WriteByte('\n')
		buf.WriteString(strings.Repeat("\t", depth))
	}
	buf.WriteByte(')')
}

func writeAtom(buf *bytes.Buffer, n *Node) {
	if !n.Quoted && !needsQuote(n.Value) {
		buf.WriteString(n.Value)
		return
	}
	buf.WriteByte('"')
	for i := 0; i < len(n.Value); i++ {
		switch c := n.Value[i]; c {
		case '"', '\\':
			buf.WriteByte('\\')
			buf.WriteByte(c)
		case '\n':
			buf.WriteString(`\n`)
		default:
			buf.WriteByte(c)
		}
	}
	buf.WriteByte('"')
}

func needsQuote(v string) bool {
	if v == "" {
		return true
	}
	return strings.ContainsAny(v, " \t\r\n()\"\\")
}
