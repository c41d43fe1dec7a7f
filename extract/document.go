// Package extract turns server-rendered catbox pages into typed values.
//
// A Document flattens the parsed tree into an arena so nodes can be
// referenced by NodeID. Every accessor reports a specific error kind when
// the markup does not have the expected shape.
package extract

import (
	"iter"
	"net/url"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"catbox/internal"
)

// NodeID is the position of a node in document order
type NodeID int

// Document is a parsed page with nodes stored in document order
type Document struct {
	nodes []*html.Node
	index map[*html.Node]NodeID
}

// Parse parses markup into a Document
func Parse(markup string) (*Document, error) {
	root, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return nil, internal.NewCatboxError(internal.ErrResponseNotText, "failed to parse markup").WithCause(err)
	}
	return FromNode(root), nil
}

// FromNode builds a Document over an already parsed tree
func FromNode(root *html.Node) *Document {
	doc := &Document{index: make(map[*html.Node]NodeID)}
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		doc.index[n] = NodeID(len(doc.nodes))
		doc.nodes = append(doc.nodes, n)
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return doc
}

// Len returns the number of nodes in the document
func (d *Document) Len() int {
	return len(d.nodes)
}

// Node resolves a NodeID
func (d *Document) Node(id NodeID) (*html.Node, error) {
	if id < 0 || int(id) >= len(d.nodes) {
		return nil, internal.NewCatboxError(internal.ErrMissingNode, "node handle does not resolve").
			WithContext("node", int(id))
	}
	return d.nodes[id], nil
}

// Selector picks a container element
type Selector struct {
	attr  string
	value string
}

// ByID matches the element whose id attribute equals id
func ByID(id string) Selector {
	return Selector{attr: "id", value: id}
}

// ByClass matches elements carrying name among their classes
func ByClass(name string) Selector {
	return Selector{attr: "class", value: name}
}

func (s Selector) String() string {
	if s.attr == "id" {
		return "#" + s.value
	}
	return "." + s.value
}

func (s Selector) match(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	val, ok := attr(n, s.attr)
	if !ok {
		return false
	}
	if s.attr == "class" {
		for _, class := range strings.Fields(val) {
			if class == s.value {
				return true
			}
		}
		return false
	}
	return val == s.value
}

// FindContainer returns the first element matching sel in document order
func (d *Document) FindContainer(sel Selector) (NodeID, error) {
	for i, n := range d.nodes {
		if sel.match(n) {
			return NodeID(i), nil
		}
	}
	return 0, internal.NewCatboxError(internal.ErrMissingContainer, "no element matches "+sel.String()).
		WithContext("selector", sel.String())
}

// Children returns every descendant of id in document order.
// A node without child nodes is a MissingChildren error.
func (d *Document) Children(id NodeID) ([]NodeID, error) {
	n, err := d.Node(id)
	if err != nil {
		return nil, err
	}
	if n.FirstChild == nil {
		return nil, internal.NewCatboxError(internal.ErrMissingChildren, "container has no children").
			WithContext("node", int(id))
	}

	var ids []NodeID
	var walk func(*html.Node)
	walk = func(p *html.Node) {
		for c := p.FirstChild; c != nil; c = c.NextSibling {
			ids = append(ids, d.index[c])
			walk(c)
		}
	}
	walk(n)
	return ids, nil
}

// AttributeValues reads, for each element among ids, the first of names it
// carries. Non-element nodes are skipped, as are attributes present with an
// empty value. An element carrying none of names is a MissingAttribute error.
func (d *Document) AttributeValues(ids []NodeID, names ...string) ([]string, error) {
	var values []string
	for _, id := range ids {
		n, err := d.Node(id)
		if err != nil {
			return nil, err
		}
		if n.Type != html.ElementNode {
			continue
		}

		val, name, ok := firstAttr(n, names)
		if !ok {
			return nil, internal.NewCatboxError(internal.ErrMissingAttribute, "element has none of "+strings.Join(names, ", ")).
				WithContext("element", n.Data)
		}
		if val == "" {
			continue
		}
		if !utf8.ValidString(val) {
			return nil, internal.NewCatboxError(internal.ErrInvalidEncoding, "attribute is not valid UTF-8").
				WithContext("attribute", name)
		}
		values = append(values, val)
	}
	return values, nil
}

// LabeledValue finds the first descendant of container whose inner text is
// exactly label and returns the inner text of its next sibling with leading
// whitespace removed. Blank text and comment siblings are passed over.
func (d *Document) LabeledValue(container NodeID, label string) (string, error) {
	ids, err := d.Children(container)
	if err != nil {
		return "", err
	}

	for _, id := range ids {
		n := d.nodes[id]
		if innerText(n) != label {
			continue
		}
		if next := nextContentSibling(n); next != nil {
			return strings.TrimLeftFunc(innerText(next), unicode.IsSpace), nil
		}
	}

	return "", internal.NewCatboxError(internal.ErrMissingLabel, "label not found").
		WithContext("label", label)
}

// SelectAll yields every node matching sel in document order
func (d *Document) SelectAll(sel cascadia.Selector) iter.Seq[NodeID] {
	return func(yield func(NodeID) bool) {
		for i, n := range d.nodes {
			if n.Type != html.ElementNode || !sel.Match(n) {
				continue
			}
			if !yield(NodeID(i)) {
				return
			}
		}
	}
}

// InnerText returns the concatenated text of id and its descendants
func (d *Document) InnerText(id NodeID) (string, error) {
	n, err := d.Node(id)
	if err != nil {
		return "", err
	}
	return innerText(n), nil
}

// Attr returns the value of an attribute on id
func (d *Document) Attr(id NodeID, name string) (string, bool, error) {
	n, err := d.Node(id)
	if err != nil {
		return "", false, err
	}
	val, ok := attr(n, name)
	return val, ok, nil
}

// ParseURL parses an absolute URL. Values without a scheme and host are rejected.
func ParseURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, internal.NewUnparsableURLError(raw, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, internal.NewUnparsableURLError(raw, nil)
	}
	return u, nil
}

// ParseURLs parses every value and drops the ones that are not absolute URLs
func ParseURLs(raws []string) []*url.URL {
	urls := make([]*url.URL, 0, len(raws))
	for _, raw := range raws {
		if u, err := ParseURL(raw); err == nil {
			urls = append(urls, u)
		}
	}
	return urls
}

// --- tree helpers ---

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func firstAttr(n *html.Node, names []string) (string, string, bool) {
	for _, name := range names {
		if val, ok := attr(n, name); ok {
			return val, name, true
		}
	}
	return "", "", false
}

func innerText(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		sb.WriteString(innerText(c))
	}
	return sb.String()
}

func nextContentSibling(n *html.Node) *html.Node {
	for s := n.NextSibling; s != nil; s = s.NextSibling {
		switch {
		case s.Type == html.CommentNode:
			continue
		case s.Type == html.TextNode && strings.TrimSpace(s.Data) == "":
			continue
		}
		return s
	}
	return nil
}
