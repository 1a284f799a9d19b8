// Package quakeml shapes a finalized catalog event graph into a QuakeML
// 1.2 document tree and renders the tree as XML. The tree is the primary
// product; textual rendering is a thin walk over it.
package quakeml

import (
	"bytes"
	"encoding/xml"
)

// Namespace URIs carried on the document root.
const (
	NSQuakeML = "http://quakeml.org/xmlns/quakeml/1.2"
	NSBed     = "http://quakeml.org/xmlns/bed/1.2"
	NSCatalog = "http://anss.org/xmlns/catalog/0.1"
)

// Attr is one named attribute on a node. Attribute order is preserved so
// repeated emissions of the same graph render byte-identically.
type Attr struct {
	Name  string
	Value string
}

// Node is one element of the document tree. A node carries either Text or
// Children, not both.
type Node struct {
	Name     string
	Attrs    []Attr
	Text     string
	Children []*Node
}

// El builds an empty element.
func El(name string) *Node { return &Node{Name: name} }

// TextEl builds a leaf element holding text.
func TextEl(name, text string) *Node { return &Node{Name: name, Text: text} }

// SetAttr appends an attribute and returns the node for chaining.
func (n *Node) SetAttr(name, value string) *Node {
	n.Attrs = append(n.Attrs, Attr{Name: name, Value: value})
	return n
}

// Attr returns the value of the named attribute.
func (n *Node) Attr(name string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// Add appends child nodes, skipping nils so optional fields can be built
// inline and simply omitted when absent.
func (n *Node) Add(children ...*Node) *Node {
	for _, c := range children {
		if c != nil {
			n.Children = append(n.Children, c)
		}
	}
	return n
}

// Child returns the first child with the given name.
func (n *Node) Child(name string) (*Node, bool) {
	for _, c := range n.Children {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// ChildText returns the text of the first child with the given name, or ""
// when no such child exists.
func (n *Node) ChildText(name string) string {
	if c, ok := n.Child(name); ok {
		return c.Text
	}
	return ""
}

// Render serializes the tree as an XML document with declaration header.
func Render(root *Node) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := encodeNode(enc, root); err != nil {
		return nil, err
	}
	if err := enc.Flush(); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

func encodeNode(enc *xml.Encoder, n *Node) error {
	start := xml.StartElement{Name: xml.Name{Local: n.Name}}
	for _, a := range n.Attrs {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: a.Name}, Value: a.Value})
	}
	if err := enc.EncodeToken(start); err != nil {
		return err
	}
	if n.Text != "" {
		if err := enc.EncodeToken(xml.CharData(n.Text)); err != nil {
			return err
		}
	}
	for _, c := range n.Children {
		if err := encodeNode(enc, c); err != nil {
			return err
		}
	}
	return enc.EncodeToken(start.End())
}
