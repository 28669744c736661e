// Package xmltree converts XML documents into a generic element/attribute tree
// and into the nested map shape used to normalize Rundeck API responses.
package xmltree

import (
	"errors"
	"fmt"
	"strings"

	"github.com/beevik/etree"
)

// ErrNotXML is returned when a body has no root element
var ErrNotXML = errors.New("document has no root element")

// Element is a parsed XML element. An element without attributes and
// children is a text leaf and is represented by its Text alone.
type Element struct {
	Tag        string
	Attributes map[string]string
	Children   map[string][]*Element
	Text       string

	order []string // child tags in first-seen order
}

// Parse reads an XML document and returns its root element
func Parse(data []byte) (*Element, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("failed to parse xml: %w", err)
	}

	root := doc.Root()
	if root == nil {
		return nil, ErrNotXML
	}

	return fromEtree(root), nil
}

func fromEtree(e *etree.Element) *Element {
	el := &Element{
		Tag:        e.Tag,
		Attributes: make(map[string]string, len(e.Attr)),
		Children:   make(map[string][]*Element),
		Text:       strings.TrimSpace(e.Text()),
	}

	for _, attr := range e.Attr {
		el.Attributes[attr.Key] = attr.Value
	}

	for _, child := range e.ChildElements() {
		if _, seen := el.Children[child.Tag]; !seen {
			el.order = append(el.order, child.Tag)
		}
		el.Children[child.Tag] = append(el.Children[child.Tag], fromEtree(child))
	}

	return el
}

// IsText reports whether the element is a plain text leaf
func (e *Element) IsText() bool {
	return len(e.Attributes) == 0 && len(e.Children) == 0
}

// All returns the children with the given tag in document order
func (e *Element) All(tag string) []*Element {
	if e == nil {
		return nil
	}
	return e.Children[tag]
}

// First returns the first child with the given tag, or nil
func (e *Element) First(tag string) *Element {
	children := e.All(tag)
	if len(children) == 0 {
		return nil
	}
	return children[0]
}

// Tags returns child tags in the order they first appear
func (e *Element) Tags() []string {
	return e.order
}

// Map converts the element into the nested map shape: attributes under
// "@attributes", children grouped by tag into lists, text leaves as strings.
// Text of elements that also carry attributes or children goes under "@text".
func (e *Element) Map() map[string]any {
	m := make(map[string]any, len(e.Children)+1)

	if len(e.Attributes) > 0 {
		attrs := make(map[string]string, len(e.Attributes))
		for k, v := range e.Attributes {
			attrs[k] = v
		}
		m["@attributes"] = attrs
	}
	if e.Text != "" {
		m["@text"] = e.Text
	}

	for _, tag := range e.order {
		m[tag] = e.ListValue(tag)
	}

	return m
}

// Value returns the text of a leaf or the map shape of any other element
func (e *Element) Value() any {
	if e.IsText() {
		return e.Text
	}
	return e.Map()
}

// ListValue returns the values of all children with the given tag
func (e *Element) ListValue(tag string) []any {
	children := e.Children[tag]
	list := make([]any, len(children))
	for i, child := range children {
		list[i] = child.Value()
	}
	return list
}
