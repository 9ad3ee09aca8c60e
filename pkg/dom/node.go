package dom

import (
	"sort"
	"strings"
)

// Kind is the node type discriminator.
type Kind uint8

const (
	KindElement Kind = iota // <img>, <div>, etc.
	KindText                // Plain text node
)

// String returns the string representation of the Kind.
func (k Kind) String() string {
	switch k {
	case KindElement:
		return "Element"
	case KindText:
		return "Text"
	default:
		return "Unknown"
	}
}

// Node is an in-memory DOM node. Element nodes implement Element.
type Node struct {
	Kind     Kind
	Tag      string            // Element tag name (e.g., "img")
	Attrs    map[string]string // Attributes, including data-*
	Children []*Node
	Text     string // For KindText
	Rect     Rect   // Layout rectangle relative to the viewport

	style     map[string]string
	listeners map[EventKind][]func()
}

var _ Element = (*Node)(nil)

// HasAttribute reports whether the attribute is present.
func (n *Node) HasAttribute(name string) bool {
	_, ok := n.Attrs[name]
	return ok
}

// GetAttribute returns the attribute value and whether it is present.
func (n *Node) GetAttribute(name string) (string, bool) {
	v, ok := n.Attrs[name]
	return v, ok
}

// SetAttribute sets an attribute.
func (n *Node) SetAttribute(name, value string) {
	if n.Attrs == nil {
		n.Attrs = make(map[string]string)
	}
	n.Attrs[name] = value
}

// RemoveAttribute deletes an attribute.
func (n *Node) RemoveAttribute(name string) {
	delete(n.Attrs, name)
}

// Data returns a data-* attribute value.
func (n *Node) Data(key string) (string, bool) {
	return n.GetAttribute("data-" + key)
}

// SetData sets a data-* attribute value.
func (n *Node) SetData(key, value string) {
	n.SetAttribute("data-"+key, value)
}

// Style returns an inline style property.
func (n *Node) Style(property string) string {
	return n.style[property]
}

// SetStyle sets an inline style property; an empty value removes it.
func (n *Node) SetStyle(property, value string) {
	if value == "" {
		delete(n.style, property)
		return
	}
	if n.style == nil {
		n.style = make(map[string]string)
	}
	n.style[property] = value
}

// StyleAttr renders the inline style as a style attribute value, properties
// sorted by name.
func (n *Node) StyleAttr() string {
	if len(n.style) == 0 {
		return ""
	}
	keys := sortedKeys(n.style)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+n.style[k])
	}
	return strings.Join(parts, "; ")
}

// BoundingRect returns the node's layout rectangle.
func (n *Node) BoundingRect() Rect {
	return n.Rect
}

// AddEventListener registers fn for the event kind.
func (n *Node) AddEventListener(kind EventKind, fn func()) {
	if n.listeners == nil {
		n.listeners = make(map[EventKind][]func())
	}
	n.listeners[kind] = append(n.listeners[kind], fn)
}

// ListenerCount returns how many listeners are registered for the kind.
func (n *Node) ListenerCount(kind EventKind) int {
	return len(n.listeners[kind])
}

// Dispatch invokes the listeners registered for kind in registration order.
func (n *Node) Dispatch(kind EventKind) {
	// Copy so listeners may register further listeners.
	fns := append([]func(){}, n.listeners[kind]...)
	for _, fn := range fns {
		fn()
	}
}

// Walk visits n and its descendants depth-first in document order.
// Returning false from fn skips the node's children.
func (n *Node) Walk(fn func(*Node) bool) {
	if n == nil {
		return
	}
	if !fn(n) {
		return
	}
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// QueryAll returns every element descendant (including n) with the tag.
func (n *Node) QueryAll(tag string) []*Node {
	var out []*Node
	n.Walk(func(c *Node) bool {
		if c.Kind == KindElement && c.Tag == tag {
			out = append(out, c)
		}
		return true
	})
	return out
}

// Tree is an in-memory Document.
type Tree struct {
	Root     *Node
	Viewport float64 // Viewport height in CSS pixels

	ready   bool
	onReady []func()
}

var (
	_ Document      = (*Tree)(nil)
	_ ReadyNotifier = (*Tree)(nil)
)

// NewTree creates a document with a <body> root holding children.
func NewTree(viewport float64, children ...any) *Tree {
	return &Tree{
		Root:     Body(children...),
		Viewport: viewport,
	}
}

// Images returns every <img> in document order.
func (t *Tree) Images() []Element {
	nodes := t.Root.QueryAll("img")
	out := make([]Element, len(nodes))
	for i, n := range nodes {
		out[i] = n
	}
	return out
}

// ViewportHeight returns the configured viewport height.
func (t *Tree) ViewportHeight() float64 {
	return t.Viewport
}

// OnReady runs fn after MarkReady, or immediately if the tree is ready.
func (t *Tree) OnReady(fn func()) {
	if t.ready {
		fn()
		return
	}
	t.onReady = append(t.onReady, fn)
}

// MarkReady flags the tree as parsed and runs queued ready callbacks.
func (t *Tree) MarkReady() {
	if t.ready {
		return
	}
	t.ready = true
	fns := t.onReady
	t.onReady = nil
	for _, fn := range fns {
		fn()
	}
}

// Append adds nodes under the root, as client-side navigation does when it
// swaps page content.
func (t *Tree) Append(nodes ...*Node) {
	for _, n := range nodes {
		if n != nil {
			t.Root.Children = append(t.Root.Children, n)
		}
	}
}

// Replace swaps the root's children for nodes.
func (t *Tree) Replace(nodes ...*Node) {
	t.Root.Children = t.Root.Children[:0]
	t.Append(nodes...)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
