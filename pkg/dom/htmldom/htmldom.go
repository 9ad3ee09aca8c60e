// Package htmldom exposes a parsed HTML document as a dom.Document.
//
// It lets the image passes run over static pages at build or serve time,
// before any browser sees them. There is no layout engine here: element
// rectangles are estimated by stacking images in document order, each taking
// its height attribute or a default height. Text between images is ignored,
// so the estimate leans toward treating early images as visible.
//
// Load and error events never fire on a parsed document. Listeners are kept
// so the retry controller can be attached, and Dispatch exists for tests.
package htmldom

import (
	"io"
	"strconv"
	"strings"

	"github.com/daxnoob/lazyimg/pkg/dom"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Layout defaults.
const (
	DefaultViewportHeight = 800
	DefaultImageHeight    = 300
)

// Document is a parsed HTML page.
type Document struct {
	root          *html.Node
	viewport      float64
	defaultHeight float64
	elems         map[*html.Node]*Element
}

var _ dom.Document = (*Document)(nil)

// Option configures a Document.
type Option func(*Document)

// WithViewportHeight sets the viewport height used for the layout estimate.
func WithViewportHeight(h float64) Option {
	return func(d *Document) {
		if h > 0 {
			d.viewport = h
		}
	}
}

// WithDefaultImageHeight sets the height assumed for images without a usable
// height attribute.
func WithDefaultImageHeight(h float64) Option {
	return func(d *Document) {
		if h > 0 {
			d.defaultHeight = h
		}
	}
}

// Parse reads an HTML document.
func Parse(r io.Reader, opts ...Option) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, err
	}
	return New(root, opts...), nil
}

// New wraps an already parsed tree.
func New(root *html.Node, opts ...Option) *Document {
	d := &Document{
		root:          root,
		viewport:      DefaultViewportHeight,
		defaultHeight: DefaultImageHeight,
		elems:         make(map[*html.Node]*Element),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Root returns the underlying tree.
func (d *Document) Root() *html.Node { return d.root }

// ViewportHeight returns the assumed viewport height.
func (d *Document) ViewportHeight() float64 { return d.viewport }

// Images returns every <img> in document order with estimated rectangles.
func (d *Document) Images() []dom.Element {
	var out []dom.Element
	top := 0.0
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.Img {
			el, ok := d.elems[n]
			if !ok {
				el = &Element{node: n}
				d.elems[n] = el
			}
			h := el.declaredHeight()
			if h <= 0 {
				h = d.defaultHeight
			}
			el.rect = dom.Rect{Top: top, Bottom: top + h}
			top += h
			out = append(out, el)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(d.root)
	return out
}

// Render writes the document as HTML.
func (d *Document) Render(w io.Writer) error {
	return html.Render(w, d.root)
}

// Element is an <img> node.
type Element struct {
	node      *html.Node
	rect      dom.Rect
	listeners map[dom.EventKind][]func()
}

var _ dom.Element = (*Element)(nil)

// Node returns the underlying node.
func (e *Element) Node() *html.Node { return e.node }

func (e *Element) attrIndex(name string) int {
	for i, a := range e.node.Attr {
		if a.Namespace == "" && a.Key == name {
			return i
		}
	}
	return -1
}

// HasAttribute reports whether the attribute is present.
func (e *Element) HasAttribute(name string) bool {
	return e.attrIndex(name) >= 0
}

// GetAttribute returns the attribute value.
func (e *Element) GetAttribute(name string) (string, bool) {
	if i := e.attrIndex(name); i >= 0 {
		return e.node.Attr[i].Val, true
	}
	return "", false
}

// SetAttribute sets or appends the attribute.
func (e *Element) SetAttribute(name, value string) {
	if i := e.attrIndex(name); i >= 0 {
		e.node.Attr[i].Val = value
		return
	}
	e.node.Attr = append(e.node.Attr, html.Attribute{Key: name, Val: value})
}

func (e *Element) removeAttribute(name string) {
	if i := e.attrIndex(name); i >= 0 {
		e.node.Attr = append(e.node.Attr[:i], e.node.Attr[i+1:]...)
	}
}

// Data returns a data-* attribute.
func (e *Element) Data(key string) (string, bool) {
	return e.GetAttribute("data-" + key)
}

// SetData sets a data-* attribute.
func (e *Element) SetData(key, value string) {
	e.SetAttribute("data-"+key, value)
}

// Style returns an inline style property from the style attribute.
func (e *Element) Style(property string) string {
	style, _ := e.GetAttribute("style")
	for _, decl := range parseStyle(style) {
		if decl.prop == property {
			return decl.value
		}
	}
	return ""
}

// SetStyle rewrites the style attribute with property set, or removed when
// value is empty. Other declarations keep their order.
func (e *Element) SetStyle(property, value string) {
	style, _ := e.GetAttribute("style")
	decls := parseStyle(style)

	found := false
	out := decls[:0]
	for _, decl := range decls {
		if decl.prop == property {
			found = true
			if value == "" {
				continue
			}
			decl.value = value
		}
		out = append(out, decl)
	}
	if !found && value != "" {
		out = append(out, styleDecl{prop: property, value: value})
	}

	if len(out) == 0 {
		e.removeAttribute("style")
		return
	}
	e.SetAttribute("style", formatStyle(out))
}

// BoundingRect returns the rectangle estimated by the last Images call.
func (e *Element) BoundingRect() dom.Rect { return e.rect }

// AddEventListener records fn. Parsed documents never fire events on their own.
func (e *Element) AddEventListener(kind dom.EventKind, fn func()) {
	if e.listeners == nil {
		e.listeners = make(map[dom.EventKind][]func())
	}
	e.listeners[kind] = append(e.listeners[kind], fn)
}

// Dispatch invokes the listeners for kind.
func (e *Element) Dispatch(kind dom.EventKind) {
	for _, fn := range append([]func(){}, e.listeners[kind]...) {
		fn()
	}
}

// declaredHeight reads a pixel height attribute, 0 when absent or relative.
func (e *Element) declaredHeight() float64 {
	v, ok := e.GetAttribute("height")
	if !ok {
		return 0
	}
	v = strings.TrimSuffix(strings.TrimSpace(v), "px")
	h, err := strconv.ParseFloat(v, 64)
	if err != nil || h < 0 {
		return 0
	}
	return h
}

type styleDecl struct {
	prop  string
	value string
}

// parseStyle splits a style attribute into declarations. Values containing
// ';' inside strings or url() are not supported; image styling here never
// produces them.
func parseStyle(s string) []styleDecl {
	var out []styleDecl
	for _, part := range strings.Split(s, ";") {
		prop, value, ok := strings.Cut(part, ":")
		if !ok {
			continue
		}
		prop = strings.ToLower(strings.TrimSpace(prop))
		value = strings.TrimSpace(value)
		if prop == "" {
			continue
		}
		out = append(out, styleDecl{prop: prop, value: value})
	}
	return out
}

func formatStyle(decls []styleDecl) string {
	parts := make([]string, len(decls))
	for i, d := range decls {
		parts[i] = d.prop + ": " + d.value
	}
	return strings.Join(parts, "; ")
}
