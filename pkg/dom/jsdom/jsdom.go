//go:build js && wasm

package jsdom

import (
	"strconv"
	"sync"
	"syscall/js"

	"github.com/daxnoob/lazyimg/pkg/dom"
)

// idProperty is an expando property holding the wrapper id on each element.
const idProperty = "__lazyimgID"

// Document wraps the global document.
type Document struct {
	doc js.Value
	win js.Value

	mu     sync.Mutex
	nextID int
	elems  map[int]*Element
}

var (
	_ dom.Document      = (*Document)(nil)
	_ dom.ReadyNotifier = (*Document)(nil)
	_ dom.Element       = (*Element)(nil)
	_ dom.Releaser      = (*Element)(nil)
)

// NewDocument wraps the page's document and window.
func NewDocument() *Document {
	return &Document{
		doc:   js.Global().Get("document"),
		win:   js.Global(),
		elems: make(map[int]*Element),
	}
}

// Images returns every img element in document order.
func (d *Document) Images() []dom.Element {
	list := d.doc.Call("querySelectorAll", "img")
	n := list.Length()
	out := make([]dom.Element, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, d.wrap(list.Index(i)))
	}
	return out
}

func (d *Document) wrap(v js.Value) *Element {
	d.mu.Lock()
	defer d.mu.Unlock()

	if id := v.Get(idProperty); id.Type() == js.TypeNumber {
		if el, ok := d.elems[id.Int()]; ok {
			return el
		}
	}
	d.nextID++
	el := &Element{v: v, doc: d, id: d.nextID}
	v.Set(idProperty, d.nextID)
	d.elems[d.nextID] = el
	return el
}

// ViewportHeight returns window.innerHeight.
func (d *Document) ViewportHeight() float64 {
	return d.win.Get("innerHeight").Float()
}

// OnReady runs fn once DOMContentLoaded has fired.
func (d *Document) OnReady(fn func()) {
	if d.doc.Get("readyState").String() != "loading" {
		fn()
		return
	}
	var cb js.Func
	cb = js.FuncOf(func(js.Value, []js.Value) any {
		cb.Release()
		fn()
		return nil
	})
	d.doc.Call("addEventListener", "DOMContentLoaded", cb, map[string]any{"once": true})
}

// Element wraps an HTMLImageElement.
type Element struct {
	v         js.Value
	doc       *Document
	id        int
	listeners []listener
}

type listener struct {
	event string
	fn    js.Func
}

// Value returns the underlying JS value.
func (e *Element) Value() js.Value { return e.v }

func (e *Element) HasAttribute(name string) bool {
	return e.v.Call("hasAttribute", name).Bool()
}

// GetAttribute returns the attribute. For src it returns the resolved
// absolute URL the browser uses.
func (e *Element) GetAttribute(name string) (string, bool) {
	if !e.HasAttribute(name) {
		return "", false
	}
	if name == dom.AttrSrc {
		return e.v.Get("src").String(), true
	}
	return e.v.Call("getAttribute", name).String(), true
}

func (e *Element) SetAttribute(name, value string) {
	if name == dom.AttrSrc {
		e.v.Set("src", value)
		return
	}
	e.v.Call("setAttribute", name, value)
}

func (e *Element) Data(key string) (string, bool) {
	return e.GetAttribute("data-" + key)
}

func (e *Element) SetData(key, value string) {
	e.v.Call("setAttribute", "data-"+key, value)
}

func (e *Element) Style(property string) string {
	return e.v.Get("style").Call("getPropertyValue", property).String()
}

func (e *Element) SetStyle(property, value string) {
	style := e.v.Get("style")
	if value == "" {
		style.Call("removeProperty", property)
		return
	}
	style.Call("setProperty", property, value)
}

func (e *Element) BoundingRect() dom.Rect {
	r := e.v.Call("getBoundingClientRect")
	return dom.Rect{
		Top:    r.Get("top").Float(),
		Bottom: r.Get("bottom").Float(),
		Left:   r.Get("left").Float(),
		Right:  r.Get("right").Float(),
	}
}

// AddEventListener registers fn. Listeners live until Release.
func (e *Element) AddEventListener(kind dom.EventKind, fn func()) {
	cb := js.FuncOf(func(js.Value, []js.Value) any {
		fn()
		return nil
	})
	e.listeners = append(e.listeners, listener{event: kind.String(), fn: cb})
	e.v.Call("addEventListener", kind.String(), cb)
}

// Release removes the element's listeners, frees their callbacks and drops
// the wrapper from its document. A later lookup of the same node creates a
// fresh wrapper.
func (e *Element) Release() {
	for _, l := range e.listeners {
		e.v.Call("removeEventListener", l.event, l.fn)
		l.fn.Release()
	}
	e.listeners = nil

	e.doc.mu.Lock()
	delete(e.doc.elems, e.id)
	e.doc.mu.Unlock()
	e.v.Delete(idProperty)
}

// String identifies the element in logs.
func (e *Element) String() string {
	return "img#" + strconv.Itoa(e.id)
}
