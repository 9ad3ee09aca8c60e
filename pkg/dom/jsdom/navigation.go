//go:build js && wasm

package jsdom

import (
	"syscall/js"

	"github.com/daxnoob/lazyimg/pkg/navigation"
)

// DocumentObservable is the global observable that instant-navigation themes
// emit on every page swap.
const DocumentObservable = "document$"

// Navigation subscribes to the global document$ observable.
type Navigation struct {
	global js.Value
}

var _ navigation.Stream = Navigation{}

// NewNavigation returns a Navigation and whether document$ exists on the page.
func NewNavigation() (Navigation, bool) {
	v := js.Global().Get(DocumentObservable)
	if v.IsUndefined() || v.IsNull() || v.Get("subscribe").Type() != js.TypeFunction {
		return Navigation{}, false
	}
	return Navigation{global: v}, true
}

// Subscribe calls fn on every emission.
func (n Navigation) Subscribe(fn func()) func() {
	if n.global.IsUndefined() {
		return func() {}
	}
	cb := js.FuncOf(func(js.Value, []js.Value) any {
		fn()
		return nil
	})
	sub := n.global.Call("subscribe", cb)
	return func() {
		if sub.Type() == js.TypeObject && sub.Get("unsubscribe").Type() == js.TypeFunction {
			sub.Call("unsubscribe")
		}
		cb.Release()
	}
}
