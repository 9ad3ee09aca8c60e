// Package dom describes the slice of the document object model that the image
// passes work against, and provides an in-memory implementation of it.
//
// The browser owns the real DOM. Everything in this module talks to it through
// the Document and Element interfaces so that the same passes run against:
//
//   - the in-memory Tree in this package (tests, embedding programs),
//   - an HTML document parsed with golang.org/x/net/html (package htmldom),
//   - the live browser DOM through syscall/js (package jsdom, js/wasm only).
//
// # Element API
//
// In-memory trees are built with variadic factory functions:
//
//	tree := dom.NewTree(800,
//	    dom.Div(
//	        dom.Img(dom.Src("/img/a.png"), dom.At(100, 200)),
//	        dom.Img(dom.Src("/img/b.png"), dom.Loading("eager")),
//	    ),
//	)
//
// # Identity
//
// Implementations must return the same Element value for the same underlying
// node across calls to Document.Images, and that value must be comparable.
// Callers key per-element state by it.
package dom
