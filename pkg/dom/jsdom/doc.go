// Package jsdom adapts the browser DOM to the dom interfaces. It is only
// available when building for js/wasm.
//
// Wrappers are cached per underlying element so that the same image always
// maps to the same dom.Element value across scans.
package jsdom
