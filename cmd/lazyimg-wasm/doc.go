// Command lazyimg-wasm runs the image passes inside the browser. It only
// builds for js/wasm.
package main
