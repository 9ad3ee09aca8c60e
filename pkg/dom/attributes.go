package dom

// Attr is a single attribute passed to an element factory.
type Attr struct {
	Key   string
	Value string
}

// attr creates an Attr with the given key and value.
func attr(key, value string) Attr {
	return Attr{Key: key, Value: value}
}

// ID sets the id attribute.
func ID(id string) Attr { return attr("id", id) }

// Class sets the class attribute.
func Class(class string) Attr { return attr("class", class) }

// Data creates a data-* attribute.
// Example: Data("original-src", "/a.png") → data-original-src="/a.png"
func Data(key, value string) Attr { return attr("data-"+key, value) }

// Image attributes

// Src sets the src attribute.
func Src(url string) Attr { return attr(AttrSrc, url) }

// Alt sets the alt attribute.
func Alt(text string) Attr { return attr("alt", text) }

// Loading sets the loading attribute ("lazy" or "eager").
func Loading(mode string) Attr { return attr(AttrLoading, mode) }

// Decoding sets the decoding attribute ("async", "sync" or "auto").
func Decoding(mode string) Attr { return attr(AttrDecoding, mode) }

// FetchPriority sets the fetchpriority attribute.
func FetchPriority(p string) Attr { return attr(AttrFetchPriority, p) }

// Layout

// At places an element at top with the given height, relative to the viewport.
func At(top, height float64) Rect {
	return Rect{Top: top, Bottom: top + height}
}
