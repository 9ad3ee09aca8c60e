package dom

// Attribute names read and written by the image passes.
const (
	AttrLoading       = "loading"
	AttrDecoding      = "decoding"
	AttrFetchPriority = "fetchpriority"
	AttrSrc           = "src"
)

// Style properties toggled on failed images.
const (
	StyleOpacity = "opacity"
	StyleBorder  = "border"
)

// EventKind identifies an element event the passes listen for.
type EventKind uint8

const (
	EventLoad  EventKind = iota // image decoded successfully
	EventError                  // image failed to load
)

// String returns the DOM event name.
func (k EventKind) String() string {
	switch k {
	case EventLoad:
		return "load"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Rect is an element's bounding rectangle relative to the viewport.
type Rect struct {
	Top    float64
	Bottom float64
	Left   float64
	Right  float64
}

// Height returns the vertical extent of the rectangle.
func (r Rect) Height() float64 { return r.Bottom - r.Top }

// IntersectsViewport reports whether the rectangle vertically overlaps a
// viewport of the given height.
func (r Rect) IntersectsViewport(height float64) bool {
	return r.Top < height && r.Bottom > 0
}

// Element is an image element.
type Element interface {
	// HasAttribute reports whether the attribute is present, even if empty.
	HasAttribute(name string) bool

	// GetAttribute returns the attribute value and whether it is present.
	GetAttribute(name string) (string, bool)

	// SetAttribute sets the attribute. Setting src starts a new load.
	SetAttribute(name, value string)

	// Data returns a data-* value by its key without the "data-" prefix.
	Data(key string) (string, bool)

	// SetData sets a data-* value by its key without the "data-" prefix.
	SetData(key, value string)

	// Style returns an inline style property, "" when unset.
	Style(property string) string

	// SetStyle sets an inline style property. An empty value removes it.
	SetStyle(property, value string)

	// BoundingRect returns the element's rectangle relative to the viewport.
	BoundingRect() Rect

	// AddEventListener registers fn for the event kind.
	AddEventListener(kind EventKind, fn func())
}

// Releaser is implemented by elements whose listeners hold resources that
// must be freed once the element has left the document.
type Releaser interface {
	// Release removes every listener registered through AddEventListener.
	Release()
}

// Document is the set of image elements on the current page.
type Document interface {
	// Images returns every image element in document order.
	Images() []Element

	// ViewportHeight returns the height of the layout viewport.
	ViewportHeight() float64
}

// ReadyNotifier signals that the document finished parsing.
type ReadyNotifier interface {
	// OnReady runs fn once the document is ready, immediately if it already is.
	OnReady(fn func())
}
