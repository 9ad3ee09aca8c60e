package dom

// voidElements are elements that cannot have children.
var voidElements = map[string]bool{
	"br":     true,
	"hr":     true,
	"img":    true,
	"input":  true,
	"link":   true,
	"meta":   true,
	"source": true,
}

// IsVoidElement returns true if the tag is a void element.
func IsVoidElement(tag string) bool {
	return voidElements[tag]
}

// createElement creates a new Node with the given tag and arguments.
// Arguments can be: nil, Attr, []Attr, Rect, *Node, []*Node, string.
func createElement(tag string, args []any) *Node {
	node := &Node{
		Kind:  KindElement,
		Tag:   tag,
		Attrs: make(map[string]string),
	}

	for _, arg := range args {
		switch v := arg.(type) {
		case nil:
			continue
		case Attr:
			if v.Key != "" {
				node.Attrs[v.Key] = v.Value
			}
		case []Attr:
			for _, a := range v {
				if a.Key != "" {
					node.Attrs[a.Key] = a.Value
				}
			}
		case Rect:
			node.Rect = v
		case *Node:
			if v != nil && !IsVoidElement(tag) {
				node.Children = append(node.Children, v)
			}
		case []*Node:
			if IsVoidElement(tag) {
				continue
			}
			for _, c := range v {
				if c != nil {
					node.Children = append(node.Children, c)
				}
			}
		case string:
			if !IsVoidElement(tag) {
				node.Children = append(node.Children, Text(v))
			}
		}
	}

	return node
}

// El creates an element with an arbitrary tag.
func El(tag string, args ...any) *Node { return createElement(tag, args) }

// Text creates a text node.
func Text(content string) *Node {
	return &Node{Kind: KindText, Text: content}
}

// Body creates a <body> element.
func Body(args ...any) *Node { return createElement("body", args) }

// Div creates a <div> element.
func Div(args ...any) *Node { return createElement("div", args) }

// Article creates an <article> element.
func Article(args ...any) *Node { return createElement("article", args) }

// P creates a <p> element.
func P(args ...any) *Node { return createElement("p", args) }

// Figure creates a <figure> element.
func Figure(args ...any) *Node { return createElement("figure", args) }

// Img creates an <img> element.
func Img(args ...any) *Node { return createElement("img", args) }
