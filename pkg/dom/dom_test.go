package dom

import "testing"

func TestEventKindString(t *testing.T) {
	tests := []struct {
		kind EventKind
		want string
	}{
		{EventLoad, "load"},
		{EventError, "error"},
		{EventKind(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.kind.String(); got != tt.want {
				t.Errorf("EventKind.String() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestKindString(t *testing.T) {
	if KindElement.String() != "Element" || KindText.String() != "Text" || Kind(9).String() != "Unknown" {
		t.Error("Kind.String() mismatch")
	}
}

func TestRectIntersectsViewport(t *testing.T) {
	tests := []struct {
		name string
		rect Rect
		want bool
	}{
		{"inside", At(100, 200), true},
		{"below", At(900, 100), false},
		{"starts at bottom edge", At(800, 50), false},
		{"straddles bottom edge", At(750, 100), true},
		{"above", Rect{Top: -300, Bottom: -10}, false},
		{"ends at top edge", Rect{Top: -100, Bottom: 0}, false},
		{"straddles top edge", Rect{Top: -100, Bottom: 1}, true},
		{"larger than viewport", Rect{Top: -100, Bottom: 2000}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.rect.IntersectsViewport(800); got != tt.want {
				t.Errorf("IntersectsViewport(800) = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRectHeight(t *testing.T) {
	if h := At(100, 250).Height(); h != 250 {
		t.Errorf("Height() = %v, want 250", h)
	}
}

func TestNodeAttributes(t *testing.T) {
	img := Img(Src("/a.png"), Loading("eager"), Data("x", "1"))

	if !img.HasAttribute("loading") {
		t.Error("expected loading attribute")
	}
	if img.HasAttribute("decoding") {
		t.Error("unexpected decoding attribute")
	}
	if v, ok := img.GetAttribute("src"); !ok || v != "/a.png" {
		t.Errorf("src = %q, %v", v, ok)
	}
	if v, ok := img.Data("x"); !ok || v != "1" {
		t.Errorf("data-x = %q, %v", v, ok)
	}

	img.SetData("original-src", "/a.png")
	if v, _ := img.GetAttribute("data-original-src"); v != "/a.png" {
		t.Errorf("data-original-src = %q", v)
	}

	img.RemoveAttribute("loading")
	if img.HasAttribute("loading") {
		t.Error("loading should be removed")
	}

	// Empty value still counts as present.
	img.SetAttribute("decoding", "")
	if !img.HasAttribute("decoding") {
		t.Error("empty attribute should be present")
	}
}

func TestNodeSetAttributeOnBareNode(t *testing.T) {
	n := &Node{Kind: KindElement, Tag: "img"}
	n.SetAttribute("src", "/x.png")
	if v, _ := n.GetAttribute("src"); v != "/x.png" {
		t.Errorf("src = %q", v)
	}
}

func TestNodeStyle(t *testing.T) {
	n := Img()
	n.SetStyle(StyleOpacity, "0.3")
	n.SetStyle(StyleBorder, "1px dashed red")

	if got := n.Style(StyleOpacity); got != "0.3" {
		t.Errorf("opacity = %q", got)
	}
	if got := n.StyleAttr(); got != "border: 1px dashed red; opacity: 0.3" {
		t.Errorf("StyleAttr() = %q", got)
	}

	n.SetStyle(StyleOpacity, "")
	n.SetStyle(StyleBorder, "")
	if n.Style(StyleOpacity) != "" || n.StyleAttr() != "" {
		t.Error("styles should be cleared")
	}
}

func TestNodeListeners(t *testing.T) {
	n := Img()
	var calls []string
	n.AddEventListener(EventError, func() { calls = append(calls, "e1") })
	n.AddEventListener(EventError, func() { calls = append(calls, "e2") })
	n.AddEventListener(EventLoad, func() { calls = append(calls, "l") })

	if n.ListenerCount(EventError) != 2 || n.ListenerCount(EventLoad) != 1 {
		t.Fatalf("listener counts = %d/%d", n.ListenerCount(EventError), n.ListenerCount(EventLoad))
	}

	n.Dispatch(EventError)
	if len(calls) != 2 || calls[0] != "e1" || calls[1] != "e2" {
		t.Errorf("calls = %v", calls)
	}
}

func TestVoidElementDropsChildren(t *testing.T) {
	img := Img(Text("x"), "y", []*Node{Div()})
	if len(img.Children) != 0 {
		t.Errorf("img has %d children", len(img.Children))
	}
}

func TestTreeImagesInDocumentOrder(t *testing.T) {
	a := Img(Src("/a.png"))
	b := Img(Src("/b.png"))
	c := Img(Src("/c.png"))
	tree := NewTree(800,
		Div(a, P("text", Figure(b))),
		nil,
		Article(c),
	)

	imgs := tree.Images()
	if len(imgs) != 3 {
		t.Fatalf("Images() = %d, want 3", len(imgs))
	}
	for i, want := range []*Node{a, b, c} {
		if imgs[i] != Element(want) {
			t.Errorf("Images()[%d] is not the expected node", i)
		}
	}
	if tree.ViewportHeight() != 800 {
		t.Errorf("ViewportHeight() = %v", tree.ViewportHeight())
	}
}

func TestTreeReplace(t *testing.T) {
	tree := NewTree(800, Img(), Img())
	tree.Replace(Div(Img()))
	if n := len(tree.Images()); n != 1 {
		t.Errorf("Images() after Replace = %d, want 1", n)
	}
	tree.Append(Img(), nil)
	if n := len(tree.Images()); n != 2 {
		t.Errorf("Images() after Append = %d, want 2", n)
	}
}

func TestWalkSkipsChildren(t *testing.T) {
	root := Div(Div(Img()), Img())
	var seen int
	root.Walk(func(n *Node) bool {
		seen++
		return n == root
	})
	// root + two direct children; the nested img is skipped.
	if seen != 3 {
		t.Errorf("seen = %d, want 3", seen)
	}
}

func TestTreeReady(t *testing.T) {
	tree := NewTree(800)
	var calls int
	tree.OnReady(func() { calls++ })
	if calls != 0 {
		t.Fatal("ready callback ran before MarkReady")
	}
	tree.MarkReady()
	tree.MarkReady()
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
	tree.OnReady(func() { calls++ })
	if calls != 2 {
		t.Errorf("OnReady on a ready tree should run immediately")
	}
}
