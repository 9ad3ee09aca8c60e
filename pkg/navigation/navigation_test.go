package navigation

import "testing"

func TestHubPublishOrder(t *testing.T) {
	h := NewHub()
	var got []string
	h.Subscribe(func() { got = append(got, "a") })
	h.Subscribe(func() { got = append(got, "b") })

	h.Publish()
	h.Publish()

	want := []string{"a", "b", "a", "b"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestHubUnsubscribe(t *testing.T) {
	h := NewHub()
	var a, b int
	unsubA := h.Subscribe(func() { a++ })
	h.Subscribe(func() { b++ })

	h.Publish()
	unsubA()
	unsubA() // second call is a no-op
	h.Publish()

	if a != 1 || b != 2 {
		t.Errorf("a=%d b=%d, want a=1 b=2", a, b)
	}
	if h.Len() != 1 {
		t.Errorf("Len() = %d, want 1", h.Len())
	}
}

func TestHubSubscribeDuringPublish(t *testing.T) {
	h := NewHub()
	var late int
	h.Subscribe(func() {
		h.Subscribe(func() { late++ })
	})

	h.Publish()
	if late != 0 {
		t.Errorf("subscriber added during publish ran in the same publish")
	}
	h.Publish()
	if late != 1 {
		t.Errorf("late = %d, want 1", late)
	}
}
