package cart

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"MiniCart/internal/catalog"
)

var (
	mug    = catalog.Product{ID: 1, Title: "Mug", Price: 9.5}
	kettle = catalog.Product{ID: 2, Name: "Kettle", Price: 30}
	free   = catalog.Product{ID: 5, Title: "Sticker", Price: 0}
)

func TestCart_ToggleAddsThenRemoves(t *testing.T) {
	c := New([]catalog.Product{kettle})
	before := c.Entries()

	if added := c.Toggle(mug); !added {
		t.Fatalf("first toggle should add")
	}
	if c.Len() != 2 || !c.Contains(mug.ID) {
		t.Fatalf("after add: len=%d contains=%v", c.Len(), c.Contains(mug.ID))
	}

	if added := c.Toggle(mug); added {
		t.Fatalf("second toggle should remove")
	}
	if diff := cmp.Diff(before, c.Entries()); diff != "" {
		t.Fatalf("toggle pair changed cart (-before +after):\n%s", diff)
	}
}

func TestCart_KeepsInsertionOrder(t *testing.T) {
	c := New(nil)
	c.Toggle(kettle)
	c.Toggle(mug)
	c.Toggle(free)
	c.Toggle(mug)

	want := []catalog.Product{kettle, free}
	if diff := cmp.Diff(want, c.Entries()); diff != "" {
		t.Fatalf("entries mismatch (-want +got):\n%s", diff)
	}
}

func TestCart_RemoveAbsentIsNoop(t *testing.T) {
	c := New([]catalog.Product{mug, kettle})
	before := c.Entries()

	if c.Remove(42) {
		t.Fatalf("Remove(42) reported a removal")
	}
	if diff := cmp.Diff(before, c.Entries()); diff != "" {
		t.Fatalf("cart changed (-before +after):\n%s", diff)
	}

	if !c.Remove(mug.ID) {
		t.Fatalf("Remove(mug) should succeed")
	}
	if c.Contains(mug.ID) || c.Len() != 1 {
		t.Fatalf("mug still present: %+v", c.Entries())
	}
}

func TestCart_NewDropsDuplicateIDs(t *testing.T) {
	c := New([]catalog.Product{mug, mug, kettle})
	if c.Len() != 2 {
		t.Fatalf("len=%d want=2", c.Len())
	}
}

func TestCart_EntriesIsACopy(t *testing.T) {
	c := New([]catalog.Product{mug})
	e := c.Entries()
	e[0].Title = "changed"
	if c.Entries()[0].Title != "Mug" {
		t.Fatalf("Entries leaked internal slice")
	}
}

func TestCart_Total(t *testing.T) {
	c := New([]catalog.Product{mug, kettle, free})
	if got := c.Total(); got != 39.5 {
		t.Fatalf("total=%v want=39.5", got)
	}
}
