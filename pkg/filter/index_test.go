package filter

import (
	"reflect"
	"testing"
)

func TestIndexLookups(t *testing.T) {
	ds := NewDataset([]Record{
		{City: "Portland"}, {City: "Port Arthur"}, {City: "portland"}, {City: "Pueblo"}, {City: ""},
	})
	ix := NewIndex(ds)

	if ix.Keys() != 3 {
		t.Errorf("expected 3 distinct keys, got %d", ix.Keys())
	}
	if got := ix.Prefix("port"); !reflect.DeepEqual(got, []int{0, 1, 2}) {
		t.Errorf("expected positions [0 1 2], got %v", got)
	}
	if got := ix.Exact("portland"); !reflect.DeepEqual(got, []int{0, 2}) {
		t.Errorf("expected positions [0 2], got %v", got)
	}
	if got := ix.Prefix("q"); len(got) != 0 {
		t.Errorf("expected no positions, got %v", got)
	}
	if got := ix.Exact("port"); got != nil {
		t.Errorf("expected nil for missing exact key, got %v", got)
	}
}
