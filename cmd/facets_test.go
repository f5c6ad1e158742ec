package main

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestDecodeFacetList(t *testing.T) {
	list := []interface{}{"Health", float64(5), "Agriculture", float64(12), json.Number("2020"), json.Number("3"), "dangling"}

	f := decodeFacetList(list, false)

	if want := []string{"Health", "Agriculture", "2020"}; reflect.DeepEqual(f.Keys(), want) == false {
		t.Errorf("keys %v, want %v", f.Keys(), want)
	}

	if f.Count("Agriculture") != 12 || f.Count("2020") != 3 || f.Count("missing") != 0 {
		t.Errorf("unexpected counts")
	}

	if f.Len() != 3 {
		t.Errorf("trailing key without a count should be dropped, len = %d", f.Len())
	}
}

func TestDecodeFacetListReverse(t *testing.T) {
	list := []interface{}{"2019", float64(1), "2021", float64(4), "2020", float64(2)}

	f := decodeFacetList(list, true)

	if want := []string{"2021", "2020", "2019"}; reflect.DeepEqual(f.Keys(), want) == false {
		t.Errorf("keys %v, want %v", f.Keys(), want)
	}

	if f.Count("2021") != 4 {
		t.Errorf("reversal must keep counts attached to keys")
	}
}

func TestDecodeFacetListSkipsBadCounts(t *testing.T) {
	f := decodeFacetList([]interface{}{"a", "x", "b", float64(2)}, false)

	if want := []string{"b"}; reflect.DeepEqual(f.Keys(), want) == false {
		t.Errorf("keys %v, want %v", f.Keys(), want)
	}
}

func TestEncodeFacetList(t *testing.T) {
	f := newFacetCounts()
	f.set("b", 2)
	f.set("a", 1)
	f.set("b", 3)

	want := []interface{}{"b", 3, "a", 1}
	if got := encodeFacetList(f); reflect.DeepEqual(got, want) == false {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestFacetListRoundTrip(t *testing.T) {
	m := newFacetCounts()
	m.set("Health Canada", 5)
	m.set("Environment and Climate Change Canada", 20)
	m.set("Agriculture and Agri-Food Canada", 0)

	got := decodeFacetList(encodeFacetList(m), false)

	if reflect.DeepEqual(got.Keys(), m.Keys()) == false {
		t.Fatalf("keys %v, want %v", got.Keys(), m.Keys())
	}

	for _, key := range m.Keys() {
		if got.Count(key) != m.Count(key) {
			t.Errorf("%s: count %d, want %d", key, got.Count(key), m.Count(key))
		}
	}
}
