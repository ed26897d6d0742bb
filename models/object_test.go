package models

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestParseJSON_KeepsKeyOrder(t *testing.T) {
	v, err := ParseJSON([]byte(`{"to": 200, "from": 100, "unit": "NOK"}`))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	obj, ok := v.(*Object)
	if !ok {
		t.Fatalf("expected *Object, got %T", v)
	}

	want := []string{"to", "from", "unit"}
	if got := obj.Keys(); !reflect.DeepEqual(got, want) {
		t.Fatalf("keys = %v, want %v", got, want)
	}

	vals := obj.Values()
	if vals[0] != json.Number("200") || vals[1] != json.Number("100") || vals[2] != "NOK" {
		t.Fatalf("unexpected values %v", vals)
	}
}

func TestParseJSON_Nested(t *testing.T) {
	v, err := ParseJSON([]byte(`{"props":{"pageProps":{"search":{"docs":[{"id":1},{"id":"x"}]}}},"flag":true,"none":null}`))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	obj := v.(*Object)

	docs, ok := obj.Lookup("props", "pageProps", "search", "docs")
	if !ok {
		t.Fatalf("docs not found")
	}
	arr, ok := docs.([]any)
	if !ok || len(arr) != 2 {
		t.Fatalf("expected 2 docs, got %#v", docs)
	}
	if id, _ := arr[1].(*Object).Get("id"); id != "x" {
		t.Fatalf("expected id x, got %v", id)
	}

	if flag, _ := obj.Get("flag"); flag != true {
		t.Fatalf("expected flag true, got %v", flag)
	}
	if none, ok := obj.Get("none"); !ok || none != nil {
		t.Fatalf("expected explicit null, got %v (%v)", none, ok)
	}
}

func TestParseJSON_Invalid(t *testing.T) {
	cases := []string{
		``,
		`{"a":`,
		`{"a":1}}`,
		`{"a":1} {"b":2}`,
	}
	for _, c := range cases {
		if _, err := ParseJSON([]byte(c)); err == nil {
			t.Errorf("ParseJSON(%q) expected error", c)
		}
	}
}

func TestObjectLookup_Missing(t *testing.T) {
	obj := NewObject()
	obj.Set("price", "not an object")

	if _, ok := obj.Lookup("price", "amount"); ok {
		t.Fatalf("lookup through a string should fail")
	}
	if _, ok := obj.Lookup("missing"); ok {
		t.Fatalf("lookup of missing key should fail")
	}

	var nilObj *Object
	if _, ok := nilObj.Get("x"); ok {
		t.Fatalf("nil object should have no keys")
	}
	if nilObj.Len() != 0 {
		t.Fatalf("nil object length should be 0")
	}
}

func TestObjectSet_ReplaceKeepsPosition(t *testing.T) {
	obj := NewObject()
	obj.Set("a", 1)
	obj.Set("b", 2)
	obj.Set("a", 3)

	if got := obj.Keys(); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("keys = %v", got)
	}
	if v, _ := obj.Get("a"); v != 3 {
		t.Fatalf("a = %v, want 3", v)
	}
}
