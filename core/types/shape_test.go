package types

import "testing"

func TestShapeOf(t *testing.T) {
	tests := []struct {
		v    Value
		want Shape
	}{
		{[]Value{1}, ShapeSequence},
		{NewMap(), ShapeMapping},
		{"s", ShapeScalar},
		{nil, ShapeScalar},
		{Absent, ShapeScalar},
		{int64(2), ShapeScalar},
	}
	for _, tt := range tests {
		if got := ShapeOf(tt.v); got != tt.want {
			t.Errorf("ShapeOf(%#v) = %s, want %s", tt.v, got, tt.want)
		}
	}
}

func TestParseShape(t *testing.T) {
	tests := []struct {
		in   string
		want Shape
		ok   bool
	}{
		{"array", ShapeSequence, true},
		{"sequence", ShapeSequence, true},
		{"Object", ShapeMapping, true},
		{" mapping ", ShapeMapping, true},
		{"scalar", ShapeScalar, true},
		{"tuple", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseShape(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseShape(%q) = %s, %v, want %s, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestShapeSet(t *testing.T) {
	containers := Shapes(ShapeMapping, ShapeSequence)

	if !containers.Has(ShapeSequence) || !containers.Has(ShapeMapping) {
		t.Errorf("containers missing members: %s", containers)
	}
	if containers.Has(ShapeScalar) {
		t.Error("containers has scalar")
	}
	if got := containers.String(); got != "sequence, mapping" {
		t.Errorf("String() = %q", got)
	}
	if !containers.SubsetOf(AnyShape) {
		t.Error("containers not subset of AnyShape")
	}
	if AnyShape.SubsetOf(containers) {
		t.Error("AnyShape subset of containers")
	}
	if got := ShapeSet(0).String(); got != "none" {
		t.Errorf("empty String() = %q", got)
	}
	if !ShapeSet(0).Empty() {
		t.Error("zero set not empty")
	}
}
