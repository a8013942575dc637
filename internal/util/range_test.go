package util

import (
	"reflect"
	"testing"
)

func TestExpandRange(t *testing.T) {
	tests := []struct {
		name    string
		spec    string
		want    []int
		wantErr bool
	}{
		{name: "single value", spec: "5", want: []int{5}},
		{name: "simple range", spec: "1-5", want: []int{1, 2, 3, 4, 5}},
		{name: "comma separated", spec: "1,3,5", want: []int{1, 3, 5}},
		{name: "mixed", spec: "1-3,5,7-9", want: []int{1, 2, 3, 5, 7, 8, 9}},
		{name: "with spaces", spec: "1 - 3, 5", want: []int{1, 2, 3, 5}},
		{name: "duplicates removed", spec: "1-3,2-4", want: []int{1, 2, 3, 4}},
		{name: "empty string", spec: "", want: nil},
		{name: "invalid - start > end", spec: "5-1", wantErr: true},
		{name: "invalid - not a number", spec: "abc", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExpandRange(tt.spec)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ExpandRange(%q) error = %v, wantErr %v", tt.spec, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ExpandRange(%q) = %v, want %v", tt.spec, got, tt.want)
			}
		})
	}
}

func TestCompactRange(t *testing.T) {
	tests := []struct {
		name   string
		values []int
		want   string
	}{
		{name: "empty", values: nil, want: ""},
		{name: "single", values: []int{5}, want: "5"},
		{name: "contiguous", values: []int{1, 2, 3, 4, 5}, want: "1-5"},
		{name: "gaps", values: []int{1, 2, 3, 5, 7, 8, 9}, want: "1-3,5,7-9"},
		{name: "unsorted with dupes", values: []int{3, 1, 2, 2}, want: "1-3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CompactRange(tt.values)
			if got != tt.want {
				t.Errorf("CompactRange(%v) = %q, want %q", tt.values, got, tt.want)
			}
		})
	}
}

func TestCompactRangeRoundTrip(t *testing.T) {
	spec := "1-3,5,7-9,24"
	values, err := ExpandRange(spec)
	if err != nil {
		t.Fatalf("ExpandRange: %v", err)
	}
	if got := CompactRange(values); got != spec {
		t.Errorf("round trip: ExpandRange->CompactRange = %q, want %q", got, spec)
	}
}

func TestConsecutive(t *testing.T) {
	tests := []struct {
		name string
		v    []int
		want bool
	}{
		{name: "empty", v: nil, want: true},
		{name: "single", v: []int{5}, want: true},
		{name: "consecutive", v: []int{1, 2, 3}, want: true},
		{name: "unsorted consecutive", v: []int{3, 1, 2}, want: true},
		{name: "gap", v: []int{1, 2, 4}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Consecutive(tt.v); got != tt.want {
				t.Errorf("Consecutive(%v) = %v, want %v", tt.v, got, tt.want)
			}
		})
	}
}
