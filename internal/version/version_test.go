package version

import (
	"errors"
	"sort"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in        string
		major     uint
		minor     uint
		patch     uint
		hasPatch  bool
		formatted string
	}{
		{in: "11.5", major: 11, minor: 5, formatted: "11.5"},
		{in: "0.17.0", major: 0, minor: 17, patch: 0, hasPatch: true, formatted: "0.17.0"},
		{in: "v1.2.3", major: 1, minor: 2, patch: 3, hasPatch: true, formatted: "1.2.3"},
		{in: " v11.0 ", major: 11, minor: 0, formatted: "11.0"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			v, err := Parse(tt.in)
			if err != nil {
				t.Fatalf("Parse(%q) error: %v", tt.in, err)
			}
			if v.Major() != tt.major || v.Minor() != tt.minor {
				t.Fatalf("Parse(%q) = %d.%d, want %d.%d", tt.in, v.Major(), v.Minor(), tt.major, tt.minor)
			}
			patch, ok := v.Patch()
			if ok != tt.hasPatch || patch != tt.patch {
				t.Fatalf("Parse(%q) patch = (%d, %v), want (%d, %v)", tt.in, patch, ok, tt.patch, tt.hasPatch)
			}
			if v.String() != tt.formatted {
				t.Fatalf("String() = %q, want %q", v.String(), tt.formatted)
			}
		})
	}
}

func TestParseRejectsMalformed(t *testing.T) {
	for _, in := range []string{"", "v", "x.y", "11", "11.", ".5", "1.2.3.4", "1.-2", "1.2.x", "11.5-rc1"} {
		_, err := Parse(in)
		if err == nil {
			t.Fatalf("Parse(%q) expected error", in)
		}
		if !errors.Is(err, ErrParse) {
			t.Fatalf("Parse(%q) error %v does not wrap ErrParse", in, err)
		}
		var pe *ParseError
		if !errors.As(err, &pe) || pe.Input != in {
			t.Fatalf("Parse(%q) expected ParseError carrying input, got %v", in, err)
		}
	}
}

func TestOrdering(t *testing.T) {
	a := New(11, 0)
	b := New(11, 5)
	c := NewPatch(11, 5, 1)
	if !a.Less(b) || !b.Less(c) || !a.Less(c) {
		t.Fatalf("expected %s < %s < %s", a, b, c)
	}
	if c.Less(a) {
		t.Fatalf("ordering not antisymmetric")
	}
}

func TestAbsentPatchSortsBeforeZeroPatch(t *testing.T) {
	noPatch := New(11, 5)
	zero := NewPatch(11, 5, 0)

	if noPatch.Equal(zero) {
		t.Fatal("11.5 and 11.5.0 must not be equal")
	}
	if Compare(noPatch, zero) != -1 || Compare(zero, noPatch) != 1 {
		t.Fatalf("expected 11.5 < 11.5.0")
	}
	if Compare(New(11, 6), NewPatch(11, 5, 9)) != 1 {
		t.Fatal("minor must dominate patch")
	}
}

func TestSortIsDeterministic(t *testing.T) {
	vs := []Version{MustParse("11.5.1"), MustParse("0.17.0"), MustParse("11.5"), MustParse("11.0"), MustParse("11.5.0")}
	sort.Slice(vs, func(i, j int) bool { return vs[i].Less(vs[j]) })

	want := []string{"0.17.0", "11.0", "11.5", "11.5.0", "11.5.1"}
	for i, v := range vs {
		if v.String() != want[i] {
			t.Fatalf("sorted[%d] = %s, want %s", i, v, want[i])
		}
	}
}

func TestCheckMinimum(t *testing.T) {
	err := CheckMinimum(MustParse("10.0.0"), MustParse("11.0.0"))
	if !errors.Is(err, ErrBelowMinimum) {
		t.Fatalf("expected ErrBelowMinimum, got %v", err)
	}
	var me *MinimumError
	if !errors.As(err, &me) || me.Minimum.String() != "11.0.0" {
		t.Fatalf("expected MinimumError with minimum 11.0.0, got %v", err)
	}

	if err := CheckMinimum(MustParse("11.5"), MustParse("11.0")); err != nil {
		t.Fatalf("11.5 should satisfy 11.0: %v", err)
	}
	if err := CheckMinimum(MustParse("0.15.0"), MustParse("0.15.0")); err != nil {
		t.Fatalf("equal versions should satisfy minimum: %v", err)
	}
}

func TestTextRoundTrip(t *testing.T) {
	var v Version
	if err := v.UnmarshalText([]byte("v0.17.1")); err != nil {
		t.Fatalf("UnmarshalText: %v", err)
	}
	text, err := v.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText: %v", err)
	}
	if string(text) != "0.17.1" {
		t.Fatalf("MarshalText = %q", text)
	}
	if err := v.UnmarshalText([]byte("nope")); err == nil {
		t.Fatal("expected UnmarshalText error")
	}
}
