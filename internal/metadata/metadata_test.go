package metadata

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestValidate_Scenarios(t *testing.T) {
	tests := []struct {
		name string
		in   Metadata
		want FieldErrors
	}{
		{
			name: "valid",
			in:   Metadata{Name: "My Clip", Description: "A short clip."},
			want: FieldErrors{},
		},
		{
			name: "short name and empty description",
			in:   Metadata{Name: "ab", Description: ""},
			want: FieldErrors{
				Name:        "Name must be at least 3 characters",
				Description: "Description is required",
			},
		},
		{
			name: "empty name",
			in:   Metadata{Name: "", Description: "ok"},
			want: FieldErrors{Name: "Name must be at least 3 characters"},
		},
		{
			name: "long name",
			in:   Metadata{Name: strings.Repeat("n", 21), Description: "ok"},
			want: FieldErrors{Name: "Name must be at most 20 characters"},
		},
		{
			name: "long description",
			in:   Metadata{Name: "abc", Description: strings.Repeat("d", 201)},
			want: FieldErrors{Description: "Description cannot exceed 200 characters"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Validate(tt.in); got != tt.want {
				t.Errorf("Validate() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestValidate_NameBounds(t *testing.T) {
	for n := 0; n <= 25; n++ {
		got := Validate(Metadata{Name: strings.Repeat("x", n), Description: "d"})
		inside := n >= 3 && n <= 20
		if inside && got.Name != "" {
			t.Errorf("len %d: unexpected name error %q", n, got.Name)
		}
		if !inside && got.Name == "" {
			t.Errorf("len %d: expected name error", n)
		}
		if got.Description != "" {
			t.Errorf("len %d: unexpected description error %q", n, got.Description)
		}
	}
}

func TestValidate_DescriptionBounds(t *testing.T) {
	for _, n := range []int{0, 1, 2, 100, 199, 200, 201, 250} {
		got := Validate(Metadata{Name: "abc", Description: strings.Repeat("x", n)})
		inside := n >= 1 && n <= 200
		if inside && got.Description != "" {
			t.Errorf("len %d: unexpected description error %q", n, got.Description)
		}
		if !inside && got.Description == "" {
			t.Errorf("len %d: expected description error", n)
		}
	}
}

func TestValidate_CountsCharactersNotBytes(t *testing.T) {
	// three characters, nine bytes
	if got := Validate(Metadata{Name: "日本語", Description: "d"}); !got.Empty() {
		t.Errorf("Validate() = %+v, want no errors", got)
	}
	// twenty characters, forty bytes
	if got := Validate(Metadata{Name: strings.Repeat("é", 20), Description: "d"}); !got.Empty() {
		t.Errorf("Validate() = %+v, want no errors", got)
	}
}

func TestFieldErrors_JSON(t *testing.T) {
	b, err := json.Marshal(FieldErrors{})
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "{}" {
		t.Errorf("empty FieldErrors JSON = %s, want {}", b)
	}

	m := FieldErrors{Description: "Description is required"}.Map()
	if len(m) != 1 || m[FieldDescription] != "Description is required" {
		t.Errorf("Map() = %v", m)
	}
}

func TestForm_Submit(t *testing.T) {
	f := NewForm("ab", "")

	errs := f.Submit()
	if errs.Empty() {
		t.Fatal("Submit() returned no errors for invalid input")
	}
	if f.Errors() != errs {
		t.Errorf("Errors() = %+v, want %+v", f.Errors(), errs)
	}

	f.SetName("My Clip")
	f.SetDescription("A short clip.")
	if errs := f.Submit(); !errs.Empty() {
		t.Errorf("Submit() = %+v, want empty", errs)
	}
	if !f.Errors().Empty() {
		t.Error("visible errors should be cleared after a valid submit")
	}
	if f.Values() != (Metadata{Name: "My Clip", Description: "A short clip."}) {
		t.Errorf("Values() = %+v", f.Values())
	}
}

func TestForm_Render(t *testing.T) {
	f := NewForm("ab", "fine")
	f.Submit()

	var buf bytes.Buffer
	if err := f.Render(&buf); err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	want := "Video Name\n  ab\n  ! Name must be at least 3 characters\nVideo Description\n  fine\n"
	if buf.String() != want {
		t.Errorf("Render() =\n%s\nwant\n%s", buf.String(), want)
	}
}
