package metadata

import (
	"fmt"
	"io"
)

// Form holds the two metadata inputs and the errors from the last Submit.
type Form struct {
	name        string
	description string
	errors      FieldErrors
}

func NewForm(name, description string) *Form {
	return &Form{name: name, description: description}
}

func (f *Form) SetName(name string) {
	f.name = name
}

func (f *Form) SetDescription(description string) {
	f.description = description
}

func (f *Form) Values() Metadata {
	return Metadata{Name: f.name, Description: f.description}
}

// Submit validates the current values and replaces the visible errors.
func (f *Form) Submit() FieldErrors {
	f.errors = Validate(f.Values())
	return f.errors
}

func (f *Form) Errors() FieldErrors {
	return f.errors
}

// Render writes each input with its error, if any, on the line below it.
func (f *Form) Render(w io.Writer) error {
	rows := []struct {
		label, value, err string
	}{
		{"Video Name", f.name, f.errors.Name},
		{"Video Description", f.description, f.errors.Description},
	}

	for _, r := range rows {
		if _, err := fmt.Fprintf(w, "%s\n  %s\n", r.label, r.value); err != nil {
			return err
		}
		if r.err != "" {
			if _, err := fmt.Fprintf(w, "  ! %s\n", r.err); err != nil {
				return err
			}
		}
	}
	return nil
}
