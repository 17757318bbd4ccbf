// Package metadata validates the user-entered name and description of a clip.
package metadata

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	FieldName        = "name"
	FieldDescription = "description"
)

// Metadata is the editable part of a clip. Lengths are counted in characters.
type Metadata struct {
	Name        string `json:"name" validate:"min=3,max=20"`
	Description string `json:"description" validate:"min=1,max=200"`
}

// FieldErrors holds the first failed rule message per field.
type FieldErrors struct {
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
}

func (e FieldErrors) Empty() bool {
	return e.Name == "" && e.Description == ""
}

// Map returns the errors keyed by field name, omitting valid fields.
func (e FieldErrors) Map() map[string]string {
	m := make(map[string]string, 2)
	if e.Name != "" {
		m[FieldName] = e.Name
	}
	if e.Description != "" {
		m[FieldDescription] = e.Description
	}
	return m
}

var messages = map[string]map[string]string{
	FieldName: {
		"min": "Name must be at least 3 characters",
		"max": "Name must be at most 20 characters",
	},
	FieldDescription: {
		"min": "Description is required",
		"max": "Description cannot exceed 200 characters",
	},
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate applies the schema to m. It never fails; an empty result means valid.
func Validate(m Metadata) FieldErrors {
	var out FieldErrors

	err := validate.Struct(m)
	if err == nil {
		return out
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return out
	}

	for _, fe := range verrs {
		msg := messages[fe.Field()][fe.Tag()]
		switch fe.Field() {
		case FieldName:
			if out.Name == "" {
				out.Name = msg
			}
		case FieldDescription:
			if out.Description == "" {
				out.Description = msg
			}
		}
	}
	return out
}
