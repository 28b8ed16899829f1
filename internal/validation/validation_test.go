package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type reviewBody struct {
	Status  string `validate:"required,oneof=approved rejected" msg:"Status must be either approved or rejected"`
	Comment string
}

type plainBody struct {
	Name string `validate:"required"`
}

func TestStruct(t *testing.T) {
	assert.NoError(t, Struct(&reviewBody{Status: "approved"}))
	assert.NoError(t, Struct(reviewBody{Status: "rejected"}))

	err := Struct(&reviewBody{Status: "maybe"})
	assert.EqualError(t, err, "Status must be either approved or rejected")

	err = Struct(&reviewBody{})
	assert.EqualError(t, err, "Status must be either approved or rejected")

	err = Struct(&plainBody{})
	assert.EqualError(t, err, "field 'Name' failed validation: required")
}
