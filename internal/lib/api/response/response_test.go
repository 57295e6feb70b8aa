package response

import (
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Email string `validate:"required,email"`
	Name  string `validate:"required"`
	Age   int    `validate:"gte=18"`
}

func TestValidationError(t *testing.T) {
	err := validator.New().Struct(sample{Email: "nope", Age: 3})
	require.Error(t, err)

	var verrs validator.ValidationErrors
	require.True(t, errors.As(err, &verrs))

	got := ValidationError(verrs)

	assert.Equal(t, StatusError, got.Status)
	assert.Equal(t,
		"field Email is not a valid email, field Name is a required field, field Age is not valid",
		got.Error,
	)
}

func TestErrorList(t *testing.T) {
	got := ErrorList("weak", []string{"a", "b"})

	assert.Equal(t, StatusError, got.Status)
	assert.Equal(t, "weak", got.Error)
	assert.Equal(t, []string{"a", "b"}, got.Errors)
	assert.Equal(t, Response{Status: StatusOK}, OK())
}
