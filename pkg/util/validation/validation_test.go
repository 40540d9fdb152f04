package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/spec-kit/garage-service/pkg/util/errorutil"
)

type line struct {
	Name  string  `json:"name" validate:"required"`
	Price float64 `json:"price" validate:"gte=0"`
}

type order struct {
	CustomerID string `json:"customerId" validate:"required"`
	Items      []line `json:"items" validate:"required,dive"`
	Internal   string `json:"-"`
}

func TestFieldsUseJSONNames(t *testing.T) {
	v := New()
	fields, err := v.Fields(order{Items: []line{{Name: "a", Price: -1}}})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"customerId":     "required",
		"items[0].price": "gte",
	}, fields)
}

func TestStructReturnsValidationError(t *testing.T) {
	v := New()
	assert.NoError(t, v.Struct("invalid order", order{CustomerID: "c", Items: []line{}}))

	err := v.Struct("invalid order", order{})
	require.Error(t, err)
	de := apperrors.ToDomainError(err)
	assert.Equal(t, apperrors.CodeValidation, de.Code)
	assert.Equal(t, 400, de.HTTPStatus)
	fields := de.Details["fields"].(map[string]string)
	assert.Contains(t, fields, "customerId")
	assert.Contains(t, fields, "items")
}
