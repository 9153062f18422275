package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/repolens/gatekeeper/internal/shared/errors"
)

type trackRequest struct {
	Action string `json:"action" validate:"required,identifier"`
	Limit  int    `json:"limit" validate:"gte=-1"`
}

func TestValidateStruct(t *testing.T) {
	assert.NoError(t, ValidateStruct(trackRequest{Action: "resize", Limit: -1}))

	err := ValidateStruct(trackRequest{Action: "Resize!", Limit: -2})
	appErr := errors.GetAppError(err)
	if assert.NotNil(t, appErr) {
		assert.Equal(t, errors.ErrorTypeValidation, appErr.Type)
		assert.Contains(t, appErr.Details, "action must be lowercase")
		assert.Contains(t, appErr.Details, "limit must be greater than or equal to -1")
	}

	err = ValidateStruct(trackRequest{})
	assert.Contains(t, errors.GetAppError(err).Details, "action is required")
}

func TestIsIdentifier(t *testing.T) {
	assert.True(t, IsIdentifier("free"))
	assert.True(t, IsIdentifier("pro-annual_2"))
	assert.False(t, IsIdentifier(""))
	assert.False(t, IsIdentifier("9lives"))
	assert.False(t, IsIdentifier("UPPER"))
}
