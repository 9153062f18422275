package id

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHandoffID(t *testing.T) {
	a, err := NewHandoffID()
	require.NoError(t, err)
	b, err := NewHandoffID()
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.Len(t, a, len(PrefixHandoff)+1+DefaultLength)

	short, err := ParseHandoffID(a)
	require.NoError(t, err)
	assert.Len(t, short, DefaultLength)
}

func TestParseHandoffIDRejectsOtherPrefixes(t *testing.T) {
	_, err := ParseHandoffID("tk_abc")
	assert.Error(t, err)
	_, err = ParseHandoffID("nounderscore")
	assert.Error(t, err)
}
