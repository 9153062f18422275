package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMeetsMinimum(t *testing.T) {
	tests := []struct {
		name    string
		current string
		min     string
		want    bool
	}{
		{"no minimum", "", "", true},
		{"equal", "1.4.0", "1.4.0", true},
		{"newer", "v1.5.2", "1.4.0", true},
		{"older", "1.3.9", "v1.4.0", false},
		{"missing current", "", "1.0.0", false},
		{"garbage current", "latest", "1.0.0", false},
		{"garbage minimum ignored", "1.0.0", "soon", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MeetsMinimum(tt.current, tt.min))
		})
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "v1.2.3", Normalize(" 1.2.3 "))
	assert.Equal(t, "v1.2.3", Normalize("v1.2.3"))
	assert.Equal(t, "", Normalize(""))
}
