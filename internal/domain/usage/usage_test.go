package usage

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCounterKeyValidate(t *testing.T) {
	assert.NoError(t, CounterKey{Subject: "u1", Action: "resize", PeriodKey: "2026-01-01"}.Validate())
	assert.Error(t, CounterKey{Subject: "u1", Action: "resize"}.Validate())
}

func TestQuotaExceededError(t *testing.T) {
	err := fmt.Errorf("track: %w", &QuotaExceededError{
		Action:   "resize",
		Decision: Decision{Limit: 4, Used: 4},
	})

	assert.True(t, errors.Is(err, ErrQuotaExceeded))
	var qe *QuotaExceededError
	assert.True(t, errors.As(err, &qe))
	assert.Equal(t, int64(4), qe.Decision.Used)
	assert.Contains(t, err.Error(), "used 4 of 4")
}
