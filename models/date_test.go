package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateScan(t *testing.T) {
	tests := []struct {
		name string
		src  any
		want Date
	}{
		{"time", time.Date(2025, 3, 22, 0, 0, 0, 0, time.UTC), "2025-03-22"},
		{"iso", "2025-03-22", "2025-03-22"},
		{"rfc3339", "2025-03-22T00:00:00Z", "2025-03-22"},
		{"bytes", []byte("2025-03-22 00:00:00"), "2025-03-22"},
		{"null", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Date
			require.NoError(t, d.Scan(tt.src))
			assert.Equal(t, tt.want, d)
		})
	}

	var d Date
	assert.Error(t, d.Scan(42))
}

func TestDateValue(t *testing.T) {
	v, err := Date("2025-03-22").Value()
	require.NoError(t, err)
	assert.Equal(t, "2025-03-22", v)

	evening := time.Date(2025, 3, 22, 23, 30, 0, 0, time.FixedZone("CET", 3600))
	assert.Equal(t, Date("2025-03-22"), DateOf(evening))
}
