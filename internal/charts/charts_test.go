package charts

import (
	"bytes"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"folio/internal/dashboard"
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

func TestHistory(t *testing.T) {
	tests := []struct {
		name   string
		values []int64
	}{
		{"rising", []int64{0, 100, 250, 400}},
		{"flat zero", []int64{0, 0, 0}},
		{"flat positive", []int64{500, 500}},
		{"negative", []int64{-20, -10}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			history := make([]dashboard.HistoryPoint, 0, len(tt.values))
			for i, v := range tt.values {
				history = append(history, dashboard.HistoryPoint{
					MonthKey: "2024-0" + string(rune('1'+i)),
					Label:    "m" + string(rune('1'+i)),
					Value:    decimal.NewFromInt(v),
				})
			}
			var buf bytes.Buffer
			require.NoError(t, History(&buf, history, "EUR"))
			assert.True(t, bytes.HasPrefix(buf.Bytes(), pngMagic))
		})
	}
}

func TestAllocation(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Allocation(&buf, nil))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), pngMagic))

	buf.Reset()
	slices := []dashboard.AllocationSlice{
		{Name: "Brokerage account", Value: decimal.NewFromInt(750), Percentage: decimal.NewFromInt(75)},
		{Name: "Crypto", Value: decimal.NewFromInt(250), Percentage: decimal.NewFromInt(25)},
		{Name: "Other", Value: decimal.Zero, Percentage: decimal.Zero},
	}
	require.NoError(t, Allocation(&buf, slices))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), pngMagic))
}
