package dashboard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMonthLabels(t *testing.T) {
	cases := []struct {
		locale string
		month  time.Month
		want   string
	}{
		{"fr-FR", time.January, "janv. 24"},
		{"fr", time.August, "août 24"},
		{"en-US", time.January, "Jan 24"},
		{"en-GB", time.December, "Dec 24"},
		{"it-IT", time.January, "gen 24"},
		{"de-DE", time.March, "März 24"},
		{"es", time.May, "may 24"},
		{"not a locale!", time.February, "févr. 24"},
		{"", time.February, "févr. 24"},
	}
	for _, c := range cases {
		t.Run(c.locale, func(t *testing.T) {
			assert.Equal(t, c.want, namesFor(c.locale).label(2024, c.month))
		})
	}
}

func TestEngineLocaleInHistory(t *testing.T) {
	s := NewEngine("en-US").Compute(nil, nil, nil, time.Date(2025, time.January, 3, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, "Feb 24", s.History[0].Label)
	assert.Equal(t, "Jan 25", s.History[11].Label)
	assert.Equal(t, "2025-01", s.History[11].MonthKey)
}
