package dashboard

import (
	"fmt"
	"time"

	"golang.org/x/text/language"
)

// DefaultLocale is used when no locale is configured or it cannot be matched.
const DefaultLocale = "fr-FR"

type monthNames [12]string

var supported = []language.Tag{
	language.French,
	language.English,
	language.Italian,
	language.German,
	language.Spanish,
}

var names = []monthNames{
	{"janv.", "févr.", "mars", "avr.", "mai", "juin", "juil.", "août", "sept.", "oct.", "nov.", "déc."},
	{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"},
	{"gen", "feb", "mar", "apr", "mag", "giu", "lug", "ago", "set", "ott", "nov", "dic"},
	{"Jan.", "Feb.", "März", "Apr.", "Mai", "Juni", "Juli", "Aug.", "Sept.", "Okt.", "Nov.", "Dez."},
	{"ene", "feb", "mar", "abr", "may", "jun", "jul", "ago", "sept", "oct", "nov", "dic"},
}

var matcher = language.NewMatcher(supported)

// namesFor picks the month names of the closest supported language.
// Unparseable or unsupported locales fall back to French.
func namesFor(locale string) monthNames {
	tag, err := language.Parse(locale)
	if err != nil {
		return names[0]
	}
	_, idx, conf := matcher.Match(tag)
	if conf == language.No {
		return names[0]
	}
	return names[idx]
}

func (m monthNames) label(year int, month time.Month) string {
	return fmt.Sprintf("%s %02d", m[month-1], year%100)
}
