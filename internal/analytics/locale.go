package analytics

import (
	"strings"

	"github.com/montanasport9-stack/maestriadotrader/internal/model"
)

// Locale selects the language of month labels.
type Locale string

const (
	LocalePtBR Locale = "pt-BR"
	LocaleEN   Locale = "en"
)

// InvalidMonth labels trades whose date cannot be parsed.
const InvalidMonth = "Invalid Date"

var shortMonths = map[Locale][12]string{
	LocalePtBR: {"jan.", "fev.", "mar.", "abr.", "mai.", "jun.", "jul.", "ago.", "set.", "out.", "nov.", "dez."},
	LocaleEN:   {"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"},
}

// ParseLocale maps a language tag to a supported Locale, defaulting to
// pt-BR for anything unrecognised.
func ParseLocale(tag string) Locale {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if tag == "en" || strings.HasPrefix(tag, "en-") || strings.HasPrefix(tag, "en_") {
		return LocaleEN
	}
	return LocalePtBR
}

// MonthLabel returns the short month name of a YYYY-MM-DD date. The year
// is deliberately dropped.
func MonthLabel(date string, loc Locale) string {
	t, err := model.ParseDate(date)
	if err != nil {
		return InvalidMonth
	}
	names, ok := shortMonths[loc]
	if !ok {
		names = shortMonths[LocalePtBR]
	}
	return names[t.Month()-1]
}
