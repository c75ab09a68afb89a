package analytics

import (
	"golang.org/x/text/language"
)

// UnknownMonth labels month numbers outside 1..12.
const UnknownMonth = "Unknown"

var monthTables = map[language.Tag]MonthNames{
	language.Turkish: {
		"Ocak", "Şubat", "Mart", "Nisan", "Mayıs", "Haziran",
		"Temmuz", "Ağustos", "Eylül", "Ekim", "Kasım", "Aralık",
	},
	language.English: {
		"January", "February", "March", "April", "May", "June",
		"July", "August", "September", "October", "November", "December",
	},
	language.Indonesian: {
		"Januari", "Februari", "Maret", "April", "Mei", "Juni",
		"Juli", "Agustus", "September", "Oktober", "November", "Desember",
	},
}

// Turkish is first so it wins when nothing matches.
var localeMatcher = language.NewMatcher([]language.Tag{
	language.Turkish,
	language.English,
	language.Indonesian,
})

// MonthNames is a fixed 12-entry month label table.
type MonthNames [12]string

// MonthNamesFor picks the closest supported table for a BCP 47 locale such as
// "tr", "en-US" or "id". Unparseable or unsupported locales use Turkish.
func MonthNamesFor(locale string) MonthNames {
	tag, _, _ := localeMatcher.Match(language.Make(locale))
	base, _ := tag.Base()
	for candidate, names := range monthTables {
		if b, _ := candidate.Base(); b == base {
			return names
		}
	}
	return monthTables[language.Turkish]
}

// Name returns the label for a 1-based month number.
func (m MonthNames) Name(month int) string {
	if month < 1 || month > 12 {
		return UnknownMonth
	}
	return m[month-1]
}
