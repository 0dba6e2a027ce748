package naming

import (
	"strings"

	"github.com/jinzhu/inflection"
)

// Pluralize converts a singular word to its plural form. Overrides match the
// word exactly first, then case-insensitively, since config loaders may fold
// map keys to lower case.
func (n *Namer) Pluralize(word string) string {
	if override, ok := n.config.PluralOverrides[word]; ok {
		return override
	}
	for singular, plural := range n.config.PluralOverrides {
		if strings.EqualFold(singular, word) {
			return plural
		}
	}
	return inflection.Plural(word)
}
