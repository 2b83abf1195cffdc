package shared

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var nameCaser = cases.Title(language.Und, cases.NoLower)

// NormalizeDisplayName trims and title-cases a person or school name so
// listings sort and render consistently regardless of how it was typed.
func NormalizeDisplayName(name string) string {
	name = strings.Join(strings.Fields(name), " ")
	if name == "" {
		return name
	}
	return nameCaser.String(name)
}
