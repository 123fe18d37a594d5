package normalize

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// minNameLen discards OCR shrapnel that pattern-matched as a name.
const minNameLen = 3

// lowerParticles are the Spanish particles kept lowercase inside a name.
var lowerParticles = map[string]bool{
	"de":  true,
	"del": true,
	"la":  true,
	"las": true,
	"los": true,
	"y":   true,
	"e":   true,
}

var spanishTitle = cases.Title(language.Spanish)

// Name canonicalizes a company or author string: trimmed, space-collapsed,
// title-cased with particles left lowercase ("Agustín Manuel de Castilla",
// "Juan de la Calle"). Variants that differ only in casing or diacritic loss
// collapse to one form. Strings shorter than three characters are discarded
// and return "".
func Name(raw string) string {
	name := CollapseSpaces(raw)
	name = strings.Trim(name, ".,;: ")
	if len([]rune(name)) < minNameLen {
		return ""
	}

	words := strings.Fields(name)
	for i, w := range words {
		lower := strings.ToLower(w)
		if i > 0 && lowerParticles[Fold(lower)] {
			words[i] = lower
			continue
		}
		words[i] = spanishTitle.String(lower)
	}
	return strings.Join(words, " ")
}

// CompanyName canonicalizes a company string, stripping the "compañía de"
// prefix variants so the stored identity is the director's name.
func CompanyName(raw string) string {
	name := CollapseSpaces(raw)
	folded := Fold(name)
	for _, prefix := range []string{"companias de ", "compania de ", "companias ", "compania "} {
		if strings.HasPrefix(folded, prefix) {
			words := strings.Fields(name)
			drop := len(strings.Fields(prefix))
			if len(words) > drop {
				name = strings.Join(words[drop:], " ")
			}
			break
		}
	}
	return Name(name)
}
