package normalize

import "strings"

// suffixArticles are the articles the volumes move to the end of a title for
// alphabetization ("Pastor Fido, El").
var suffixArticles = []string{"El", "La", "Los", "Las"}

// Title turns a catalog-ordered title into its canonical reading form:
// the suffix article moves back to the front and whitespace collapses.
// "Pastor Fido, El" becomes "El Pastor Fido". Titles without a suffix
// article pass through unchanged apart from space collapsing.
func Title(raw string) string {
	title := CollapseSpaces(raw)
	title = strings.TrimSuffix(title, ".")
	for _, art := range suffixArticles {
		suffix := ", " + art
		if strings.HasSuffix(title, suffix) {
			return art + " " + strings.TrimSpace(strings.TrimSuffix(title, suffix))
		}
	}
	return title
}

// HasSuffixArticle reports whether raw ends in one of the moved articles.
func HasSuffixArticle(raw string) bool {
	title := strings.TrimSuffix(CollapseSpaces(raw), ".")
	for _, art := range suffixArticles {
		if strings.HasSuffix(title, ", "+art) {
			return true
		}
	}
	return false
}

// TitleKey is the cross-source matching key for a title: article restored,
// then folded (lowercase, diacritics stripped, punctuation collapsed).
func TitleKey(raw string) string {
	return Fold(Title(raw))
}
