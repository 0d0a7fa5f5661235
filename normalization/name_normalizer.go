package normalization

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripMarks раскладывает символы (NFD) и удаляет диакритику
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)))

// NormalizeName строит ключ сравнения для имени клиента.
// Ключ содержит только [a-z0-9] и никогда не показывается пользователю.
func NormalizeName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}

	decomposed, _, err := transform.String(stripMarks, strings.ToLower(name))
	if err != nil {
		decomposed = strings.ToLower(name)
	}

	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}

	return strings.TrimSpace(b.String())
}
