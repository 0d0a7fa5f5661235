//go:build property
// +build property

package normalization

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// phoneLike генерирует строки, похожие на телефоны из ручного ввода
func phoneLike() gopter.Gen {
	return gen.OneGenOf(
		gen.NumString(),
		gen.NumString().Map(func(s string) string { return "0" + s }),
		gen.NumString().Map(func(s string) string { return "00" + s }),
		gen.NumString().Map(func(s string) string { return "+" + s }),
		gen.NumString().Map(func(s string) string { return " (0) " + s + "-" }),
		gen.AnyString(),
	)
}

// TestPhoneNormalizationIdempotent нормализация телефона идемпотентна
func TestPhoneNormalizationIdempotent(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 500
	properties := gopter.NewProperties(parameters)

	properties.Property("normalize(normalize(p)) == normalize(p)", prop.ForAll(
		func(raw string) bool {
			once := NormalizePhone(raw)
			return NormalizePhone(once) == once
		},
		phoneLike(),
	))

	properties.Property("canonical phone contains only digits after optional plus", prop.ForAll(
		func(raw string) bool {
			p := NormalizePhone(raw)
			if p == "" {
				return true
			}
			if p[0] == '+' {
				p = p[1:]
			}
			return p != "" && onlyDigits(p) == p
		},
		phoneLike(),
	))

	properties.TestingRun(t)
}

// TestNameNormalizationIdempotent нормализация имени идемпотентна
func TestNameNormalizationIdempotent(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 500
	properties := gopter.NewProperties(parameters)

	properties.Property("normalizeName is idempotent", prop.ForAll(
		func(name string) bool {
			once := NormalizeName(name)
			return NormalizeName(once) == once
		},
		gen.AnyString(),
	))

	properties.Property("best name is one of the variations", prop.ForAll(
		func(variations []string) bool {
			best := ChooseBestName(variations)
			if best == UnknownCustomerName {
				return true
			}
			for _, v := range variations {
				if strings.TrimSpace(v) == best {
					return true
				}
			}
			return false
		},
		gen.SliceOf(gen.AlphaString()),
	))

	properties.TestingRun(t)
}
