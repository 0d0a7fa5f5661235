package normalization

import (
	"strings"
	"unicode/utf8"
)

// UnknownCustomerName имя клиента, если ни одно из наблюдаемых имен не годится
const UnknownCustomerName = "Unknown customer"

// minNameLength минимальная длина имени в символах
const minNameLength = 2

// ChooseBestName выбирает отображаемое имя из вариантов написания.
// Побеждает самое длинное имя (в символах); при равной длине остается то, что встретилось раньше.
func ChooseBestName(variations []string) string {
	best := ""
	bestLen := 0

	for _, candidate := range variations {
		candidate = strings.TrimSpace(candidate)
		if !IsUsableName(candidate) {
			continue
		}

		if n := utf8.RuneCountInString(candidate); n > bestLen {
			best = candidate
			bestLen = n
		}
	}

	if best == "" {
		return UnknownCustomerName
	}
	return best
}

// IsUsableName проверяет, что имя не пустое и не короче двух символов
func IsUsableName(name string) bool {
	name = strings.TrimSpace(name)
	return name != "" && utf8.RuneCountInString(name) >= minNameLength
}
