package normalization

import (
	"strings"
)

// DefaultCountryCode префикс страны для номеров в местном формате (Мали)
const DefaultCountryCode = "+223"

// PhoneNormalizer приводит телефон, введенный продавцом в свободной форме, к ключу сравнения.
// Длина и регион номера не проверяются: лучше склеить лишнее, чем потерять заказ.
type PhoneNormalizer struct {
	countryCode string
}

// NewPhoneNormalizer создает нормализатор с указанным кодом страны по умолчанию.
// Пустой код заменяется на DefaultCountryCode, отсутствующий "+" добавляется.
func NewPhoneNormalizer(countryCode string) *PhoneNormalizer {
	countryCode = strings.TrimSpace(countryCode)
	if countryCode == "" {
		countryCode = DefaultCountryCode
	}
	if !strings.HasPrefix(countryCode, "+") {
		countryCode = "+" + countryCode
	}
	return &PhoneNormalizer{countryCode: countryCode}
}

// CountryCode возвращает код страны, подставляемый вместо ведущего нуля
func (pn *PhoneNormalizer) CountryCode() string {
	return pn.countryCode
}

// Normalize возвращает канонический телефон или пустую строку.
//
// Правила:
//   - все нецифровые символы удаляются, "+" в начале номера сохраняется;
//   - префикс "00" заменяется на "+";
//   - ведущий "0" заменяется на код страны;
//   - иначе номер считается уже содержащим код страны.
func (pn *PhoneNormalizer) Normalize(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	digits := onlyDigits(raw)
	if digits == "" {
		return ""
	}

	if strings.HasPrefix(raw, "+") {
		return "+" + digits
	}

	switch {
	case strings.HasPrefix(digits, "00"):
		if len(digits) == 2 {
			return ""
		}
		return "+" + digits[2:]
	case strings.HasPrefix(digits, "0"):
		return pn.countryCode + digits[1:]
	default:
		return digits
	}
}

var defaultPhoneNormalizer = NewPhoneNormalizer(DefaultCountryCode)

// NormalizePhone нормализует телефон с кодом страны по умолчанию
func NormalizePhone(raw string) string {
	return defaultPhoneNormalizer.Normalize(raw)
}

// onlyDigits оставляет в строке только ASCII-цифры
func onlyDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
