package quality

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Коды предупреждений о качестве данных заказа
const (
	WarningNegativeTotal = "negative_total"
	WarningInvalidEmail  = "invalid_email"
	WarningShortName     = "short_name"
	WarningShortPhone    = "short_phone"
)

// minPlausiblePhoneDigits минимальное число цифр, похожее на реальный номер
const minPlausiblePhoneDigits = 8

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// Warning предупреждение о качестве данных одного заказа.
// Предупреждения не исключают заказ из обработки.
type Warning struct {
	Code    string `json:"code"`
	OrderID string `json:"order_id"`
	Message string `json:"message"`
}

// String возвращает предупреждение в виде строки для выгрузок
func (w Warning) String() string {
	if w.OrderID == "" {
		return fmt.Sprintf("%s: %s", w.Code, w.Message)
	}
	return fmt.Sprintf("%s [%s]: %s", w.Code, w.OrderID, w.Message)
}

// OrderCheck поля заказа, которые проверяются на качество
type OrderCheck struct {
	OrderID     string
	TotalAmount float64
	FullName    string
	Email       string
	Phone       string
}

// ValidateOrder проверяет заказ и возвращает список предупреждений
func ValidateOrder(o OrderCheck) []Warning {
	var warnings []Warning

	if o.TotalAmount < 0 {
		warnings = append(warnings, Warning{
			Code:    WarningNegativeTotal,
			OrderID: o.OrderID,
			Message: fmt.Sprintf("order total %.2f is negative, counted as 0", o.TotalAmount),
		})
	}

	if email := strings.TrimSpace(o.Email); email != "" && !ValidateEmail(email) {
		warnings = append(warnings, Warning{
			Code:    WarningInvalidEmail,
			OrderID: o.OrderID,
			Message: fmt.Sprintf("email %q is malformed", email),
		})
	}

	if name := strings.TrimSpace(o.FullName); name != "" && utf8.RuneCountInString(name) < 2 {
		warnings = append(warnings, Warning{
			Code:    WarningShortName,
			OrderID: o.OrderID,
			Message: fmt.Sprintf("customer name %q is too short", name),
		})
	}

	if digits := countDigits(o.Phone); digits > 0 && digits < minPlausiblePhoneDigits {
		warnings = append(warnings, Warning{
			Code:    WarningShortPhone,
			OrderID: o.OrderID,
			Message: fmt.Sprintf("phone %q has only %d digits", strings.TrimSpace(o.Phone), digits),
		})
	}

	return warnings
}

// ValidateEmail валидирует email адрес
func ValidateEmail(email string) bool {
	if email == "" {
		return false
	}
	return emailPattern.MatchString(email)
}

// SanitizeAmount возвращает сумму заказа, пригодную для накопления (не меньше нуля)
func SanitizeAmount(amount float64) float64 {
	if amount < 0 || math.IsNaN(amount) {
		return 0
	}
	return amount
}

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}
