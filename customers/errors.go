package customers

import "errors"

// ErrInvariantViolation внутренняя ошибка: нарушен инвариант агрегата.
// Возникает только при ошибке в коде, а не из-за данных продавца.
var ErrInvariantViolation = errors.New("customer aggregate invariant violated")
