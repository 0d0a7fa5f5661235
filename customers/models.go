// Package customers определяет, сколько реальных клиентов сделали заказы магазина.
//
// Заказы группируются по каноническому телефону, затем группы с похожими
// именами, телефонами и адресами объединяются жадным проходом.
// Идентификаторы клиентов генерируются заново при каждом расчете и не
// годятся в качестве внешних ключей: для стабильной привязки используйте
// CanonicalPhone.
package customers

import (
	"fmt"
	"math"
	"strings"

	"customerserver/normalization"
	"customerserver/quality"
)

// CustomerInfo контактные данные клиента, введенные продавцом вручную
type CustomerInfo struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
}

// OrderRecord заказ из внешнего хранилища
type OrderRecord struct {
	OrderID      string        `json:"order_id"`
	CreatedAt    int64         `json:"created_at"` // epoch ms
	TotalAmount  float64       `json:"total_amount"`
	CustomerInfo *CustomerInfo `json:"customer_info,omitempty"`
}

// CustomerAggregate накопленные данные о клиенте.
// Поля-множества (Addresses, OrderIDs, NameVariations, PossibleDuplicateIDs)
// хранят элементы в порядке первого появления.
type CustomerAggregate struct {
	ID                   string   `json:"id"`
	CanonicalPhone       string   `json:"canonical_phone"`
	Phone                string   `json:"phone"`
	DisplayName          string   `json:"display_name"`
	Email                string   `json:"email"`
	Addresses            []string `json:"addresses"`
	OrderIDs             []string `json:"order_ids"`
	FirstOrderAt         int64    `json:"first_order_at"`
	LastOrderAt          int64    `json:"last_order_at"`
	TotalOrders          int      `json:"total_orders"`
	TotalSpent           float64  `json:"total_spent"`
	NameVariations       []string `json:"name_variations"`
	NormalizedName       string   `json:"normalized_name"`
	PossibleDuplicateIDs []string `json:"possible_duplicate_ids"`
	Warnings             []string `json:"warnings"`
}

// MatchEvidence результат сравнения двух агрегатов
type MatchEvidence struct {
	Score   float64  `json:"score"`
	Reasons []string `json:"reasons"`
}

// NewCustomerAggregate создает агрегат по первому заказу клиента.
// canonicalPhone должен быть уже нормализован; пустой телефон - ошибка.
func NewCustomerAggregate(id, canonicalPhone string, order OrderRecord) (*CustomerAggregate, error) {
	if canonicalPhone == "" {
		return nil, fmt.Errorf("%w: empty canonical phone for order %q", ErrInvariantViolation, order.OrderID)
	}

	info := order.CustomerInfo
	if info == nil {
		info = &CustomerInfo{}
	}

	agg := &CustomerAggregate{
		ID:                   id,
		CanonicalPhone:       canonicalPhone,
		Phone:                strings.TrimSpace(info.Phone),
		Email:                strings.TrimSpace(info.Email),
		Addresses:            []string{},
		OrderIDs:             []string{},
		FirstOrderAt:         order.CreatedAt,
		LastOrderAt:          order.CreatedAt,
		NameVariations:       []string{},
		PossibleDuplicateIDs: []string{},
		Warnings:             []string{},
	}

	if name := strings.TrimSpace(info.FullName); name != "" {
		agg.NameVariations = append(agg.NameVariations, name)
	}
	if address := strings.TrimSpace(info.Address); address != "" {
		agg.Addresses = append(agg.Addresses, address)
	}
	if order.OrderID != "" {
		agg.OrderIDs = append(agg.OrderIDs, order.OrderID)
	}
	agg.TotalOrders = len(agg.OrderIDs)
	agg.TotalSpent = quality.SanitizeAmount(order.TotalAmount)
	agg.refreshName()

	return agg, nil
}

// Validate проверяет инварианты агрегата
func (c *CustomerAggregate) Validate() error {
	if c == nil {
		return fmt.Errorf("%w: nil aggregate", ErrInvariantViolation)
	}
	if c.CanonicalPhone == "" {
		return fmt.Errorf("%w: aggregate %s has empty canonical phone", ErrInvariantViolation, c.ID)
	}
	if c.FirstOrderAt > c.LastOrderAt {
		return fmt.Errorf("%w: aggregate %s first order %d after last order %d",
			ErrInvariantViolation, c.ID, c.FirstOrderAt, c.LastOrderAt)
	}
	if c.TotalOrders != len(c.OrderIDs) {
		return fmt.Errorf("%w: aggregate %s total orders %d != %d order ids",
			ErrInvariantViolation, c.ID, c.TotalOrders, len(c.OrderIDs))
	}
	if c.TotalSpent < 0 || math.IsNaN(c.TotalSpent) {
		return fmt.Errorf("%w: aggregate %s total spent %v", ErrInvariantViolation, c.ID, c.TotalSpent)
	}
	if dup, ok := firstDuplicate(c.OrderIDs); ok {
		return fmt.Errorf("%w: aggregate %s has order id %q twice", ErrInvariantViolation, c.ID, dup)
	}
	return nil
}

// Clone возвращает независимую копию агрегата
func (c *CustomerAggregate) Clone() *CustomerAggregate {
	if c == nil {
		return nil
	}
	cp := *c
	cp.Addresses = cloneStrings(c.Addresses)
	cp.OrderIDs = cloneStrings(c.OrderIDs)
	cp.NameVariations = cloneStrings(c.NameVariations)
	cp.PossibleDuplicateIDs = cloneStrings(c.PossibleDuplicateIDs)
	cp.Warnings = cloneStrings(c.Warnings)
	return &cp
}

// HasKnownName сообщает, выбрано ли для клиента настоящее имя
func (c *CustomerAggregate) HasKnownName() bool {
	return c.DisplayName != "" && c.DisplayName != normalization.UnknownCustomerName
}

// refreshName пересчитывает отображаемое имя и ключ сравнения по вариантам написания
func (c *CustomerAggregate) refreshName() {
	c.DisplayName = normalization.ChooseBestName(c.NameVariations)
	if c.HasKnownName() {
		c.NormalizedName = normalization.NormalizeName(c.DisplayName)
	} else {
		c.NormalizedName = ""
	}
}
