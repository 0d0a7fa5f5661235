package customers

import (
	"log/slog"
	"strconv"
	"strings"

	"customerserver/normalization"
	"customerserver/quality"
)

// AggregationStats статистика первого прохода по заказам
type AggregationStats struct {
	InputOrders           int `json:"input_orders"`
	AggregatedOrders      int `json:"aggregated_orders"`
	SkippedNoCustomerInfo int `json:"skipped_no_customer_info"`
	SkippedInvalidPhone   int `json:"skipped_invalid_phone"`
	SkippedDuplicateID    int `json:"skipped_duplicate_id"`
	DataWarnings          int `json:"data_warnings"`
}

// AggregationResult агрегаты по каноническому телефону
type AggregationResult struct {
	// Aggregates в порядке первого появления телефона во входных заказах
	Aggregates []*CustomerAggregate
	ByPhone    map[string]*CustomerAggregate
	Stats      AggregationStats
}

// Aggregator группирует заказы по каноническому телефону
type Aggregator struct {
	phones *normalization.PhoneNormalizer
	newID  func() string
	logger *slog.Logger
}

// NewAggregator создает агрегатор
func NewAggregator(phones *normalization.PhoneNormalizer, newID func() string, logger *slog.Logger) *Aggregator {
	if phones == nil {
		phones = normalization.NewPhoneNormalizer(normalization.DefaultCountryCode)
	}
	if newID == nil {
		newID = newUUID
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{phones: phones, newID: newID, logger: logger}
}

// BuildAggregates строит агрегаты за один проход.
// Заказы без контактных данных или с телефоном, который не удалось нормализовать,
// пропускаются без ошибки. Заказ без номера получает служебный номер "#<позиция>".
func (a *Aggregator) BuildAggregates(orders []OrderRecord) *AggregationResult {
	result := &AggregationResult{
		Aggregates: make([]*CustomerAggregate, 0),
		ByPhone:    make(map[string]*CustomerAggregate),
	}
	result.Stats.InputOrders = len(orders)

	seenOrderIDs := make(map[string]struct{}, len(orders))

	for idx, order := range orders {
		info := order.CustomerInfo
		if info == nil {
			result.Stats.SkippedNoCustomerInfo++
			continue
		}

		phone := a.phones.Normalize(info.Phone)
		if phone == "" {
			result.Stats.SkippedInvalidPhone++
			continue
		}

		order.OrderID = strings.TrimSpace(order.OrderID)
		if order.OrderID == "" {
			order.OrderID = "#" + strconv.Itoa(idx)
		}
		if _, dup := seenOrderIDs[order.OrderID]; dup {
			result.Stats.SkippedDuplicateID++
			a.logger.Debug("Duplicate order id skipped", "order_id", order.OrderID, "canonical_phone", phone)
			continue
		}
		seenOrderIDs[order.OrderID] = struct{}{}

		warnings := quality.ValidateOrder(quality.OrderCheck{
			OrderID:     order.OrderID,
			TotalAmount: order.TotalAmount,
			FullName:    info.FullName,
			Email:       info.Email,
			Phone:       info.Phone,
		})
		result.Stats.DataWarnings += len(warnings)

		agg, exists := result.ByPhone[phone]
		if !exists {
			created, err := NewCustomerAggregate(a.newID(), phone, order)
			if err != nil {
				// телефон уже проверен выше
				a.logger.Error("Failed to create customer aggregate", "error", err, "order_id", order.OrderID)
				continue
			}
			agg = created
			result.ByPhone[phone] = agg
			result.Aggregates = append(result.Aggregates, agg)
		} else {
			extendAggregate(agg, order, info)
		}

		for _, w := range warnings {
			agg.Warnings = append(agg.Warnings, w.String())
		}
		result.Stats.AggregatedOrders++
	}

	return result
}

// extendAggregate добавляет заказ в существующий агрегат того же телефона
func extendAggregate(agg *CustomerAggregate, order OrderRecord, info *CustomerInfo) {
	if order.CreatedAt < agg.FirstOrderAt {
		agg.FirstOrderAt = order.CreatedAt
	}
	if order.CreatedAt > agg.LastOrderAt {
		agg.LastOrderAt = order.CreatedAt
	}

	agg.OrderIDs = append(agg.OrderIDs, order.OrderID)
	agg.TotalOrders = len(agg.OrderIDs)
	agg.TotalSpent += quality.SanitizeAmount(order.TotalAmount)

	if address := strings.TrimSpace(info.Address); address != "" {
		agg.Addresses = appendUnique(agg.Addresses, address)
	}
	if agg.Email == "" {
		agg.Email = strings.TrimSpace(info.Email)
	}
	if agg.Phone == "" {
		agg.Phone = strings.TrimSpace(info.Phone)
	}

	if name := strings.TrimSpace(info.FullName); normalization.IsUsableName(name) && !containsString(agg.NameVariations, name) {
		agg.NameVariations = append(agg.NameVariations, name)
		agg.refreshName()
	}
}
