package customers

import (
	"fmt"
	"strings"

	"github.com/brianvoe/gofakeit/v6"

	"customerserver/normalization"
)

// newOrder создает тестовый заказ с контактными данными
func newOrder(id string, createdAt int64, amount float64, name, phone, address string) OrderRecord {
	return OrderRecord{
		OrderID:     id,
		CreatedAt:   createdAt,
		TotalAmount: amount,
		CustomerInfo: &CustomerInfo{
			FullName: name,
			Phone:    phone,
			Address:  address,
		},
	}
}

// mustAggregate создает агрегат из одного заказа, нормализуя телефон
func mustAggregate(id string, order OrderRecord) *CustomerAggregate {
	agg, err := NewCustomerAggregate(id, normalization.NormalizePhone(order.CustomerInfo.Phone), order)
	if err != nil {
		panic(err)
	}
	return agg
}

// sequentialIDs генератор предсказуемых идентификаторов для тестов
func sequentialIDs(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

// fakeCustomer клиент, от имени которого генерируются заказы
type fakeCustomer struct {
	name    string
	local   string // 8 цифр без кода страны
	address string
}

// generateOrders генерирует снимок заказов с разными форматами телефона,
// опечатками в именах и заказами без контактов
func generateOrders(seed int64, customerCount, orderCount int) []OrderRecord {
	faker := gofakeit.New(seed)

	pool := make([]fakeCustomer, customerCount)
	for i := range pool {
		pool[i] = fakeCustomer{
			name:    faker.FirstName() + " " + faker.LastName(),
			local:   faker.Numerify("7#######"),
			address: faker.Street() + ", " + faker.City(),
		}
	}

	orders := make([]OrderRecord, 0, orderCount)
	for i := 0; i < orderCount; i++ {
		c := pool[faker.IntRange(0, customerCount-1)]
		order := OrderRecord{
			OrderID:     fmt.Sprintf("ord-%05d", i),
			CreatedAt:   1_600_000_000_000 + int64(faker.IntRange(0, 365*24*3600))*1000,
			TotalAmount: faker.Float64Range(500, 250000),
		}

		switch faker.IntRange(0, 19) {
		case 0:
			// заказ без контактных данных
		case 1:
			order.CustomerInfo = &CustomerInfo{FullName: c.name, Address: c.address}
		default:
			order.CustomerInfo = &CustomerInfo{
				FullName: misspell(faker, c.name),
				Email:    strings.ToLower(strings.ReplaceAll(c.name, " ", ".")) + "@example.com",
				Phone:    phoneVariant(faker, c.local),
				Address:  c.address,
			}
		}
		orders = append(orders, order)
	}
	return orders
}

// phoneVariant записывает номер в одном из форматов, встречающихся у продавцов
func phoneVariant(faker *gofakeit.Faker, local string) string {
	switch faker.IntRange(0, 3) {
	case 0:
		return "0" + local
	case 1:
		return "00223 " + local[:2] + " " + local[2:4] + " " + local[4:6] + " " + local[6:]
	case 2:
		return "+223-" + local
	default:
		return "(0) " + local[:4] + "-" + local[4:]
	}
}

// misspell иногда удваивает последнюю букву имени
func misspell(faker *gofakeit.Faker, name string) string {
	if faker.IntRange(0, 4) == 0 && name != "" {
		return name + name[len(name)-1:]
	}
	return name
}

// filteredOrderIDs номера заказов, которые должны попасть в агрегаты
func filteredOrderIDs(orders []OrderRecord) map[string]struct{} {
	ids := make(map[string]struct{})
	for _, o := range orders {
		if o.CustomerInfo == nil || normalization.NormalizePhone(o.CustomerInfo.Phone) == "" {
			continue
		}
		ids[o.OrderID] = struct{}{}
	}
	return ids
}
