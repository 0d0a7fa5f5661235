package customers

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMerger() *Merger {
	return NewMerger(defaultScorer(), DefaultMergeThreshold, nil)
}

// TestMergeAll_SamePhoneAndName объединяет агрегаты с одним телефоном и именем
func TestMergeAll_SamePhoneAndName(t *testing.T) {
	a := mustAggregate("a", newOrder("o1", 100, 10, "Awa Diop", "070012345", "Rue 10"))
	b := mustAggregate("b", newOrder("o2", 50, 20, "AWA DIOP", "+22370012345", "ACI 2000"))

	merged, err := newTestMerger().MergeAll(context.Background(), []*CustomerAggregate{a, b})
	require.NoError(t, err)
	require.Len(t, merged, 1)

	c := merged[0]
	assert.Equal(t, "a", c.ID)
	assert.Equal(t, []string{"o1", "o2"}, c.OrderIDs)
	assert.Equal(t, 2, c.TotalOrders)
	assert.Equal(t, int64(50), c.FirstOrderAt)
	assert.Equal(t, int64(100), c.LastOrderAt)
	assert.InDelta(t, 30.0, c.TotalSpent, 1e-9)
	assert.Equal(t, []string{"b"}, c.PossibleDuplicateIDs)
	assert.NoError(t, c.Validate())
}

// TestMergeAll_BelowThresholdStaysSeparate похожие имена и общий адрес без телефона не объединяются
func TestMergeAll_BelowThresholdStaysSeparate(t *testing.T) {
	a := mustAggregate("a", newOrder("o1", 1, 10, "Awa Diop", "070000001", "Rue 10, Bamako"))
	b := mustAggregate("b", newOrder("o2", 2, 10, "Awa Diopp", "070000002", "Rue 10, Bamako"))

	merged, err := newTestMerger().MergeAll(context.Background(), []*CustomerAggregate{a, b})
	require.NoError(t, err)
	require.Len(t, merged, 2)
	assert.Empty(t, merged[0].PossibleDuplicateIDs)
	assert.Empty(t, merged[1].PossibleDuplicateIDs)
}

// bridgingAggregates три агрегата: первый и третий не похожи друг на друга,
// но второй связывает их через выросший кластер
func bridgingAggregates() (a, b, c *CustomerAggregate) {
	a = mustAggregate("a", newOrder("a1", 1, 10, "Moussa Keita", "070012345", "Rue X"))
	b = mustAggregate("b", newOrder("b1", 2, 10, "Moussa Keita Jr", "070012345", "Rue Y"))
	c = mustAggregate("c", newOrder("c1", 3, 10, "Moussa Keita Jrr", "070012345", "Rue Y"))
	return a, b, c
}

// TestMergeAll_TransitiveThroughCluster проверяет объединение через выросший кластер
func TestMergeAll_TransitiveThroughCluster(t *testing.T) {
	a, b, c := bridgingAggregates()
	scorer := defaultScorer()

	require.Less(t, scorer.Score(a, c).Score, DefaultMergeThreshold, "a and c alone must not merge")

	merged, err := newTestMerger().MergeAll(context.Background(), []*CustomerAggregate{a, b, c})
	require.NoError(t, err)
	require.Len(t, merged, 1)

	cluster := merged[0]
	assert.Equal(t, []string{"a1", "b1", "c1"}, cluster.OrderIDs)
	assert.Equal(t, []string{"b", "c"}, cluster.PossibleDuplicateIDs)
	assert.Equal(t, "Moussa Keita Jrr", cluster.DisplayName)
	assert.Equal(t, []string{"Rue X", "Rue Y"}, cluster.Addresses)
}

// TestMergeAll_OrderDependent порядок входа влияет на кластеры
func TestMergeAll_OrderDependent(t *testing.T) {
	a, b, c := bridgingAggregates()

	merged, err := newTestMerger().MergeAll(context.Background(), []*CustomerAggregate{a, c, b})
	require.NoError(t, err)
	require.Len(t, merged, 2)
	assert.Equal(t, []string{"a1", "b1"}, merged[0].OrderIDs)
	assert.Equal(t, []string{"c1"}, merged[1].OrderIDs)
}

// TestMergeAll_DoesNotMutateInput проверяет, что входные агрегаты не меняются
func TestMergeAll_DoesNotMutateInput(t *testing.T) {
	a, b, c := bridgingAggregates()
	before := []*CustomerAggregate{a.Clone(), b.Clone(), c.Clone()}

	_, err := newTestMerger().MergeAll(context.Background(), []*CustomerAggregate{a, b, c})
	require.NoError(t, err)

	assert.Equal(t, before[0], a)
	assert.Equal(t, before[1], b)
	assert.Equal(t, before[2], c)
}

// TestMergeAll_Empty проверяет пустой вход
func TestMergeAll_Empty(t *testing.T) {
	merged, err := newTestMerger().MergeAll(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, merged)
}

// TestMergeAll_SkipsNil пропускает nil агрегаты
func TestMergeAll_SkipsNil(t *testing.T) {
	a := mustAggregate("a", newOrder("o1", 1, 10, "Awa Diop", "070012345", ""))

	merged, err := newTestMerger().MergeAll(context.Background(), []*CustomerAggregate{nil, a, nil})
	require.NoError(t, err)
	require.Len(t, merged, 1)
	assert.Equal(t, "a", merged[0].ID)
}

// TestMergeAll_Cancelled проверяет отмену контекста
func TestMergeAll_Cancelled(t *testing.T) {
	a, b, c := bridgingAggregates()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	merged, err := newTestMerger().MergeAll(ctx, []*CustomerAggregate{a, b, c})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Nil(t, merged)
}

// TestMergeAll_SharedOrderIDs пересечение заказов - нарушение инварианта
func TestMergeAll_SharedOrderIDs(t *testing.T) {
	a := mustAggregate("a", newOrder("o1", 1, 10, "Awa Diop", "070012345", ""))
	b := mustAggregate("b", newOrder("o1", 2, 10, "Awa Diop", "070012345", ""))

	_, err := newTestMerger().MergeAll(context.Background(), []*CustomerAggregate{a, b})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvariantViolation))
}

// TestCombine проверяет поля объединенного агрегата
func TestCombine(t *testing.T) {
	first := newOrder("o1", 200, 10, "Awa", "070012345", "Rue 10")
	a := mustAggregate("a", first)

	second := newOrder("o2", 100, 15.5, "Awa Diop", "070012345", "Rue 10")
	second.CustomerInfo.Email = "awa@example.com"
	b := mustAggregate("b", second)
	b.PossibleDuplicateIDs = []string{"z"}

	merged, err := Combine(a, b)
	require.NoError(t, err)

	assert.Equal(t, "a", merged.ID)
	assert.Equal(t, a.CanonicalPhone, merged.CanonicalPhone)
	assert.Equal(t, "awa@example.com", merged.Email)
	assert.Equal(t, []string{"Rue 10"}, merged.Addresses)
	assert.Equal(t, []string{"o1", "o2"}, merged.OrderIDs)
	assert.Equal(t, 2, merged.TotalOrders)
	assert.Equal(t, int64(100), merged.FirstOrderAt)
	assert.Equal(t, int64(200), merged.LastOrderAt)
	assert.InDelta(t, 25.5, merged.TotalSpent, 1e-9)
	assert.Equal(t, []string{"Awa", "Awa Diop"}, merged.NameVariations)
	assert.Equal(t, "Awa Diop", merged.DisplayName)
	assert.Equal(t, "awadiop", merged.NormalizedName)
	assert.Equal(t, []string{"z", "b"}, merged.PossibleDuplicateIDs)
	assert.NoError(t, merged.Validate())

	assert.Equal(t, []string{"o1"}, a.OrderIDs, "inputs stay untouched")
	assert.Equal(t, []string{"o2"}, b.OrderIDs)
}

// TestCombine_Errors проверяет ошибки объединения
func TestCombine_Errors(t *testing.T) {
	a := mustAggregate("a", newOrder("o1", 1, 10, "Awa Diop", "070012345", ""))
	b := mustAggregate("b", newOrder("o1", 2, 10, "Awa Diop", "070012345", ""))

	tests := []struct {
		name   string
		c1, c2 *CustomerAggregate
	}{
		{"nil first", nil, a},
		{"nil second", a, nil},
		{"shared order ids", a, b},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			merged, err := Combine(tt.c1, tt.c2)
			assert.Nil(t, merged)
			assert.ErrorIs(t, err, ErrInvariantViolation)
		})
	}
}

// TestNewMerger_Defaults проверяет значения по умолчанию
func TestNewMerger_Defaults(t *testing.T) {
	m := NewMerger(nil, 0.5, nil)
	assert.Equal(t, 0.5, m.Threshold())
	assert.NotNil(t, m.scorer)
	assert.NotNil(t, m.logger)
}
