package customers

import (
	"context"
	"fmt"
	"log/slog"
)

// DefaultMergeThreshold минимальная оценка для объединения агрегатов
const DefaultMergeThreshold = 0.8

// scoreEpsilon допуск сравнения с порогом (суммы весов во float64)
const scoreEpsilon = 1e-9

// Merger жадно объединяет похожие агрегаты в кластеры.
//
// Каждый следующий кандидат сравнивается с уже выросшим кластером, а не с
// исходным агрегатом, поэтому два агрегата, не похожих друг на друга, могут
// оказаться в одном кластере через третий.
type Merger struct {
	scorer    *SimilarityScorer
	threshold float64
	logger    *slog.Logger
}

// NewMerger создает объединитель с порогом threshold
func NewMerger(scorer *SimilarityScorer, threshold float64, logger *slog.Logger) *Merger {
	if scorer == nil {
		scorer = NewSimilarityScorer(DefaultScoringWeights(), nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Merger{scorer: scorer, threshold: threshold, logger: logger}
}

// Threshold возвращает порог объединения
func (m *Merger) Threshold() float64 {
	return m.threshold
}

// MergeAll объединяет агрегаты за O(k²) сравнений.
// Входные агрегаты не изменяются. Контекст проверяется один раз на каждой
// итерации внешнего цикла.
func (m *Merger) MergeAll(ctx context.Context, aggregates []*CustomerAggregate) ([]*CustomerAggregate, error) {
	out := make([]*CustomerAggregate, 0, len(aggregates))
	consumed := make([]bool, len(aggregates))

	for i, current := range aggregates {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("merge interrupted after %d of %d aggregates: %w", i, len(aggregates), err)
		}
		if consumed[i] || current == nil {
			continue
		}

		cluster := current.Clone()
		for j := i + 1; j < len(aggregates); j++ {
			candidate := aggregates[j]
			if consumed[j] || candidate == nil {
				continue
			}

			evidence := m.scorer.Score(cluster, candidate)
			if evidence.Score+scoreEpsilon < m.threshold {
				continue
			}

			merged, err := Combine(cluster, candidate)
			if err != nil {
				m.logger.Error("Customer merge failed",
					"error", err,
					"cluster_id", cluster.ID,
					"candidate_id", candidate.ID,
				)
				return nil, err
			}

			m.logger.Debug("Customer aggregates merged",
				"cluster_id", cluster.ID,
				"candidate_id", candidate.ID,
				"score", evidence.Score,
				"reasons", evidence.Reasons,
			)

			cluster = merged
			consumed[j] = true
		}

		consumed[i] = true
		out = append(out, cluster)
	}

	return out, nil
}

// Combine объединяет два агрегата в новый; c1 сохраняет свой ID, ID c2 попадает в PossibleDuplicateIDs.
// Пересечение номеров заказов означает ошибку в первом проходе и возвращает ErrInvariantViolation.
func Combine(c1, c2 *CustomerAggregate) (*CustomerAggregate, error) {
	if c1 == nil || c2 == nil {
		return nil, fmt.Errorf("%w: cannot combine nil aggregate", ErrInvariantViolation)
	}
	if shared := intersectionSize(c1.OrderIDs, c2.OrderIDs); shared > 0 {
		return nil, fmt.Errorf("%w: aggregates %s and %s share %d order ids",
			ErrInvariantViolation, c1.ID, c2.ID, shared)
	}

	merged := &CustomerAggregate{
		ID:                   c1.ID,
		CanonicalPhone:       c1.CanonicalPhone,
		Phone:                c1.Phone,
		Email:                c1.Email,
		Addresses:            unionStrings(c1.Addresses, c2.Addresses),
		OrderIDs:             unionStrings(c1.OrderIDs, c2.OrderIDs),
		FirstOrderAt:         min(c1.FirstOrderAt, c2.FirstOrderAt),
		LastOrderAt:          max(c1.LastOrderAt, c2.LastOrderAt),
		TotalSpent:           c1.TotalSpent + c2.TotalSpent,
		NameVariations:       unionStrings(c1.NameVariations, c2.NameVariations),
		PossibleDuplicateIDs: unionStrings(c1.PossibleDuplicateIDs, c2.PossibleDuplicateIDs),
		Warnings:             unionStrings(c1.Warnings, c2.Warnings),
	}
	if c2.ID != "" {
		merged.PossibleDuplicateIDs = appendUnique(merged.PossibleDuplicateIDs, c2.ID)
	}
	if merged.Email == "" {
		merged.Email = c2.Email
	}
	if merged.Phone == "" {
		merged.Phone = c2.Phone
	}
	merged.TotalOrders = len(merged.OrderIDs)
	merged.refreshName()

	return merged, nil
}
