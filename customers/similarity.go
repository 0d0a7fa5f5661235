package customers

import (
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"

	"customerserver/normalization"
)

// ScoringWeights веса сигналов при сравнении двух агрегатов
type ScoringWeights struct {
	NameStrong      float64 `json:"name_strong"`       // схожесть имени выше NameStrongAbove
	NameWeak        float64 `json:"name_weak"`         // схожесть в (NameWeakAbove, NameStrongAbove]
	NameStrongAbove float64 `json:"name_strong_above"` // 0.8
	NameWeakAbove   float64 `json:"name_weak_above"`   // 0.6
	Phone           float64 `json:"phone"`
	Address         float64 `json:"address"`
}

// DefaultScoringWeights веса по умолчанию: имя 0.4/0.2, телефон 0.4, адрес 0.2
func DefaultScoringWeights() ScoringWeights {
	return ScoringWeights{
		NameStrong:      0.4,
		NameWeak:        0.2,
		NameStrongAbove: 0.8,
		NameWeakAbove:   0.6,
		Phone:           0.4,
		Address:         0.2,
	}
}

// SimilarityScorer вычисляет взвешенную оценку совпадения двух агрегатов.
// Оценка симметрична: Score(a, b) == Score(b, a).
type SimilarityScorer struct {
	weights ScoringWeights
	phones  *normalization.PhoneNormalizer
}

// NewSimilarityScorer создает оценщик
func NewSimilarityScorer(weights ScoringWeights, phones *normalization.PhoneNormalizer) *SimilarityScorer {
	if phones == nil {
		phones = normalization.NewPhoneNormalizer(normalization.DefaultCountryCode)
	}
	return &SimilarityScorer{weights: weights, phones: phones}
}

// Score сравнивает два агрегата по имени, телефону и адресам
func (s *SimilarityScorer) Score(a, b *CustomerAggregate) MatchEvidence {
	evidence := MatchEvidence{Reasons: []string{}}
	if a == nil || b == nil {
		return evidence
	}

	score := 0.0

	if keyA, keyB := nameKey(a), nameKey(b); keyA != "" || keyB != "" {
		sim := NameSimilarity(keyA, keyB)
		switch {
		case sim > s.weights.NameStrongAbove:
			score += s.weights.NameStrong
			evidence.Reasons = append(evidence.Reasons, fmt.Sprintf("name similarity %.2f (+%.2f)", sim, s.weights.NameStrong))
		case sim > s.weights.NameWeakAbove:
			score += s.weights.NameWeak
			evidence.Reasons = append(evidence.Reasons, fmt.Sprintf("name similarity %.2f (+%.2f)", sim, s.weights.NameWeak))
		}
	}

	phoneA := s.phones.Normalize(a.CanonicalPhone)
	phoneB := s.phones.Normalize(b.CanonicalPhone)
	if phoneA != "" && phoneA == phoneB {
		score += s.weights.Phone
		evidence.Reasons = append(evidence.Reasons, fmt.Sprintf("same phone %s (+%.2f)", phoneA, s.weights.Phone))
	}

	if shared := intersectionSize(a.Addresses, b.Addresses); shared > 0 {
		score += s.weights.Address
		evidence.Reasons = append(evidence.Reasons, fmt.Sprintf("shared addresses: %d (+%.2f)", shared, s.weights.Address))
	}

	evidence.Score = math.Max(0, math.Min(1, score))
	return evidence
}

// NameSimilarity возвращает 1 - levenshtein(a, b) / max(len(a), len(b)) для нормализованных ключей.
// Для двух пустых ключей возвращает 0: сравнивать нечего.
func NameSimilarity(a, b string) float64 {
	maxLen := utf8.RuneCountInString(a)
	if n := utf8.RuneCountInString(b); n > maxLen {
		maxLen = n
	}
	if maxLen == 0 {
		return 0
	}

	distance := levenshtein.ComputeDistance(a, b)
	return 1 - float64(distance)/float64(maxLen)
}

// nameKey ключ имени агрегата, заглушка неизвестного имени сравнивается как обычное имя
func nameKey(c *CustomerAggregate) string {
	return normalization.NormalizeName(c.DisplayName)
}
