package customers

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"customerserver/normalization"
)

// Config параметры определения клиентов
type Config struct {
	DefaultCountryCode string         `json:"default_country_code"`
	MergeThreshold     float64        `json:"merge_threshold"`
	Weights            ScoringWeights `json:"weights"`
}

// DefaultConfig возвращает параметры по умолчанию (+223, порог 0.8)
func DefaultConfig() Config {
	return Config{
		DefaultCountryCode: normalization.DefaultCountryCode,
		MergeThreshold:     DefaultMergeThreshold,
		Weights:            DefaultScoringWeights(),
	}
}

// ResolutionStats статистика одного расчета
type ResolutionStats struct {
	AggregationStats
	Aggregates       int           `json:"aggregates"`
	Customers        int           `json:"customers"`
	MergedAggregates int           `json:"merged_aggregates"`
	Duration         time.Duration `json:"duration"`
}

// Resolution результат расчета клиентов по снимку заказов
type Resolution struct {
	Customers []*CustomerAggregate `json:"customers"`
	Stats     ResolutionStats      `json:"stats"`
}

// Option настраивает Resolver
type Option func(*Resolver)

// WithLogger задает логгер
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithIDGenerator задает генератор идентификаторов агрегатов
func WithIDGenerator(newID func() string) Option {
	return func(r *Resolver) {
		if newID != nil {
			r.newID = newID
		}
	}
}

// Resolver собирает агрегатор и объединитель в один конвейер.
// Не хранит состояния между вызовами и безопасен для параллельного использования.
type Resolver struct {
	cfg    Config
	phones *normalization.PhoneNormalizer
	scorer *SimilarityScorer
	logger *slog.Logger
	newID  func() string
}

// NewResolver создает конвейер с параметрами cfg
func NewResolver(cfg Config, opts ...Option) *Resolver {
	r := &Resolver{
		cfg:   cfg,
		newID: newUUID,
	}
	for _, opt := range opts {
		opt(r)
	}

	r.phones = normalization.NewPhoneNormalizer(cfg.DefaultCountryCode)
	r.scorer = NewSimilarityScorer(cfg.Weights, r.phones)
	return r
}

// Config возвращает параметры конвейера
func (r *Resolver) Config() Config {
	return r.cfg
}

// Scorer возвращает оценщик схожести конвейера
func (r *Resolver) Scorer() *SimilarityScorer {
	return r.scorer
}

// Resolve определяет клиентов по снимку заказов: заказы -> агрегаты -> объединенные клиенты.
// Пустой или nil список дает пустой результат. Ошибка возвращается только при отмене
// контекста или нарушении внутреннего инварианта.
func (r *Resolver) Resolve(ctx context.Context, orders []OrderRecord) (*Resolution, error) {
	start := time.Now()

	logger := r.log()

	aggregator := NewAggregator(r.phones, r.newID, logger)
	aggregated := aggregator.BuildAggregates(orders)

	merger := NewMerger(r.scorer, r.cfg.MergeThreshold, logger)
	merged, err := merger.MergeAll(ctx, aggregated.Aggregates)
	if err != nil {
		return nil, fmt.Errorf("failed to merge customer aggregates: %w", err)
	}

	for _, c := range merged {
		if err := c.Validate(); err != nil {
			logger.Error("Resolved customer failed validation", "error", err, "customer_id", c.ID)
			return nil, err
		}
	}

	res := &Resolution{
		Customers: merged,
		Stats: ResolutionStats{
			AggregationStats: aggregated.Stats,
			Aggregates:       len(aggregated.Aggregates),
			Customers:        len(merged),
			MergedAggregates: len(aggregated.Aggregates) - len(merged),
			Duration:         time.Since(start),
		},
	}

	logger.Info("Customers resolved",
		"input_orders", res.Stats.InputOrders,
		"aggregated_orders", res.Stats.AggregatedOrders,
		"skipped_no_customer_info", res.Stats.SkippedNoCustomerInfo,
		"skipped_invalid_phone", res.Stats.SkippedInvalidPhone,
		"skipped_duplicate_id", res.Stats.SkippedDuplicateID,
		"aggregates", res.Stats.Aggregates,
		"customers", res.Stats.Customers,
		"duration_ms", res.Stats.Duration.Milliseconds(),
	)

	return res, nil
}

// ResolveStores рассчитывает клиентов нескольких магазинов параллельно, не более limit одновременно.
// Снимки магазинов независимы; первая ошибка отменяет остальные расчеты.
func (r *Resolver) ResolveStores(ctx context.Context, snapshots map[string][]OrderRecord, limit int) (map[string]*Resolution, error) {
	results := make(map[string]*Resolution, len(snapshots))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}

	for storeID, orders := range snapshots {
		storeID, orders := storeID, orders
		g.Go(func() error {
			res, err := r.Resolve(gctx, orders)
			if err != nil {
				return fmt.Errorf("store %s: %w", storeID, err)
			}
			mu.Lock()
			results[storeID] = res
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// log возвращает логгер конвейера или текущий slog.Default()
func (r *Resolver) log() *slog.Logger {
	if r.logger != nil {
		return r.logger
	}
	return slog.Default()
}

var defaultResolver = NewResolver(DefaultConfig())

// Resolve определяет клиентов с параметрами по умолчанию
func Resolve(ctx context.Context, orders []OrderRecord) (*Resolution, error) {
	return defaultResolver.Resolve(ctx, orders)
}

func newUUID() string {
	return uuid.New().String()
}
