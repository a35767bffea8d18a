package app

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/raunaksarawgi/quiz-game-multiplayer/internal/domain"
	"github.com/raunaksarawgi/quiz-game-multiplayer/internal/store"
)

// BankLoader fetches the global question bank from a backing store
// (document store, Postgres, or a static fixture).
type BankLoader interface {
	LoadQuestions(ctx context.Context) ([]domain.BankQuestion, error)
}

// QuestionBank caches the loaded bank with a TTL and samples question sets
// for new rooms.
type QuestionBank struct {
	loader BankLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand

	mu        sync.RWMutex
	cached    []domain.BankQuestion
	expiresAt time.Time
}

func NewQuestionBank(loader BankLoader, ttl time.Duration) *QuestionBank {
	return &QuestionBank{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// NewQuestionBankWithClock is test-only for deterministic cache expiry.
func NewQuestionBankWithClock(loader BankLoader, ttl time.Duration, clock func() time.Time) *QuestionBank {
	b := NewQuestionBank(loader, ttl)
	b.clock = clock
	return b
}

// Questions returns the cached bank, reloading through singleflight when the
// TTL has lapsed.
func (b *QuestionBank) Questions(ctx context.Context) ([]domain.BankQuestion, error) {
	now := b.clock()

	b.mu.RLock()
	if b.cached != nil && b.expiresAt.After(now) {
		cached := b.cached
		b.mu.RUnlock()
		return cached, nil
	}
	b.mu.RUnlock()

	result, err, _ := b.sf.Do("bank", func() (interface{}, error) {
		now := b.clock()
		b.mu.RLock()
		if b.cached != nil && b.expiresAt.After(now) {
			cached := b.cached
			b.mu.RUnlock()
			return cached, nil
		}
		b.mu.RUnlock()

		questions, err := b.loader.LoadQuestions(ctx)
		if err != nil {
			return nil, err
		}

		b.mu.Lock()
		b.cached = questions
		b.expiresAt = now.Add(b.ttlWithJitter())
		b.mu.Unlock()
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.BankQuestion), nil
}

// SampleFilters restricts the pool Sample draws from.
type SampleFilters struct {
	Category   string
	Difficulty string
	ExcludeIDs []string
}

// Sample filters the bank, shuffles the pool, and takes the first count.
// A pool smaller than count is not an error: the caller gets what exists and
// corrects the room's question count to match.
func (b *QuestionBank) Sample(ctx context.Context, count int, filters SampleFilters) ([]domain.BankQuestion, error) {
	all, err := b.Questions(ctx)
	if err != nil {
		return nil, err
	}

	excluded := make(map[string]bool, len(filters.ExcludeIDs))
	for _, id := range filters.ExcludeIDs {
		excluded[id] = true
	}

	pool := make([]domain.BankQuestion, 0, len(all))
	for _, q := range all {
		if filters.Category != "" && filters.Category != domain.CategoryAny && q.Category != filters.Category {
			continue
		}
		if filters.Difficulty != "" && q.Difficulty != filters.Difficulty {
			continue
		}
		if excluded[q.ID] {
			continue
		}
		pool = append(pool, q)
	}

	b.rndMu.Lock()
	b.rnd.Shuffle(len(pool), func(i, j int) {
		pool[i], pool[j] = pool[j], pool[i]
	})
	b.rndMu.Unlock()

	if count > len(pool) {
		count = len(pool)
	}
	return pool[:count], nil
}

// Categories lists the distinct categories present in the bank, sorted.
func (b *QuestionBank) Categories(ctx context.Context) ([]string, error) {
	all, err := b.Questions(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var categories []string
	for _, q := range all {
		if q.Category != "" && !seen[q.Category] {
			seen[q.Category] = true
			categories = append(categories, q.Category)
		}
	}
	sort.Strings(categories)
	return categories, nil
}

// BankStats summarizes the bank's composition.
type BankStats struct {
	Total            int            `json:"total"`
	ByCategory       map[string]int `json:"byCategory"`
	ByDifficulty     map[string]int `json:"byDifficulty"`
	AverageTimeLimit int            `json:"averageTimeLimit"`
}

func (b *QuestionBank) Stats(ctx context.Context) (BankStats, error) {
	all, err := b.Questions(ctx)
	if err != nil {
		return BankStats{}, err
	}
	stats := BankStats{
		ByCategory:   make(map[string]int),
		ByDifficulty: make(map[string]int),
	}
	totalLimit := 0
	for _, q := range all {
		stats.Total++
		if q.Category != "" {
			stats.ByCategory[q.Category]++
		}
		if q.Difficulty != "" {
			stats.ByDifficulty[q.Difficulty]++
		}
		totalLimit += q.TimeLimit
	}
	if stats.Total > 0 {
		stats.AverageTimeLimit = int(math.Round(float64(totalLimit) / float64(stats.Total)))
	}
	return stats, nil
}

func (b *QuestionBank) ttlWithJitter() time.Duration {
	if b.ttl <= 0 {
		return 0
	}
	jitterMax := int64(b.ttl) / 10
	b.rndMu.Lock()
	defer b.rndMu.Unlock()
	return b.ttl + time.Duration(b.rnd.Int63n(jitterMax+1))
}

// StaticBankLoader serves a fixed question list (tests, demo mode).
type StaticBankLoader struct {
	questions []domain.BankQuestion
}

func NewStaticBankLoader(questions []domain.BankQuestion) *StaticBankLoader {
	return &StaticBankLoader{questions: questions}
}

func (l *StaticBankLoader) LoadQuestions(context.Context) ([]domain.BankQuestion, error) {
	return l.questions, nil
}

// StoreBankLoader reads the bank from the document store's questions
// collection.
type StoreBankLoader struct {
	store store.Store
}

func NewStoreBankLoader(st store.Store) *StoreBankLoader {
	return &StoreBankLoader{store: st}
}

func (l *StoreBankLoader) LoadQuestions(ctx context.Context) ([]domain.BankQuestion, error) {
	docs, err := l.store.Query(ctx, bankCollection, store.Query{OrderBy: "createdAt", Desc: true})
	if err != nil {
		return nil, fmt.Errorf("load question bank: %w", err)
	}
	questions := make([]domain.BankQuestion, 0, len(docs))
	for _, doc := range docs {
		var q domain.BankQuestion
		if err := json.Unmarshal(doc.Data, &q); err != nil {
			return nil, fmt.Errorf("decode question %s: %w", doc.ID, err)
		}
		q.ID = doc.ID
		questions = append(questions, q)
	}
	return questions, nil
}

// BankWriter adds questions to the document-store bank, validating before
// any write.
type BankWriter struct {
	store store.Store
	clock func() time.Time
	newID func() string
}

func NewBankWriter(st store.Store) *BankWriter {
	return &BankWriter{store: st, clock: time.Now, newID: uuid.NewString}
}

// AddQuestion validates and persists a bank question, returning its id.
func (w *BankWriter) AddQuestion(ctx context.Context, q domain.BankQuestion) (string, error) {
	if err := domain.ValidateQuestion(q); err != nil {
		return "", err
	}
	if q.ID == "" {
		q.ID = w.newID()
	}
	if q.CreatedAt.IsZero() {
		q.CreatedAt = w.clock()
	}
	if err := w.store.Set(ctx, bankQuestionPath(q.ID), q); err != nil {
		return "", fmt.Errorf("add question: %w", err)
	}
	return q.ID, nil
}
