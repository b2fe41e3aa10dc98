// Package answer pages the result of a question. An AnswerValue composes
// the id and attribute SQL for one page window, materializes the page's
// records, integrates attribute queries into them and hands the page to
// printers and reporters. Answers are the persisted, checksum-keyed record
// of a question run.
package answer

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Answer is the long-lived record of a question run, keyed by the checksum
// of its id query instance.
type Answer struct {
	// ID is the unique answer identifier.
	ID uuid.UUID `json:"id"`

	// Checksum identifies the id query instance.
	Checksum string `json:"checksum"`

	// QuestionName is the full name of the question.
	QuestionName string `json:"question"`

	// Params holds the bound parameter values.
	Params map[string]string `json:"params"`

	// ResultSize is the unfiltered result size when the answer was saved.
	ResultSize int `json:"result_size"`

	// CreatedAt is when the answer was first saved.
	CreatedAt time.Time `json:"created_at"`
}

// Factory looks up and persists answers.
type Factory interface {
	// GetAnswer returns the answer for checksum. Returns nil, nil if none
	// was saved.
	GetAnswer(ctx context.Context, checksum string) (*Answer, error)

	// SaveAnswerValue persists an answer for av and returns it. Saving a
	// checksum that already exists returns the existing answer.
	SaveAnswerValue(ctx context.Context, av *AnswerValue) (*Answer, error)
}

// ListFilter selects saved answers.
type ListFilter struct {
	// QuestionName restricts the list to one question when set.
	QuestionName string

	Limit  int
	Offset int
}

// Lister is implemented by factories that can enumerate saved answers,
// newest first.
type Lister interface {
	ListAnswers(ctx context.Context, filter ListFilter) ([]*Answer, error)
}

// NewAnswer builds the answer record for av.
func NewAnswer(ctx context.Context, av *AnswerValue) (*Answer, error) {
	size, err := av.unfilteredSize(ctx)
	if err != nil {
		return nil, err
	}
	return &Answer{
		ID:           uuid.New(),
		Checksum:     av.Checksum(),
		QuestionName: av.Question().FullName,
		Params:       av.Instance().Values(),
		ResultSize:   size,
		CreatedAt:    time.Now().UTC(),
	}, nil
}

// MemoryFactory keeps answers in memory.
type MemoryFactory struct {
	mu      sync.RWMutex
	answers map[string]*Answer
}

// NewMemoryFactory creates an empty in-memory factory.
func NewMemoryFactory() *MemoryFactory {
	return &MemoryFactory{answers: make(map[string]*Answer)}
}

// GetAnswer returns the answer for checksum. Returns nil, nil if not found.
func (f *MemoryFactory) GetAnswer(_ context.Context, checksum string) (*Answer, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	a, ok := f.answers[checksum]
	if !ok {
		return nil, nil //nolint:nilnil // Factory interface specifies nil,nil for not-found
	}
	return a, nil
}

// SaveAnswerValue stores an answer for av unless one exists.
func (f *MemoryFactory) SaveAnswerValue(ctx context.Context, av *AnswerValue) (*Answer, error) {
	a, err := NewAnswer(ctx, av)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if existing, ok := f.answers[a.Checksum]; ok {
		return existing, nil
	}
	f.answers[a.Checksum] = a
	return a, nil
}

// ListAnswers returns the stored answers matching filter, newest first.
func (f *MemoryFactory) ListAnswers(_ context.Context, filter ListFilter) ([]*Answer, error) {
	f.mu.RLock()
	list := make([]*Answer, 0, len(f.answers))
	for _, a := range f.answers {
		if filter.QuestionName == "" || a.QuestionName == filter.QuestionName {
			list = append(list, a)
		}
	}
	f.mu.RUnlock()

	sort.Slice(list, func(i, j int) bool {
		if list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].Checksum < list[j].Checksum
		}
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	if filter.Offset > 0 {
		if filter.Offset >= len(list) {
			return []*Answer{}, nil
		}
		list = list[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(list) {
		list = list[:filter.Limit]
	}
	return list, nil
}

// Len returns the number of stored answers.
func (f *MemoryFactory) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.answers)
}

// Verify interface compliance.
var (
	_ Factory = (*MemoryFactory)(nil)
	_ Lister  = (*MemoryFactory)(nil)
)
