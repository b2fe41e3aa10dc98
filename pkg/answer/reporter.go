package answer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
)

// ErrReporterNotFound is returned when no reporter implementation is
// registered under a name.
var ErrReporterNotFound = errors.New("reporter not found")

// Reporter formats a range of an answer.
type Reporter interface {
	// Configure applies the merged model and request properties.
	Configure(properties map[string]string) error

	// Write renders the report.
	Write(ctx context.Context, w io.Writer) error

	// ContentType returns the MIME type of the output.
	ContentType() string

	// FileExtension returns the suggested file extension, without a dot.
	FileExtension() string
}

// ReporterConstructor builds a reporter over the records [start, end] of
// av. av is already restricted to that range.
type ReporterConstructor func(av *AnswerValue, start, end int) (Reporter, error)

// ReporterRegistry maps implementation names to constructors. It is
// populated at startup and read concurrently afterwards.
type ReporterRegistry struct {
	mu           sync.RWMutex
	constructors map[string]ReporterConstructor
}

// NewReporterRegistry creates an empty registry.
func NewReporterRegistry() *ReporterRegistry {
	return &ReporterRegistry{constructors: make(map[string]ReporterConstructor)}
}

// Register adds a constructor. Registering a name twice is an error.
func (r *ReporterRegistry) Register(name string, c ReporterConstructor) error {
	if name == "" || c == nil {
		return errors.New("reporter registration needs a name and a constructor")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.constructors[name]; exists {
		return fmt.Errorf("reporter %s already registered", name)
	}
	r.constructors[name] = c
	return nil
}

// Get returns the constructor registered as name.
func (r *ReporterRegistry) Get(name string) (ReporterConstructor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.constructors[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrReporterNotFound, name)
	}
	return c, nil
}

// Names returns the registered names, sorted.
func (r *ReporterRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.constructors))
	for n := range r.constructors {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
