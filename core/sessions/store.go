// Package sessions persists the lesson session descriptor across page
// loads, keyed by course. The core reads the descriptor once at session
// start and never mutates it.
package sessions

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jinzhu/copier"
)

// ErrNotFound reports that no descriptor is stored for the course.
var ErrNotFound = errors.New("no session stored for course")

// Descriptor identifies one lesson session.
type Descriptor struct {
	SessionID string    `json:"session_id" redis:"session_id"`
	CourseID  string    `json:"course_id" redis:"course_id"`
	Endpoint  string    `json:"endpoint" redis:"endpoint"`
	CreatedAt time.Time `json:"created_at" redis:"created_at"`
}

// Store persists session descriptors keyed by course identifier.
type Store interface {
	Load(ctx context.Context, courseID string) (Descriptor, error)
	Save(ctx context.Context, descriptor Descriptor) error
	Delete(ctx context.Context, courseID string) error
}

// MemoryStore keeps descriptors in process memory, for embedders without a
// redis and for tests.
type MemoryStore struct {
	mu          sync.RWMutex
	descriptors map[string]Descriptor
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{descriptors: map[string]Descriptor{}}
}

var _ Store = (*MemoryStore)(nil)

// Load returns the descriptor stored for courseID.
func (s *MemoryStore) Load(_ context.Context, courseID string) (Descriptor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, ok := s.descriptors[courseID]
	if !ok {
		return Descriptor{}, ErrNotFound
	}

	var descriptor Descriptor
	if err := copier.Copy(&descriptor, stored); err != nil {
		return Descriptor{}, err
	}
	return descriptor, nil
}

// Save stores the descriptor under its course id.
func (s *MemoryStore) Save(_ context.Context, descriptor Descriptor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.descriptors[descriptor.CourseID] = descriptor
	return nil
}

// Delete removes the descriptor stored for courseID.
func (s *MemoryStore) Delete(_ context.Context, courseID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.descriptors, courseID)
	return nil
}
