package handlers_test

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"todoapi/models"
	"todoapi/utils"
)

// memStore is an in-memory stand-in for the PostgreSQL gateway with the same
// error kinds.
type memStore struct {
	mu     sync.Mutex
	nextID int64
	todos  map[int64]models.Todo
	clock  time.Time

	pingErr  error
	writeErr error
	writes   int
}

func newMemStore() *memStore {
	return &memStore{
		todos: map[int64]models.Todo{},
		clock: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (s *memStore) tick() time.Time {
	s.clock = s.clock.Add(time.Second)
	return s.clock
}

func (s *memStore) List(ctx context.Context) ([]models.Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	todos := make([]models.Todo, 0, len(s.todos))
	for _, t := range s.todos {
		todos = append(todos, t)
	}
	sort.Slice(todos, func(i, j int) bool { return todos[i].ID < todos[j].ID })
	return todos, nil
}

func (s *memStore) Get(ctx context.Context, id int64) (models.Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.todos[id]
	if !ok {
		return models.Todo{}, fmt.Errorf("%w: id %d", utils.ErrNotFound, id)
	}
	return t, nil
}

func (s *memStore) Create(ctx context.Context, title string, description *string) (models.Todo, error) {
	if err := utils.ValidateTitle(title); err != nil {
		return models.Todo{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes++
	if s.writeErr != nil {
		return models.Todo{}, fmt.Errorf("%w: %w", utils.ErrStorage, s.writeErr)
	}
	s.nextID++
	now := s.tick()
	t := models.Todo{
		ID:          s.nextID,
		Title:       title,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.todos[t.ID] = t
	return t, nil
}

func (s *memStore) Update(ctx context.Context, id int64, patch models.TodoPatch) (models.Todo, error) {
	if patch.Title != nil {
		if err := utils.ValidateTitleUpdate(*patch.Title); err != nil {
			return models.Todo{}, err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes++
	if s.writeErr != nil {
		return models.Todo{}, fmt.Errorf("%w: %w", utils.ErrStorage, s.writeErr)
	}
	t, ok := s.todos[id]
	if !ok {
		return models.Todo{}, fmt.Errorf("%w: id %d", utils.ErrNotFound, id)
	}
	if patch.Title != nil {
		t.Title = *patch.Title
	}
	if patch.HasDescription {
		t.Description = patch.Description
	}
	if patch.Completed != nil {
		t.Completed = *patch.Completed
	}
	t.UpdatedAt = s.tick()
	s.todos[id] = t
	return t, nil
}

func (s *memStore) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes++
	if s.writeErr != nil {
		return fmt.Errorf("%w: %w", utils.ErrStorage, s.writeErr)
	}
	if _, ok := s.todos[id]; !ok {
		return fmt.Errorf("%w: id %d", utils.ErrNotFound, id)
	}
	delete(s.todos, id)
	return nil
}

func (s *memStore) Ping(ctx context.Context) error {
	return s.pingErr
}
