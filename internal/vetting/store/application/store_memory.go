// Package application persists vetting applications.
package application

import (
	"context"
	"sort"
	"strings"
	"sync"

	"gatherhall/internal/vetting/models"
	id "gatherhall/pkg/domain"
	"gatherhall/pkg/platform/sentinel"
)

// InMemoryStore keeps applications in a map. Used by tests and dev wiring.
type InMemoryStore struct {
	mu   sync.RWMutex
	apps map[id.ApplicationID]*models.Application
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{apps: make(map[id.ApplicationID]*models.Application)}
}

func (s *InMemoryStore) Create(_ context.Context, app *models.Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.apps {
		if strings.EqualFold(existing.Email, app.Email) {
			return sentinel.ErrConflict
		}
	}
	s.apps[app.ID] = clone(app)
	return nil
}

func (s *InMemoryStore) GetByID(_ context.Context, appID id.ApplicationID) (*models.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	app, ok := s.apps[appID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(app), nil
}

func (s *InMemoryStore) GetByToken(_ context.Context, token string) (*models.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, app := range s.apps {
		if app.StatusToken == token {
			return clone(app), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) GetByUserID(_ context.Context, userID id.UserID) (*models.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, app := range s.apps {
		if app.UserID != nil && *app.UserID == userID {
			return clone(app), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) Update(_ context.Context, app *models.Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.apps[app.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.apps[app.ID] = clone(app)
	return nil
}

func (s *InMemoryStore) List(_ context.Context, filter models.ListFilter) ([]*models.Application, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*models.Application
	query := strings.ToLower(strings.TrimSpace(filter.Query))
	for _, app := range s.apps {
		if filter.Status != nil && app.Status != *filter.Status {
			continue
		}
		if query != "" && !strings.Contains(strings.ToLower(app.SceneName), query) {
			continue
		}
		matched = append(matched, clone(app))
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].SubmittedAt.After(matched[j].SubmittedAt)
	})

	total := len(matched)
	limit := filter.EffectiveLimit()
	start := filter.EffectiveOffset()
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func clone(app *models.Application) *models.Application {
	cp := *app
	cp.References = append([]models.Reference(nil), app.References...)
	cp.Notes = append([]models.Note(nil), app.Notes...)
	if app.UserID != nil {
		uid := *app.UserID
		cp.UserID = &uid
	}
	return &cp
}
