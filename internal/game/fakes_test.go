package game_test

import (
	"context"
	"fmt"
	"github.com/myrjola/verdict/internal/errors"
	"github.com/myrjola/verdict/internal/kv"
	"github.com/myrjola/verdict/internal/models"
	"runtime"
	"slices"
	"sync"
	"time"
)

var errUnknownThread = errors.NewSentinel("unknown thread")

// memHistory is an in-memory HistoryService.
type memHistory struct {
	mu        sync.Mutex
	threads   map[string][]models.Turn
	nextID    int64
	createErr error
	appendErr error
}

func newMemHistory() *memHistory {
	return &memHistory{threads: map[string][]models.Turn{}}
}

func (h *memHistory) CreateThread(_ context.Context) (models.DefendantIdentity, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.createErr != nil {
		return models.DefendantIdentity{}, h.createErr
	}
	id := fmt.Sprintf("session-%d", len(h.threads)+1)
	h.threads[id] = nil
	return models.DefendantIdentity{AppID: "verdict", UserID: "user-" + id, SessionID: id}, nil
}

func (h *memHistory) AppendMessage(
	_ context.Context, identity models.DefendantIdentity, content string, isUser bool) (models.Turn, error) {
	// Yield so that unsynchronized callers would interleave.
	runtime.Gosched()
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.appendErr != nil {
		return models.Turn{}, h.appendErr
	}
	turns, ok := h.threads[identity.SessionID]
	if !ok {
		return models.Turn{}, errUnknownThread
	}
	h.nextID++
	turn := models.Turn{ID: h.nextID, Content: content, IsUser: isUser, CreatedAt: time.Now()}
	h.threads[identity.SessionID] = append(turns, turn)
	return turn, nil
}

func (h *memHistory) ListMessages(_ context.Context, identity models.DefendantIdentity) ([]models.Turn, error) {
	runtime.Gosched()
	h.mu.Lock()
	defer h.mu.Unlock()
	turns, ok := h.threads[identity.SessionID]
	if !ok {
		return nil, errUnknownThread
	}
	return slices.Clone(turns), nil
}

func (h *memHistory) threadCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.threads)
}

// memStore is an in-memory Store whose updates are all-or-nothing.
type memStore struct {
	mu        sync.Mutex
	values    map[string]string
	lists     map[string][]string
	updateErr error
}

func newMemStore() *memStore {
	return &memStore{values: map[string]string{}, lists: map[string][]string{}}
}

func (s *memStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	if !ok {
		return "", kv.ErrNotFound
	}
	return v, nil
}

func (s *memStore) ListRange(_ context.Context, key string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.lists[key]), nil
}

func (s *memStore) Update(_ context.Context, fn func(w kv.Writer) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updateErr != nil {
		return s.updateErr
	}
	staged := &stagedWrites{values: map[string]string{}, lists: map[string][]string{}}
	if err := fn(staged); err != nil {
		return err
	}
	for k, v := range staged.values {
		s.values[k] = v
	}
	for k, prepended := range staged.lists {
		s.lists[k] = append(prepended, s.lists[k]...)
	}
	return nil
}

func (s *memStore) set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

type stagedWrites struct {
	values map[string]string
	lists  map[string][]string
}

func (w *stagedWrites) Set(_ context.Context, key, value string) error {
	w.values[key] = value
	return nil
}

func (w *stagedWrites) ListPrepend(_ context.Context, key, value string) error {
	w.lists[key] = append([]string{value}, w.lists[key]...)
	return nil
}
