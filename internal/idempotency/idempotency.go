// Package idempotency remembers responses to client-keyed requests so a
// retried request replays the first outcome instead of repeating it.
package idempotency

import (
	"context"
	"strconv"
	"sync"
	"time"
)

// PendingTTL bounds how long a reservation blocks its key when the request
// holding it never finishes.
const PendingTTL = time.Minute

type Response struct {
	Status int    `json:"status"`
	Body   []byte `json:"body"`
}

// Pending reports whether the response is a reservation for a request that
// is still running.
func (r Response) Pending() bool {
	return r.Status == 0
}

// Store keeps one entry per key: a pending reservation or a final response.
// Reserve claims a missing key. Set replaces a reservation with the final
// response and leaves an existing final response alone. Release drops a
// reservation so the request can be retried.
type Store interface {
	Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (*Response, error)
	Set(ctx context.Context, key string, resp Response, ttl time.Duration) error
	Release(ctx context.Context, key string) error
}

type Idempotency struct {
	store Store
	ttl   time.Duration
}

func NewIdempotency(store Store, ttl time.Duration) *Idempotency {
	return &Idempotency{store: store, ttl: ttl}
}

// Keys are scoped per user so one client cannot replay another's response.
func scoped(userID int64, key string) string {
	return strconv.FormatInt(userID, 10) + ":" + key
}

// Reserve claims key for userID. It returns false when another request
// already holds or has answered the key.
func (i *Idempotency) Reserve(ctx context.Context, userID int64, key string) (bool, error) {
	return i.store.Reserve(ctx, scoped(userID, key), PendingTTL)
}

func (i *Idempotency) Release(ctx context.Context, userID int64, key string) error {
	return i.store.Release(ctx, scoped(userID, key))
}

func (i *Idempotency) Get(ctx context.Context, userID int64, key string) (*Response, error) {
	return i.store.Get(ctx, scoped(userID, key))
}

func (i *Idempotency) Set(ctx context.Context, userID int64, key string, resp Response) error {
	return i.store.Set(ctx, scoped(userID, key), resp, i.ttl)
}

// MemoryStore keeps responses in process memory until they expire.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	resp      Response
	expiresAt time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry), now: time.Now}
}

// entry returns the live entry for key, dropping it when it has expired.
// m.mu must be held.
func (m *MemoryStore) entry(key string) (memoryEntry, bool) {
	e, ok := m.entries[key]
	if !ok {
		return memoryEntry{}, false
	}
	if m.now().After(e.expiresAt) {
		delete(m.entries, key)
		return memoryEntry{}, false
	}
	return e, true
}

func (m *MemoryStore) Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entry(key); ok {
		return false, nil
	}
	m.entries[key] = memoryEntry{expiresAt: m.now().Add(ttl)}
	return true, nil
}

func (m *MemoryStore) Get(ctx context.Context, key string) (*Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entry(key)
	if !ok {
		return nil, nil
	}
	resp := e.resp
	return &resp, nil
}

func (m *MemoryStore) Set(ctx context.Context, key string, resp Response, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entry(key); ok && !e.resp.Pending() {
		return nil
	}
	m.entries[key] = memoryEntry{resp: resp, expiresAt: m.now().Add(ttl)}
	return nil
}

func (m *MemoryStore) Release(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entry(key); ok && e.resp.Pending() {
		delete(m.entries, key)
	}
	return nil
}
