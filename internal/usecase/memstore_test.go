package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"CourtWatch/internal/domain"
)

// memStore is an in-memory implementation of the storage ports used by the
// pipeline and matcher tests.
type memStore struct {
	mu          sync.Mutex
	now         func() time.Time
	cases       map[string]domain.Case
	byURL       map[string]string
	queue       map[string]*domain.QueueItem
	alerts      []domain.Alert
	prefs       map[string]domain.AlertPreference
	subscribers []domain.Subscriber
	userAlerts  []domain.UserAlert

	errOnSaveEntities error
}

func newMemStore(now func() time.Time) *memStore {
	if now == nil {
		now = time.Now
	}
	return &memStore{
		now:   now,
		cases: map[string]domain.Case{},
		byURL: map[string]string{},
		queue: map[string]*domain.QueueItem{},
		prefs: map[string]domain.AlertPreference{},
	}
}

// --- ports.CaseRepository ---

func (m *memStore) InsertIfAbsent(_ context.Context, c domain.Case) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.byURL[c.SourceURL]; ok {
		return id, false, nil
	}
	m.cases[c.ID] = c
	m.byURL[c.SourceURL] = c.ID
	return c.ID, true, nil
}

func (m *memStore) ByID(_ context.Context, id string) (domain.Case, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cases[id]
	if !ok {
		return domain.Case{}, fmt.Errorf("case %s not found", id)
	}
	return c, nil
}

func (m *memStore) SaveEntities(_ context.Context, c domain.Case) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.errOnSaveEntities != nil {
		return m.errOnSaveEntities
	}
	m.cases[c.ID] = c
	return nil
}

func (m *memStore) SaveClassification(_ context.Context, c domain.Case) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing := m.cases[c.ID]; existing.Classified {
		return fmt.Errorf("case %s is already classified", c.ID)
	}
	m.cases[c.ID] = c
	return nil
}

// --- ports.QueueRepository ---

func (m *memStore) Enqueue(_ context.Context, item domain.QueueItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := item
	m.queue[item.ID] = &cp
	return nil
}

func (m *memStore) PendingBatch(_ context.Context, stage domain.Stage, limit int) ([]domain.QueueItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var items []domain.QueueItem
	for _, it := range m.queue {
		if it.Stage == stage && it.Status == domain.QueuePending && !it.ScheduledAt.After(m.now()) {
			items = append(items, *it)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Priority != items[j].Priority {
			return items[i].Priority > items[j].Priority
		}
		return items[i].ScheduledAt.Before(items[j].ScheduledAt)
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (m *memStore) Claim(_ context.Context, id string) (domain.QueueItem, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.queue[id]
	if !ok || it.Status != domain.QueuePending {
		return domain.QueueItem{}, false, nil
	}
	it.Status = domain.QueueInProgress
	it.Attempts++
	started := m.now()
	it.StartedAt = &started
	return *it, true, nil
}

func (m *memStore) MarkCompleted(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	it := m.queue[id]
	it.Status = domain.QueueCompleted
	done := m.now()
	it.CompletedAt = &done
	return nil
}

func (m *memStore) MarkForRetry(_ context.Context, id string, errMsg string, retryAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	it := m.queue[id]
	it.Status = domain.QueuePending
	it.LastError = errMsg
	it.ScheduledAt = retryAt
	it.StartedAt = nil
	return nil
}

func (m *memStore) MarkFailed(_ context.Context, id string, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	it := m.queue[id]
	it.Status = domain.QueueFailed
	it.LastError = errMsg
	done := m.now()
	it.CompletedAt = &done
	return nil
}

func (m *memStore) PurgeFinished(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var purged int64
	for id, it := range m.queue {
		finished := it.Status == domain.QueueCompleted || it.Status == domain.QueueFailed
		when := it.ScheduledAt
		if it.CompletedAt != nil {
			when = *it.CompletedAt
		}
		if finished && when.Before(cutoff) {
			delete(m.queue, id)
			purged++
		}
	}
	return purged, nil
}

func (m *memStore) ReclaimStale(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var reclaimed int64
	for _, it := range m.queue {
		if it.Status == domain.QueueInProgress && it.StartedAt != nil && it.StartedAt.Before(cutoff) {
			it.Status = domain.QueuePending
			it.StartedAt = nil
			it.LastError = "reclaimed: stale in-progress claim"
			reclaimed++
		}
	}
	return reclaimed, nil
}

// --- ports.AlertRepository ---

func (m *memStore) Create(_ context.Context, a domain.Alert) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alerts = append(m.alerts, a)
	return a.ID, nil
}

func (m *memStore) ActiveHighPriority(_ context.Context, limit int) ([]domain.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Alert
	for _, a := range m.alerts {
		if a.Status == domain.AlertActive && a.Priority == domain.PriorityHigh {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority.Rank() != out[j].Priority.Rank() {
			return out[i].Priority.Rank() > out[j].Priority.Rank()
		}
		return out[i].DiscoveredAt.After(out[j].DiscoveredAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) Search(_ context.Context, f domain.AlertFilter, limit int) ([]domain.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Alert
	for _, a := range m.alerts {
		if a.Status != domain.AlertActive {
			continue
		}
		if len(f.Types) > 0 && !containsType(f.Types, a.Type) {
			continue
		}
		if a.Priority.Rank() < f.MinPriorityRank {
			continue
		}
		if a.OpportunityScore < f.MinOpportunityScore {
			continue
		}
		out = append(out, a)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].OpportunityScore != out[j].OpportunityScore {
			return out[i].OpportunityScore > out[j].OpportunityScore
		}
		if out[i].Priority.Rank() != out[j].Priority.Rank() {
			return out[i].Priority.Rank() > out[j].Priority.Rank()
		}
		return out[i].DiscoveredAt.After(out[j].DiscoveredAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func containsType(types []domain.AlertType, t domain.AlertType) bool {
	for _, candidate := range types {
		if candidate == t {
			return true
		}
	}
	return false
}

// --- ports.PreferenceRepository ---

func (m *memStore) ByUser(_ context.Context, userID string) (*domain.AlertPreference, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pref, ok := m.prefs[userID]
	if !ok {
		return nil, nil
	}
	return &pref, nil
}

func (m *memStore) ActiveSubscribers(_ context.Context) ([]domain.Subscriber, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Subscriber(nil), m.subscribers...), nil
}

// --- ports.UserAlertRepository ---

func (m *memStore) CountNotifiedSince(_ context.Context, userID string, since time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, ua := range m.userAlerts {
		if ua.UserID == userID && !ua.NotifiedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (m *memStore) queueItems(stage domain.Stage) []domain.QueueItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	var items []domain.QueueItem
	for _, it := range m.queue {
		if it.Stage == stage {
			items = append(items, *it)
		}
	}
	return items
}
