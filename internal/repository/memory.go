package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/complaint-service/internal/domain"
)

// In-memory stores back local development without POSTGRES_DSN and the unit
// tests. They enforce the same uniqueness rules as the SQL schema.

// InMemoryUserStore is a UserRepository held in process memory.
type InMemoryUserStore struct {
	mu    sync.RWMutex
	users map[string]domain.User
	now   func() time.Time
}

// NewInMemoryUserStore returns an empty store.
func NewInMemoryUserStore() *InMemoryUserStore {
	return &InMemoryUserStore{users: make(map[string]domain.User), now: time.Now}
}

func (s *InMemoryUserStore) Create(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.clashLocked(user) {
		return ErrConflict
	}
	now := s.now()
	user.ID = uuid.NewString()
	user.CreatedAt = now
	user.UpdatedAt = now
	s.users[user.ID] = *user
	return nil
}

func (s *InMemoryUserStore) Update(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; !ok {
		return ErrNotFound
	}
	if s.clashLocked(user) {
		return ErrConflict
	}
	user.UpdatedAt = s.now()
	s.users[user.ID] = *user
	return nil
}

func (s *InMemoryUserStore) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	return s.find(func(u domain.User) bool { return u.Email == email })
}

func (s *InMemoryUserStore) GetBySubjectID(_ context.Context, subjectID string) (*domain.User, error) {
	return s.find(func(u domain.User) bool { return u.SubjectID == subjectID })
}

// Count returns the number of stored users.
func (s *InMemoryUserStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}

func (s *InMemoryUserStore) find(match func(domain.User) bool) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if match(u) {
			found := u
			return &found, nil
		}
	}
	return nil, ErrNotFound
}

// clashLocked reports whether another record already owns user's email or subject id.
func (s *InMemoryUserStore) clashLocked(user *domain.User) bool {
	for id, existing := range s.users {
		if id == user.ID {
			continue
		}
		if existing.Email == user.Email || existing.SubjectID == user.SubjectID {
			return true
		}
	}
	return false
}

// InMemoryComplaintStore is a ComplaintRepository held in process memory.
type InMemoryComplaintStore struct {
	mu         sync.RWMutex
	complaints map[string]storedComplaint
	seq        int64
	now        func() time.Time
}

type storedComplaint struct {
	complaint domain.Complaint
	seq       int64
}

// NewInMemoryComplaintStore returns an empty store.
func NewInMemoryComplaintStore() *InMemoryComplaintStore {
	return &InMemoryComplaintStore{complaints: make(map[string]storedComplaint), now: time.Now}
}

func (s *InMemoryComplaintStore) Create(_ context.Context, complaint *domain.Complaint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.complaints {
		if existing.complaint.TrackingCode == complaint.TrackingCode {
			return ErrConflict
		}
	}
	now := s.now()
	complaint.ID = uuid.NewString()
	complaint.CreatedAt = now
	complaint.UpdatedAt = now
	s.seq++
	s.complaints[complaint.ID] = storedComplaint{complaint: cloneComplaint(*complaint), seq: s.seq}
	return nil
}

func (s *InMemoryComplaintStore) Update(_ context.Context, complaint *domain.Complaint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.complaints[complaint.ID]
	if !ok {
		return ErrNotFound
	}
	complaint.UpdatedAt = s.now()
	stored.complaint.Status = complaint.Status
	stored.complaint.ResolutionNotes = cloneString(complaint.ResolutionNotes)
	stored.complaint.ResolvedBy = cloneString(complaint.ResolvedBy)
	stored.complaint.UpdatedAt = complaint.UpdatedAt
	s.complaints[complaint.ID] = stored
	return nil
}

func (s *InMemoryComplaintStore) GetByID(_ context.Context, id string) (*domain.Complaint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored, ok := s.complaints[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := cloneComplaint(stored.complaint)
	return &c, nil
}

func (s *InMemoryComplaintStore) List(_ context.Context, filter ComplaintFilter) ([]domain.Complaint, error) {
	s.mu.RLock()
	matched := make([]storedComplaint, 0, len(s.complaints))
	for _, stored := range s.complaints {
		if filter.OwnerID != nil && stored.complaint.OwnerID != *filter.OwnerID {
			continue
		}
		matched = append(matched, stored)
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.complaint.CreatedAt.Equal(b.complaint.CreatedAt) {
			return a.complaint.CreatedAt.After(b.complaint.CreatedAt)
		}
		return a.seq > b.seq
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(matched) {
			return []domain.Complaint{}, nil
		}
		matched = matched[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(matched) {
		matched = matched[:filter.Limit]
	}

	result := make([]domain.Complaint, 0, len(matched))
	for _, stored := range matched {
		result = append(result, cloneComplaint(stored.complaint))
	}
	return result, nil
}

func cloneComplaint(c domain.Complaint) domain.Complaint {
	c.OrderID = cloneString(c.OrderID)
	c.Summary = cloneString(c.Summary)
	c.ResolutionNotes = cloneString(c.ResolutionNotes)
	c.ResolvedBy = cloneString(c.ResolvedBy)
	return c
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// InMemoryComplaintHistoryStore is a ComplaintHistoryRepository held in process memory.
type InMemoryComplaintHistoryStore struct {
	mu      sync.RWMutex
	entries []domain.ComplaintHistory
	now     func() time.Time
}

// NewInMemoryComplaintHistoryStore returns an empty store.
func NewInMemoryComplaintHistoryStore() *InMemoryComplaintHistoryStore {
	return &InMemoryComplaintHistoryStore{now: time.Now}
}

func (s *InMemoryComplaintHistoryStore) Create(_ context.Context, history *domain.ComplaintHistory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	history.ID = uuid.NewString()
	history.CreatedAt = s.now()
	entry := *history
	entry.ResolutionNotes = cloneString(history.ResolutionNotes)
	s.entries = append(s.entries, entry)
	return nil
}

func (s *InMemoryComplaintHistoryStore) ListByComplaint(_ context.Context, complaintID string) ([]domain.ComplaintHistory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := []domain.ComplaintHistory{}
	for _, entry := range s.entries {
		if entry.ComplaintID == complaintID {
			entry.ResolutionNotes = cloneString(entry.ResolutionNotes)
			result = append(result, entry)
		}
	}
	return result, nil
}
