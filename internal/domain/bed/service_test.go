package bed

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/edhub/edhub/internal/domain/resource"
	"github.com/edhub/edhub/internal/platform/locking"
)

type mockRepo struct {
	mu   sync.Mutex
	beds map[uuid.UUID]*Bed
}

func newMockRepo() *mockRepo {
	return &mockRepo{beds: make(map[uuid.UUID]*Bed)}
}

func (m *mockRepo) Create(_ context.Context, b *Bed) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	cp := *b
	m.beds[b.ID] = &cp
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Bed, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.beds[id]
	if !ok {
		return nil, resource.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (m *mockRepo) Update(_ context.Context, b *Bed) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.beds[b.ID]; !ok {
		return resource.ErrNotFound
	}
	cp := *b
	m.beds[b.ID] = &cp
	return nil
}

func (m *mockRepo) ListByRoom(_ context.Context, roomID uuid.UUID) ([]*Bed, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Bed
	for _, b := range m.beds {
		if b.RoomID == roomID {
			cp := *b
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockRepo) ListByStatus(_ context.Context, status Status) ([]*Bed, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Bed
	for _, b := range m.beds {
		if b.Status == status {
			cp := *b
			out = append(out, &cp)
		}
	}
	return out, nil
}

type mockOccupancy struct {
	count int
}

func (m *mockOccupancy) CountReferencingBed(_ context.Context, _ uuid.UUID) (int, error) {
	return m.count, nil
}

func seedBed(t *testing.T, repo *mockRepo, status Status) uuid.UUID {
	t.Helper()
	b := &Bed{RoomID: uuid.New(), Number: 1, Class: ClassStandard, Status: status, IsAvailable: status == StatusAvailable}
	if err := repo.Create(context.Background(), b); err != nil {
		t.Fatalf("seed bed: %v", err)
	}
	return b.ID
}

func TestChangeStatus_OccupyAndRelease(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, &mockOccupancy{}, locking.NewKeyMutex())
	id := seedBed(t, repo, StatusAvailable)

	b, err := svc.ChangeStatus(context.Background(), id, StatusOccupied)
	if err != nil {
		t.Fatalf("occupy failed: %v", err)
	}
	if b.Status != StatusOccupied {
		t.Fatalf("expected occupied, got %s", b.Status)
	}

	b, err = svc.ChangeStatus(context.Background(), id, StatusAvailable)
	if err != nil {
		t.Fatalf("release failed: %v", err)
	}
	if b.Status != StatusAvailable || !b.IsAvailable {
		t.Fatalf("expected available, got %s", b.Status)
	}
}

func TestChangeStatus_ReleaseRefusedWhilePatientHoldsBed(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, &mockOccupancy{count: 1}, locking.NewKeyMutex())
	id := seedBed(t, repo, StatusOccupied)

	_, err := svc.ChangeStatus(context.Background(), id, StatusAvailable)
	if !errors.Is(err, resource.ErrBedUnavailable) {
		t.Fatalf("expected ErrBedUnavailable, got %v", err)
	}

	b, _ := repo.GetByID(context.Background(), id)
	if b.Status != StatusOccupied {
		t.Fatalf("state mutated on refused release: %s", b.Status)
	}
}

func TestChangeStatus_FinishCleaningStampsTimestamp(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, &mockOccupancy{}, locking.NewKeyMutex())
	id := seedBed(t, repo, StatusCleaning)

	b, err := svc.ChangeStatus(context.Background(), id, StatusAvailable)
	if err != nil {
		t.Fatalf("finish cleaning failed: %v", err)
	}
	if b.LastCleanedAt == nil {
		t.Fatal("expected last_cleaned_at to be stamped")
	}
}

func TestChangeStatus_IllegalTransitionLeavesStateUnchanged(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, &mockOccupancy{}, locking.NewKeyMutex())
	id := seedBed(t, repo, StatusMaintenance)

	_, err := svc.ChangeStatus(context.Background(), id, StatusOccupied)
	if !errors.Is(err, resource.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}

	b, _ := repo.GetByID(context.Background(), id)
	if b.Status != StatusMaintenance {
		t.Fatalf("state mutated on rejected transition: %s", b.Status)
	}
}

func TestChangeStatus_UnknownStatus(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, &mockOccupancy{}, locking.NewKeyMutex())
	id := seedBed(t, repo, StatusAvailable)

	_, err := svc.ChangeStatus(context.Background(), id, Status("launched"))
	if !errors.Is(err, resource.ErrUnsupportedCommand) {
		t.Fatalf("expected ErrUnsupportedCommand, got %v", err)
	}
}

func TestChangeStatus_MissingBed(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, &mockOccupancy{}, locking.NewKeyMutex())

	_, err := svc.ChangeStatus(context.Background(), uuid.New(), StatusOccupied)
	if !errors.Is(err, resource.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestChangeStatus_ConcurrentOccupyOneWinner(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, &mockOccupancy{}, locking.NewKeyMutex())
	id := seedBed(t, repo, StatusAvailable)

	const n = 10
	var wg sync.WaitGroup
	wg.Add(n)
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			_, err := svc.ChangeStatus(context.Background(), id, StatusOccupied)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	wins := 0
	for err := range errs {
		if err == nil {
			wins++
		} else if !errors.Is(err, resource.ErrInvalidTransition) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("expected exactly one winner, got %d", wins)
	}

	b, _ := repo.GetByID(context.Background(), id)
	if b.Status != StatusOccupied {
		t.Fatalf("expected occupied, got %s", b.Status)
	}
}
