package task

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/edhub/edhub/internal/domain/resource"
	"github.com/edhub/edhub/internal/platform/locking"
)

type mockRepo struct {
	mu    sync.Mutex
	tasks map[uuid.UUID]Task

	updateErr error
}

func newMockRepo() *mockRepo {
	return &mockRepo{tasks: make(map[uuid.UUID]Task)}
}

func (m *mockRepo) Create(_ context.Context, t *Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	t.CreatedAt = time.Now()
	m.tasks[t.ID] = *t
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return nil, resource.ErrNotFound
	}
	cp := t
	return &cp, nil
}

func (m *mockRepo) Update(_ context.Context, t *Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	if _, ok := m.tasks[t.ID]; !ok {
		return resource.ErrNotFound
	}
	m.tasks[t.ID] = *t
	return nil
}

func (m *mockRepo) ListByAssignee(_ context.Context, assigneeID uuid.UUID) ([]*Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Task
	for _, t := range m.tasks {
		if t.AssigneeID == assigneeID {
			cp := t
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockRepo) ListByPatient(_ context.Context, patientID uuid.UUID) ([]*Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Task
	for _, t := range m.tasks {
		if t.PatientID != nil && *t.PatientID == patientID {
			cp := t
			out = append(out, &cp)
		}
	}
	return out, nil
}

func newTestService(repo Repository) *Service {
	return NewService(repo, locking.NewKeyMutex())
}

func statusPtr(s Status) *Status { return &s }

func TestCreate_Defaults(t *testing.T) {
	svc := newTestService(newMockRepo())

	got, err := svc.Create(context.Background(), CreateRequest{
		Title:      "order chest x-ray",
		Type:       "imaging",
		AssigneeID: uuid.New(),
		CreatorID:  uuid.New(),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if got.Status != StatusPending {
		t.Errorf("status = %s, want pending", got.Status)
	}
	if got.Priority != PriorityMedium {
		t.Errorf("priority = %s, want medium default", got.Priority)
	}
}

func TestCreate_Validation(t *testing.T) {
	svc := newTestService(newMockRepo())

	_, err := svc.Create(context.Background(), CreateRequest{AssigneeID: uuid.New(), CreatorID: uuid.New()})
	if !errors.Is(err, resource.ErrConstraintViolation) {
		t.Errorf("missing title: err = %v, want constraint violation", err)
	}

	_, err = svc.Create(context.Background(), CreateRequest{Title: "t", CreatorID: uuid.New()})
	if !errors.Is(err, resource.ErrConstraintViolation) {
		t.Errorf("missing assignee: err = %v, want constraint violation", err)
	}
}

func TestApply_CompleteStampsActor(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)
	now := time.Date(2026, 8, 30, 14, 0, 0, 0, time.UTC)
	svc.clock = func() time.Time { return now }

	created, err := svc.Create(context.Background(), CreateRequest{
		Title: "draw blood", AssigneeID: uuid.New(), CreatorID: uuid.New(),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	actor := uuid.New()
	got, err := svc.Apply(context.Background(), created.ID, UpdateRequest{
		Status:          statusPtr(StatusCompleted),
		CompletionNotes: "sent to lab",
		ActorID:         actor,
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if got.Status != StatusCompleted {
		t.Errorf("status = %s, want completed", got.Status)
	}
	if got.CompletedAt == nil || !got.CompletedAt.Equal(now) {
		t.Errorf("completed_at = %v, want %v", got.CompletedAt, now)
	}
	if got.CompletedBy == nil || *got.CompletedBy != actor {
		t.Errorf("completed_by = %v, want %s", got.CompletedBy, actor)
	}
}

func TestApply_InvalidTransitionLeavesStored(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)

	created, _ := svc.Create(context.Background(), CreateRequest{
		Title: "t", AssigneeID: uuid.New(), CreatorID: uuid.New(),
	})
	if _, err := svc.Apply(context.Background(), created.ID, UpdateRequest{
		Status: statusPtr(StatusCompleted), ActorID: uuid.New(),
	}); err != nil {
		t.Fatalf("complete: %v", err)
	}

	_, err := svc.Apply(context.Background(), created.ID, UpdateRequest{
		Status: statusPtr(StatusInProgress),
	})
	if !errors.Is(err, resource.ErrInvalidTransition) {
		t.Fatalf("err = %v, want invalid transition", err)
	}

	stored, _ := repo.GetByID(context.Background(), created.ID)
	if stored.Status != StatusCompleted {
		t.Errorf("stored status = %s, rejected update must not mutate", stored.Status)
	}
}

func TestApply_CompleteTwiceRejected(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)

	created, _ := svc.Create(context.Background(), CreateRequest{
		Title: "t", AssigneeID: uuid.New(), CreatorID: uuid.New(),
	})
	first := uuid.New()
	if _, err := svc.Apply(context.Background(), created.ID, UpdateRequest{
		Status: statusPtr(StatusCompleted), ActorID: first,
	}); err != nil {
		t.Fatalf("complete: %v", err)
	}

	_, err := svc.Apply(context.Background(), created.ID, UpdateRequest{
		Status: statusPtr(StatusCompleted), ActorID: uuid.New(),
	})
	if !errors.Is(err, resource.ErrInvalidTransition) {
		t.Fatalf("second complete: err = %v, want invalid transition", err)
	}

	stored, _ := repo.GetByID(context.Background(), created.ID)
	if stored.CompletedBy == nil || *stored.CompletedBy != first {
		t.Errorf("completed_by = %v, the first completion must stand", stored.CompletedBy)
	}
}

func TestApply_ReassignTerminalRejected(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)

	created, _ := svc.Create(context.Background(), CreateRequest{
		Title: "t", AssigneeID: uuid.New(), CreatorID: uuid.New(),
	})
	if _, err := svc.Apply(context.Background(), created.ID, UpdateRequest{
		Status: statusPtr(StatusCancelled), CancelReason: "duplicate",
	}); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	other := uuid.New()
	_, err := svc.Apply(context.Background(), created.ID, UpdateRequest{AssigneeID: &other})
	if !errors.Is(err, resource.ErrInvalidTransition) {
		t.Errorf("reassign cancelled task: err = %v, want invalid transition", err)
	}
}

func TestApply_FailedUpdateDoesNotMutate(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)

	created, _ := svc.Create(context.Background(), CreateRequest{
		Title: "t", AssigneeID: uuid.New(), CreatorID: uuid.New(),
	})
	repo.updateErr = errors.New("connection reset")

	_, err := svc.Apply(context.Background(), created.ID, UpdateRequest{Status: statusPtr(StatusInProgress)})
	if err == nil {
		t.Fatal("expected store error")
	}
	stored, _ := repo.GetByID(context.Background(), created.ID)
	if stored.Status != StatusPending {
		t.Errorf("stored status = %s, want pending after failed write", stored.Status)
	}
}

func TestApply_ConcurrentCompleteOneWinner(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)

	created, _ := svc.Create(context.Background(), CreateRequest{
		Title: "t", AssigneeID: uuid.New(), CreatorID: uuid.New(),
	})

	const n = 10
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Apply(context.Background(), created.ID, UpdateRequest{
				Status: statusPtr(StatusCompleted), ActorID: uuid.New(),
			})
		}(i)
	}
	wg.Wait()

	var wins int
	for _, err := range errs {
		if err == nil {
			wins++
		} else if !errors.Is(err, resource.ErrInvalidTransition) {
			t.Errorf("unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Errorf("winners = %d, want exactly 1", wins)
	}
}
