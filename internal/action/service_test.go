package action

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/doormanhub/doorman-core/internal/audit"
	"github.com/doormanhub/doorman-core/internal/hardware"
	"github.com/doormanhub/doorman-core/internal/infrastructure/logging"
)

// brokenActor always fails to trigger.
type brokenActor struct{}

func (brokenActor) ID() string                  { return "broken-1" }
func (brokenActor) Name() string                { return "Broken" }
func (brokenActor) Kind() string                { return "stub" }
func (brokenActor) State() hardware.ActorState  { return hardware.ActorState{} }
func (brokenActor) Trigger(context.Context, hardware.Params) error {
	return errors.New("coil jammed")
}

type brokenDriver struct{}

func (brokenDriver) Name() string { return "broken" }
func (brokenDriver) Discover(context.Context) ([]*hardware.Device, error) {
	return []*hardware.Device{hardware.NewDevice("flaky", "Flaky Board", "broken", brokenActor{})}, nil
}

// captureMetrics records actuation measurements.
type captureMetrics struct {
	mu      sync.Mutex
	records []bool
}

func (m *captureMetrics) RecordActuation(_, _ string, success bool, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, success)
}

type serviceFixture struct {
	svc     *Service
	pins    *hardware.MemoryPinIO
	db      *sql.DB
	metrics *captureMetrics
}

func newTestService(t *testing.T) *serviceFixture {
	t.Helper()

	db := testDB(t)
	pins := hardware.NewMemoryPinIO()

	registry := hardware.NewRegistry()
	err := registry.Discover(context.Background(),
		hardware.NewGPIORelayDriver("gpio-main", "Door Controller", []int{17, 27}, pins, nil, nil),
		brokenDriver{},
	)
	if err != nil {
		t.Fatalf("registry discovery: %v", err)
	}

	logger := logging.Default()
	recorder := audit.NewRecorder(audit.NewSQLiteRepository(db), logger)
	metrics := &captureMetrics{}

	return &serviceFixture{
		svc:     NewService(NewRepository(db), registry, recorder, metrics, logger),
		pins:    pins,
		db:      db,
		metrics: metrics,
	}
}

// lastEvent returns the newest event log entry.
func lastEvent(t *testing.T, db *sql.DB) *audit.Event {
	t.Helper()

	result, err := audit.NewSQLiteRepository(db).List(context.Background(), audit.Filter{Limit: 1})
	if err != nil {
		t.Fatalf("listing events: %v", err)
	}
	if len(result.Events) == 0 {
		return nil
	}
	return &result.Events[0]
}

func TestService_Create_Validation(t *testing.T) {
	fx := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		action Action
	}{
		{"empty name", Action{Name: "  ", DeviceID: "gpio-main", ActorID: "relay-1"}},
		{"unknown device", Action{Name: "x", DeviceID: "nope", ActorID: "relay-1"}},
		{"unknown actor", Action{Name: "x", DeviceID: "gpio-main", ActorID: "relay-9"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := fx.svc.Create(ctx, &tt.action)
			if !errors.Is(err, ErrInvalidAction) {
				t.Errorf("Create() error = %v, want ErrInvalidAction", err)
			}
		})
	}
}

func TestService_CreateAndUpdate(t *testing.T) {
	fx := newTestService(t)
	ctx := context.Background()

	a := &Action{Name: "open front door", DeviceID: "gpio-main", ActorID: "relay-1"}
	if err := fx.svc.Create(ctx, a); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// Rebinding to a vanished actor must fail the same validation
	a.ActorID = "relay-9"
	if err := fx.svc.Update(ctx, a); !errors.Is(err, ErrInvalidAction) {
		t.Errorf("Update() error = %v, want ErrInvalidAction", err)
	}

	a.ActorID = "relay-2"
	if err := fx.svc.Update(ctx, a); err != nil {
		t.Errorf("Update() error = %v", err)
	}
}

func TestService_Dispatch(t *testing.T) {
	fx := newTestService(t)
	ctx := context.Background()

	a := &Action{
		Name:     "open front door",
		DeviceID: "gpio-main",
		ActorID:  "relay-1",
		Params:   hardware.Params{"on": true},
	}
	if err := fx.svc.Create(ctx, a); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := fx.svc.Dispatch(ctx, a.ID, "usr-1", "10.0.0.5")
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if got.ID != a.ID {
		t.Errorf("Dispatch() returned %s, want %s", got.ID, a.ID)
	}

	on, _ := fx.pins.Read(17)
	if !on {
		t.Error("relay-1 pin should be on after dispatch")
	}

	event := lastEvent(t, fx.db)
	if event == nil || event.Severity != audit.SeverityInfo || event.UserID != "usr-1" {
		t.Errorf("event = %+v, want info event for usr-1", event)
	}

	if len(fx.metrics.records) != 1 || !fx.metrics.records[0] {
		t.Errorf("metrics = %v, want one success", fx.metrics.records)
	}
}

func TestService_Dispatch_NotFound(t *testing.T) {
	fx := newTestService(t)

	_, err := fx.svc.Dispatch(context.Background(), "act-missing", audit.SystemUser, "")
	if !errors.Is(err, ErrActionNotFound) {
		t.Errorf("Dispatch() error = %v, want ErrActionNotFound", err)
	}
}

func TestService_Dispatch_StaleDevice(t *testing.T) {
	fx := newTestService(t)
	ctx := context.Background()

	// Insert directly: the registry check at create would reject this,
	// but the row is exactly what a redeploy with fewer boards leaves
	// behind.
	repo := NewRepository(fx.db)
	a := &Action{Name: "ghost", DeviceID: "gone", ActorID: "relay-1"}
	if err := repo.Create(ctx, a); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	_, err := fx.svc.Dispatch(ctx, a.ID, audit.SystemUser, "")
	if !errors.Is(err, ErrStaleDevice) {
		t.Fatalf("Dispatch() error = %v, want ErrStaleDevice", err)
	}

	event := lastEvent(t, fx.db)
	if event == nil || event.Severity != audit.SeverityError {
		t.Errorf("event = %+v, want error event", event)
	}
}

func TestService_Dispatch_StaleActor(t *testing.T) {
	fx := newTestService(t)
	ctx := context.Background()

	repo := NewRepository(fx.db)
	a := &Action{Name: "ghost", DeviceID: "gpio-main", ActorID: "relay-9"}
	if err := repo.Create(ctx, a); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if _, err := fx.svc.Dispatch(ctx, a.ID, audit.SystemUser, ""); !errors.Is(err, ErrStaleActor) {
		t.Errorf("Dispatch() error = %v, want ErrStaleActor", err)
	}
}

func TestService_Dispatch_ActuationFailure(t *testing.T) {
	fx := newTestService(t)
	ctx := context.Background()

	a := &Action{Name: "jam", DeviceID: "flaky", ActorID: "broken-1"}
	if err := fx.svc.Create(ctx, a); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	_, err := fx.svc.Dispatch(ctx, a.ID, "usr-1", "")
	if !errors.Is(err, ErrActuationFailed) {
		t.Fatalf("Dispatch() error = %v, want ErrActuationFailed", err)
	}

	event := lastEvent(t, fx.db)
	if event == nil || event.Severity != audit.SeverityError {
		t.Errorf("event = %+v, want error event", event)
	}

	if len(fx.metrics.records) != 1 || fx.metrics.records[0] {
		t.Errorf("metrics = %v, want one failure", fx.metrics.records)
	}
}
