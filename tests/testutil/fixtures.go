package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/dimitrije/playdate-api/internal/database"
	"github.com/dimitrije/playdate-api/internal/models"
	"github.com/google/uuid"
)

// Fixtures provides factory methods for creating test data
type Fixtures struct {
	db      *database.DB
	counter int
}

// NewFixtures creates a new fixtures factory
func NewFixtures(db *database.DB) *Fixtures {
	return &Fixtures{db: db}
}

// CreateGuardian creates a test guardian with default values
func (f *Fixtures) CreateGuardian(t *testing.T, opts ...GuardianOption) *models.Guardian {
	t.Helper()
	f.counter++

	g := &models.Guardian{
		Email: fmt.Sprintf("guardian%d@example.com", f.counter),
		Name:  fmt.Sprintf("Test Guardian %d", f.counter),
	}

	for _, opt := range opts {
		opt(g)
	}

	err := f.db.Pool.QueryRow(context.Background(), `
		INSERT INTO guardians (email, name)
		VALUES ($1, $2)
		RETURNING id, email, name, created_at, updated_at
	`, g.Email, g.Name).Scan(&g.ID, &g.Email, &g.Name, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		t.Fatalf("failed to create guardian: %v", err)
	}

	return g
}

// GuardianOption configures a test guardian
type GuardianOption func(*models.Guardian)

// WithEmail sets the guardian's email
func WithEmail(email string) GuardianOption {
	return func(g *models.Guardian) {
		g.Email = email
	}
}

// WithName sets the guardian's name
func WithName(name string) GuardianOption {
	return func(g *models.Guardian) {
		g.Name = name
	}
}

// CreateChild creates a child belonging to guardian
func (f *Fixtures) CreateChild(t *testing.T, guardian *models.Guardian) *models.Child {
	t.Helper()
	f.counter++

	c := &models.Child{GuardianID: guardian.ID, Name: fmt.Sprintf("Child %d", f.counter)}
	err := f.db.Pool.QueryRow(context.Background(), `
		INSERT INTO children (guardian_id, name)
		VALUES ($1, $2)
		RETURNING id, created_at
	`, c.GuardianID, c.Name).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		t.Fatalf("failed to create child: %v", err)
	}

	return c
}

// Connect stores a connection between two children directly, bypassing the
// request flow.
func (f *Fixtures) Connect(t *testing.T, x, y *models.Child) *models.Connection {
	t.Helper()

	conn := models.NewConnection(
		models.Side{GuardianID: x.GuardianID, ChildID: x.ID},
		models.Side{GuardianID: y.GuardianID, ChildID: y.ID},
	)
	err := f.db.Pool.QueryRow(context.Background(), `
		INSERT INTO connections (guardian_a_id, child_a_id, guardian_b_id, child_b_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, conn.GuardianAID, conn.ChildAID, conn.GuardianBID, conn.ChildBID).Scan(&conn.ID, &conn.CreatedAt)
	if err != nil {
		t.Fatalf("failed to create connection: %v", err)
	}

	return &conn
}

// CreateActivity creates a single activity hosted by host
func (f *Fixtures) CreateActivity(t *testing.T, host *models.Child, opts ...ActivityOption) *models.Activity {
	t.Helper()
	f.counter++

	start := models.DateOnly(time.Now().UTC().AddDate(0, 0, 7))
	a := &models.Activity{
		HostChildID:         host.ID,
		CreatedByGuardianID: host.GuardianID,
		Name:                fmt.Sprintf("Test Activity %d", f.counter),
		StartDate:           start,
		EndDate:             start,
	}

	for _, opt := range opts {
		opt(a)
	}

	err := f.db.Pool.QueryRow(context.Background(), `
		INSERT INTO activities (host_child_id, created_by_guardian_id, name, start_date, end_date,
			is_shared, auto_notify_new_connections)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`, a.HostChildID, a.CreatedByGuardianID, a.Name, a.StartDate, a.EndDate,
		a.IsShared, a.AutoNotifyNewConnections).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		t.Fatalf("failed to create activity: %v", err)
	}

	return a
}

// ActivityOption configures a test activity
type ActivityOption func(*models.Activity)

// WithAutoNotify turns on auto-notify for new connections
func WithAutoNotify() ActivityOption {
	return func(a *models.Activity) {
		a.AutoNotifyNewConnections = true
	}
}

// OnDate moves the activity to a single date
func OnDate(d time.Time) ActivityOption {
	return func(a *models.Activity) {
		a.StartDate = models.DateOnly(d)
		a.EndDate = models.DateOnly(d)
	}
}

// CountRows counts rows in table matching where (a SQL condition on $1).
func (f *Fixtures) CountRows(t *testing.T, table, where string, arg uuid.UUID) int {
	t.Helper()

	var n int
	err := f.db.Pool.QueryRow(context.Background(),
		fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", table, where), arg).Scan(&n)
	if err != nil {
		t.Fatalf("failed to count %s: %v", table, err)
	}
	return n
}
