package appointments

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

func TestOverlapsIsHalfOpen(t *testing.T) {
	base := time.Date(2025, 3, 13, 10, 0, 0, 0, time.UTC)
	cases := []struct {
		name         string
		aStart, aEnd time.Time
		bStart, bEnd time.Time
		wantConflict bool
	}{
		{"identical", base, base.Add(30 * time.Minute), base, base.Add(30 * time.Minute), true},
		{"partial overlap", base, base.Add(30 * time.Minute), base.Add(15 * time.Minute), base.Add(45 * time.Minute), true},
		{"contained", base, base.Add(time.Hour), base.Add(15 * time.Minute), base.Add(30 * time.Minute), true},
		{"back to back", base, base.Add(30 * time.Minute), base.Add(30 * time.Minute), base.Add(time.Hour), false},
		{"disjoint", base, base.Add(30 * time.Minute), base.Add(2 * time.Hour), base.Add(3 * time.Hour), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Overlaps(tc.aStart, tc.aEnd, tc.bStart, tc.bEnd); got != tc.wantConflict {
				t.Fatalf("Overlaps = %v, want %v", got, tc.wantConflict)
			}
		})
	}
}

func TestPostgresHasConflict(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	repo := NewPostgresRepositoryWithQuerier(mock)
	start := time.Date(2025, 3, 13, 10, 0, 0, 0, time.UTC)
	end := start.Add(30 * time.Minute)

	mock.ExpectQuery("SELECT 1 FROM appointments").
		WithArgs("biz-1", start, end).
		WillReturnRows(pgxmock.NewRows([]string{"1"}).AddRow(1))

	conflict, err := repo.HasConflict(context.Background(), "biz-1", start, end)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !conflict {
		t.Fatal("expected a conflict")
	}

	mock.ExpectQuery("SELECT 1 FROM appointments").
		WithArgs("biz-1", start, end).
		WillReturnError(pgx.ErrNoRows)

	conflict, err = repo.HasConflict(context.Background(), "biz-1", start, end)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if conflict {
		t.Fatal("no rows means the slot is free")
	}
}

func TestPostgresCreateDefaults(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	repo := NewPostgresRepositoryWithQuerier(mock)
	start := time.Date(2025, 3, 13, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery("INSERT INTO appointments").
		WithArgs(pgxmock.AnyArg(), "biz-1", "cust-1", "Consultation",
			start, start.Add(30*time.Minute), StatusPending, "").
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(time.Now().UTC()))

	a := &Appointment{
		BusinessID: "biz-1",
		CustomerID: "cust-1",
		Service:    "Consultation",
		StartTime:  start,
		EndTime:    start.Add(30 * time.Minute),
	}
	if err := repo.Create(context.Background(), a); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.ID == "" || a.Status != StatusPending || a.CreatedAt.IsZero() {
		t.Fatalf("defaults not applied: %+v", a)
	}
}

func TestPostgresUpdateStatusGuard(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	repo := NewPostgresRepositoryWithQuerier(mock)

	mock.ExpectExec("UPDATE appointments").
		WithArgs("missing", StatusConfirmed).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	if err := repo.UpdateStatus(context.Background(), "missing", StatusConfirmed); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestInMemoryConflictIgnoresCancelled(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()
	start := time.Date(2025, 3, 13, 10, 0, 0, 0, time.UTC)

	a := &Appointment{
		BusinessID: "biz-1",
		CustomerID: "cust-1",
		Service:    "Consultation",
		StartTime:  start,
		EndTime:    start.Add(30 * time.Minute),
	}
	if err := repo.Create(ctx, a); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	conflict, _ := repo.HasConflict(ctx, "biz-1", start, start.Add(30*time.Minute))
	if !conflict {
		t.Fatal("expected conflict with the live appointment")
	}

	if err := repo.UpdateStatus(ctx, a.ID, StatusCancelled); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	conflict, _ = repo.HasConflict(ctx, "biz-1", start, start.Add(30*time.Minute))
	if conflict {
		t.Fatal("cancelled appointments must not block the slot")
	}
}
