package service

import (
	"context"
	"testing"
	"time"

	"github.com/aditya/rideshare/internal/models"
	"github.com/aditya/rideshare/pkg/logger"
)

func TestSweepExpiresOnlyOverdueRequests(t *testing.T) {
	store := newMemStore()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	store.addRequest(&models.RideRequest{ID: "overdue", ExpiresAt: now.Add(-time.Minute)})
	store.addRequest(&models.RideRequest{ID: "deadline", ExpiresAt: now})
	store.addRequest(&models.RideRequest{ID: "fresh", ExpiresAt: now.Add(time.Minute)})
	store.addRequest(&models.RideRequest{ID: "taken", Status: models.RequestStatusAccepted, ExpiresAt: now.Add(-time.Hour)})

	w := NewExpiryWorker(requestRepo{store}, time.Second, logger.Nop())
	w.now = func() time.Time { return now }

	n, err := w.Sweep(context.Background())
	if err != nil || n != 2 {
		t.Fatalf("Sweep() = %d, %v; want 2", n, err)
	}

	want := map[string]string{
		"overdue":  models.RequestStatusExpired,
		"deadline": models.RequestStatusExpired,
		"fresh":    models.RequestStatusPending,
		"taken":    models.RequestStatusAccepted,
	}
	for id, status := range want {
		if got := store.request(id).Status; got != status {
			t.Errorf("%s status = %s, want %s", id, got, status)
		}
	}
}

func TestRunStopsWithContext(t *testing.T) {
	w := NewExpiryWorker(requestRepo{newMemStore()}, 10*time.Millisecond, logger.Nop())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not stop")
	}
}
