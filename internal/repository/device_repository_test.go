package repository

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/sandeepkv93/echo-backend/internal/domain"
)

func TestDeviceRepositoryUpsertMergesSuppliedFields(t *testing.T) {
	repo := NewDeviceRepository(newTestDB(t))

	created, err := repo.Upsert("dev-1", domain.DevicePatch{Name: strPtr("Pixel"), Platform: strPtr("android")})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID != "dev-1" || *created.Name != "Pixel" {
		t.Fatalf("unexpected device: %+v", created)
	}

	merged, err := repo.Upsert("dev-1", domain.DevicePatch{UserID: strPtr("u1")})
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if merged.Name == nil || *merged.Name != "Pixel" || merged.Platform == nil || *merged.Platform != "android" {
		t.Fatalf("unsupplied fields lost: %+v", merged)
	}
	if merged.UserID == nil || *merged.UserID != "u1" {
		t.Fatalf("owner not set: %+v", merged)
	}

	again, err := repo.Upsert("dev-1", domain.DevicePatch{})
	if err != nil {
		t.Fatalf("empty patch: %v", err)
	}
	if again.UserID == nil || *again.UserID != "u1" {
		t.Fatalf("empty patch changed device: %+v", again)
	}

	list, err := repo.ListByUserID("u1")
	if err != nil || len(list) != 1 {
		t.Fatalf("list: %v %v", list, err)
	}
}

func TestDeviceRepositoryConcurrentUpsertOfNewDevice(t *testing.T) {
	db := newTestDB(t)
	repo := NewDeviceRepository(db)

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := repo.Upsert("dev-new", domain.DevicePatch{Name: strPtr(fmt.Sprintf("phone-%d", i))}); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent upsert: %v", err)
	}

	var count int64
	if err := db.Model(&domain.Device{}).Where("id = ?", "dev-new").Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one device row, got %d", count)
	}
	got, err := repo.FindByID("dev-new")
	if err != nil || got.Name == nil {
		t.Fatalf("find: %+v %v", got, err)
	}
}

func TestDeviceRepositoryUpdateAndDelete(t *testing.T) {
	db := newTestDB(t)
	repo := NewDeviceRepository(db)
	sessions := NewSessionRepository(db)

	if _, err := repo.Update("missing", domain.DevicePatch{Name: strPtr("x")}); !errors.Is(err, ErrDeviceNotFound) {
		t.Fatalf("expected ErrDeviceNotFound, got %v", err)
	}
	if _, err := repo.Upsert("dev-1", domain.DevicePatch{}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	updated, err := repo.Update("dev-1", domain.DevicePatch{PushToken: strPtr("push-1")})
	if err != nil || updated.PushToken == nil || *updated.PushToken != "push-1" {
		t.Fatalf("update: %+v %v", updated, err)
	}

	if _, err := sessions.UpsertByDevice(sessionFor("dev-1", "u1", "1")); err != nil {
		t.Fatalf("session: %v", err)
	}
	if err := repo.Delete("dev-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := sessions.FindByDevice("dev-1"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("session should be gone, got %v", err)
	}
	if err := repo.Delete("dev-1"); !errors.Is(err, ErrDeviceNotFound) {
		t.Fatalf("expected ErrDeviceNotFound, got %v", err)
	}
}
