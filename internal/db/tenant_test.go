package db

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"hms/internal/config"
)

func newMockHandle(t *testing.T) *gorm.DB {
	t.Helper()
	sqlDB, _, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { sqlDB.Close() })

	handle, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{})
	if err != nil {
		t.Fatal(err)
	}
	return handle
}

func TestRegistry_StoreReturnsCachedHandle(t *testing.T) {
	registry := NewRegistry(config.DatabaseConfig{})
	handle := newMockHandle(t)
	registry.Put("hms_tenant1", handle)

	got, err := registry.Store(context.Background(), "hms_tenant1")
	if err != nil {
		t.Fatal(err)
	}
	if got != handle {
		t.Error("Store must return the installed handle")
	}

	again, err := registry.Store(context.Background(), "hms_tenant1")
	if err != nil {
		t.Fatal(err)
	}
	if again != handle {
		t.Error("repeated Store must reuse the cached handle")
	}
}

func TestRegistry_StoreRequiresTenantID(t *testing.T) {
	registry := NewRegistry(config.DatabaseConfig{})
	if _, err := registry.Store(context.Background(), ""); err == nil {
		t.Error("empty tenant id must be rejected")
	}
}

func TestRegistry_HandlesAreIsolatedPerTenant(t *testing.T) {
	registry := NewRegistry(config.DatabaseConfig{})
	a := newMockHandle(t)
	b := newMockHandle(t)
	registry.Put("hms_a", a)
	registry.Put("hms_b", b)

	gotA, err := registry.Store(context.Background(), "hms_a")
	if err != nil {
		t.Fatal(err)
	}
	gotB, err := registry.Store(context.Background(), "hms_b")
	if err != nil {
		t.Fatal(err)
	}
	if gotA == gotB {
		t.Error("tenants must not share a handle")
	}
}
