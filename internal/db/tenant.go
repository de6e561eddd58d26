package db

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"hms/internal/config"
	"hms/internal/models"
	console "hms/internal/utils/logger"
)

// Registry maps a tenant identifier to that tenant's isolated identity store.
// Handles are opened lazily on first access and retained for the process
// lifetime. There is no eviction; the tenant count is bounded by registered
// hospitals. Concurrent first access for the same tenant is collapsed to a
// single open via singleflight.
type Registry struct {
	cfg config.DatabaseConfig
	log *console.Logger

	mu      sync.RWMutex
	handles map[string]*gorm.DB
	group   singleflight.Group
	open    func(tenantID string) (*gorm.DB, error)
}

func NewRegistry(cfg config.DatabaseConfig) *Registry {
	r := &Registry{
		cfg:     cfg,
		log:     console.New("TenantRegistry"),
		handles: make(map[string]*gorm.DB),
	}
	r.open = r.openConn
	return r
}

// SetOpener replaces the connection opener. Used by tests.
func (r *Registry) SetOpener(fn func(tenantID string) (*gorm.DB, error)) {
	r.open = fn
}

// Store returns the identity store handle for the tenant, opening it on first
// use. An unknown tenant database or failed open surfaces as an error; the
// registry never falls back to the main store.
func (r *Registry) Store(ctx context.Context, tenantID string) (*gorm.DB, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("tenant id required")
	}

	r.mu.RLock()
	handle, ok := r.handles[tenantID]
	r.mu.RUnlock()
	if ok {
		return handle, nil
	}

	v, err, _ := r.group.Do(tenantID, func() (interface{}, error) {
		conn, err := r.open(tenantID)
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		r.handles[tenantID] = conn
		r.mu.Unlock()
		return conn, nil
	})
	if err != nil {
		return nil, fmt.Errorf("opening tenant store %s: %w", tenantID, err)
	}
	return v.(*gorm.DB), nil
}

func (r *Registry) openConn(tenantID string) (*gorm.DB, error) {
	conn, err := gorm.Open(postgres.Open(r.cfg.DSN(tenantID)), &gorm.Config{
		Logger:                                   gormlogger.Default.LogMode(gormlogger.Warn),
		DisableForeignKeyConstraintWhenMigrating: true,
		PrepareStmt:                              true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(2)
	sqlDB.SetConnMaxLifetime(time.Hour)

	// Tenant stores hold staff identities only; roles stay in the main store.
	if err := conn.AutoMigrate(&models.User{}); err != nil {
		return nil, fmt.Errorf("migrating tenant schema: %w", err)
	}

	r.log.Info("Opened tenant store %s", tenantID)
	return conn, nil
}

// Provision creates the tenant database on the shared cluster and opens its
// handle. Called once at hospital registration; tenantID is generated
// internally (hms_<hex>) and is safe to interpolate as an identifier.
func (r *Registry) Provision(ctx context.Context, mainStore *gorm.DB, tenantID string) (*gorm.DB, error) {
	if err := mainStore.WithContext(ctx).Exec(fmt.Sprintf("CREATE DATABASE %q", tenantID)).Error; err != nil {
		return nil, fmt.Errorf("creating tenant database %s: %w", tenantID, err)
	}
	r.log.Success("Provisioned tenant database %s", tenantID)
	return r.Store(ctx, tenantID)
}

// Put installs a pre-opened handle. Used by tests to register fakes.
func (r *Registry) Put(tenantID string, handle *gorm.DB) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handles[tenantID] = handle
}
