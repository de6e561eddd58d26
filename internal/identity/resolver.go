// Package identity locates the user behind a token or email across the
// main store and every tenant store, and hydrates role references so
// downstream gates never trust raw token claims.
package identity

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"hms/internal/db"
	"hms/internal/models"
	"hms/internal/rbac"
	"hms/internal/utils/logger"
)

var ErrNotFound = errors.New("identity: user not found")

// hospital exists but its status blocks tenant lookups
var errNotOperable = errors.New("identity: hospital not operable")

// fan-out over tenant stores runs at most this many lookups at once
const scanConcurrency = 8

// Identity is a resolved user plus where they were found. HospitalID is
// empty for global accounts.
type Identity struct {
	User       *models.User
	HospitalID string
	Roles      []models.RoleRef
}

type Resolver struct {
	main     *gorm.DB
	registry *db.Registry
	catalog  rbac.Catalog
	log      *logger.Logger
}

func NewResolver(main *gorm.DB, registry *db.Registry, catalog rbac.Catalog) *Resolver {
	return &Resolver{
		main:     main,
		registry: registry,
		catalog:  catalog,
		log:      logger.New("Identity"),
	}
}

// FindByID resolves a user by primary key. hospitalHint comes from token
// claims and is tried first when the hospital is still operable; a miss
// falls back to the directory index and only then to the tenant scan.
func (r *Resolver) FindByID(ctx context.Context, userID, hospitalHint string) (*Identity, error) {
	var user models.User
	err := r.main.WithContext(ctx).First(&user, "id = ?", userID).Error
	if err == nil {
		return r.hydrate(ctx, &user, "")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if hospitalHint != "" {
		ident, err := r.findInTenant(ctx, hospitalHint, "id = ?", userID)
		if err == nil {
			return ident, nil
		}
		if !errors.Is(err, ErrNotFound) && !errors.Is(err, errNotOperable) {
			return nil, err
		}
	}

	// stale or missing hint. The directory index still knows where the user
	// was last seen, so try there before the full fan-out.
	var entry models.DirectoryEntry
	err = r.main.WithContext(ctx).First(&entry, "user_id = ?", userID).Error
	if err == nil && entry.HospitalID != hospitalHint {
		ident, ferr := r.findInTenant(ctx, entry.HospitalID, "id = ?", userID)
		if ferr == nil {
			return ident, nil
		}
		if errors.Is(ferr, errNotOperable) {
			return nil, ErrNotFound
		}
		if !errors.Is(ferr, ErrNotFound) {
			return nil, ferr
		}
		r.main.WithContext(ctx).Delete(&entry)
	} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	return r.scanTenants(ctx, hospitalHint, "id = ?", userID)
}

// FindByEmail resolves a user by email for login and password flows. The
// directory index is consulted before falling back to a full tenant scan,
// and is repaired whenever a scan does find the user.
func (r *Resolver) FindByEmail(ctx context.Context, email string) (*Identity, error) {
	var user models.User
	err := r.main.WithContext(ctx).First(&user, "email = ?", email).Error
	if err == nil {
		return r.hydrate(ctx, &user, "")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	var entry models.DirectoryEntry
	err = r.main.WithContext(ctx).First(&entry, "email = ?", email).Error
	if err == nil {
		ident, err := r.findInTenant(ctx, entry.HospitalID, "email = ?", email)
		if err == nil {
			return ident, nil
		}
		if errors.Is(err, errNotOperable) {
			// the entry is still correct; the hospital's status is the blocker
			return nil, ErrNotFound
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
		// stale entry, fall through to the scan
		r.main.WithContext(ctx).Delete(&entry)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	return r.scanTenants(ctx, "", "email = ?", email)
}

// BlockedByHospital reports the hospital blocking an email when the
// directory index places the account in a non-operable tenant. Accounts
// in unindexed non-operable tenants are simply not found.
func (r *Resolver) BlockedByHospital(ctx context.Context, email string) (*models.Hospital, bool) {
	var entry models.DirectoryEntry
	if err := r.main.WithContext(ctx).First(&entry, "email = ?", email).Error; err != nil {
		return nil, false
	}
	var hospital models.Hospital
	if err := r.main.WithContext(ctx).First(&hospital, "id = ?", entry.HospitalID).Error; err != nil {
		return nil, false
	}
	if hospital.Operable() {
		return nil, false
	}
	return &hospital, true
}

// FindByResetToken locates the tenant or global user holding an
// unexpired reset token.
func (r *Resolver) FindByResetToken(ctx context.Context, token string) (*Identity, *gorm.DB, error) {
	var user models.User
	err := r.main.WithContext(ctx).First(&user, "reset_token = ?", token).Error
	if err == nil {
		ident, err := r.hydrate(ctx, &user, "")
		return ident, r.main, err
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, err
	}

	hospitals, err := r.operableHospitals(ctx)
	if err != nil {
		return nil, nil, err
	}
	for _, h := range hospitals {
		store, err := r.registry.Store(ctx, h.TenantID)
		if err != nil {
			r.log.Warn("skipping tenant %s: %v", h.TenantID, err)
			continue
		}
		var u models.User
		err = store.WithContext(ctx).First(&u, "reset_token = ?", token).Error
		if err == nil {
			ident, err := r.hydrate(ctx, &u, h.ID)
			return ident, store, err
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, err
		}
	}
	return nil, nil, ErrNotFound
}

// Store returns the database the identity's user row lives in.
func (r *Resolver) Store(ctx context.Context, ident *Identity) (*gorm.DB, error) {
	if ident.HospitalID == "" {
		return r.main, nil
	}
	var hospital models.Hospital
	if err := r.main.WithContext(ctx).First(&hospital, "id = ?", ident.HospitalID).Error; err != nil {
		return nil, err
	}
	return r.registry.Store(ctx, hospital.TenantID)
}

func (r *Resolver) findInTenant(ctx context.Context, hospitalID string, query string, arg any) (*Identity, error) {
	var hospital models.Hospital
	err := r.main.WithContext(ctx).First(&hospital, "id = ?", hospitalID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !hospital.Operable() {
		return nil, errNotOperable
	}

	store, err := r.registry.Store(ctx, hospital.TenantID)
	if err != nil {
		return nil, err
	}
	var user models.User
	err = store.WithContext(ctx).First(&user, query, arg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	r.indexUser(ctx, &user, hospital)
	return r.hydrate(ctx, &user, hospital.ID)
}

// scanTenants looks for the user in every operable tenant, a bounded
// number at a time, stopping at the first hit. skip is a hospital already
// tried via the hint path.
func (r *Resolver) scanTenants(ctx context.Context, skip string, query string, arg any) (*Identity, error) {
	hospitals, err := r.operableHospitals(ctx)
	if err != nil {
		return nil, err
	}

	scanCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, scanCtx := errgroup.WithContext(scanCtx)
	g.SetLimit(scanConcurrency)

	found := make(chan *Identity, 1)
	for _, h := range hospitals {
		if h.ID == skip {
			continue
		}
		hospital := h
		g.Go(func() error {
			store, err := r.registry.Store(scanCtx, hospital.TenantID)
			if err != nil {
				// one broken tenant must not sink the whole scan
				r.log.Warn("skipping tenant %s: %v", hospital.TenantID, err)
				return nil
			}
			var user models.User
			err = store.WithContext(scanCtx).First(&user, query, arg).Error
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) || scanCtx.Err() != nil {
					return nil
				}
				return err
			}
			r.indexUser(ctx, &user, hospital)
			ident, err := r.hydrate(ctx, &user, hospital.ID)
			if err != nil {
				return err
			}
			select {
			case found <- ident:
				cancel()
			default:
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	select {
	case ident := <-found:
		return ident, nil
	default:
		return nil, ErrNotFound
	}
}

func (r *Resolver) operableHospitals(ctx context.Context) ([]models.Hospital, error) {
	var hospitals []models.Hospital
	err := r.main.WithContext(ctx).
		Where("status IN ?", []models.HospitalStatus{models.HospitalStatusActive, models.HospitalStatusVerified}).
		Find(&hospitals).Error
	return hospitals, err
}

// hydrate expands stored role IDs into role references. Roles that no
// longer exist in the catalog are dropped, which degrades the user to no
// permissions rather than failing the request.
func (r *Resolver) hydrate(ctx context.Context, user *models.User, hospitalID string) (*Identity, error) {
	ident := &Identity{User: user, HospitalID: hospitalID}
	if hospitalID == "" && user.HospitalID != nil {
		ident.HospitalID = *user.HospitalID
	}
	if len(user.RoleIDs) == 0 {
		return ident, nil
	}
	roles, err := r.catalog.RolesByIDs(ctx, user.RoleIDs)
	if err != nil {
		r.log.Warn("role hydration for %s: %v", user.Email, err)
		return ident, nil
	}
	for _, role := range roles {
		ident.Roles = append(ident.Roles, models.RoleRef{ID: role.ID, Name: role.Name})
	}
	return ident, nil
}

// indexUser records where an email was last found so the next lookup can
// skip the scan.
func (r *Resolver) indexUser(ctx context.Context, user *models.User, hospital models.Hospital) {
	entry := models.DirectoryEntry{
		Email:      user.Email,
		UserID:     user.ID,
		HospitalID: hospital.ID,
		TenantID:   hospital.TenantID,
	}
	err := r.main.WithContext(ctx).
		Where("email = ?", user.Email).
		Assign(entry).
		FirstOrCreate(&models.DirectoryEntry{}).Error
	if err != nil {
		r.log.Warn("directory index update for %s: %v", user.Email, err)
	}
}
