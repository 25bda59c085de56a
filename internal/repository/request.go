// Package repository provides data access layer implementations for the application.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"docroute/internal/cache"
	"docroute/internal/models"
	"docroute/internal/observability"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrNotFound is returned when no request has the given id.
	ErrNotFound = errors.New("request not found")
	// ErrConflict is returned when a write lost a race with another writer.
	ErrConflict = errors.New("request was modified concurrently")
)

// ListFilter narrows request listings. Zero fields do not filter.
type ListFilter struct {
	OwnerID         string
	UnitUIC         string
	InstallationID  string
	RouteSection    string
	ExternalUnitUIC string
	Stages          []models.Stage
	Filed           *bool
	Limit           int
	Offset          int
}

// RequestRepository defines the interface for request data operations
type RequestRepository interface {
	Create(ctx context.Context, req *models.Request) error
	GetByID(ctx context.Context, id string) (*models.Request, error)
	// GetByIDForUpdate reads the primary, skipping the cache and the read
	// replica, so writers always start from the latest committed version.
	GetByIDForUpdate(ctx context.Context, id string) (*models.Request, error)
	// Save persists req if its stored version still equals expectedVersion,
	// appending ledger entries not yet stored. On success req.Version is
	// advanced by one.
	Save(ctx context.Context, req *models.Request, expectedVersion int64) error
	Delete(ctx context.Context, id string, expectedVersion int64) error
	List(ctx context.Context, filter ListFilter) ([]*models.Request, error)
	ListFiled(ctx context.Context, filter ListFilter) ([]*models.Request, error)
}

type requestRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewRequestRepository creates a new request repository
func NewRequestRepository(db *gorm.DB) RequestRepository {
	return &requestRepository{db: db, log: observability.NewRepoLogger("requests")}
}

func (r *requestRepository) Create(ctx context.Context, req *models.Request) error {
	defer observability.TrackQuery("create", "requests")()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(req).Error; err != nil {
			return err
		}
		if len(req.Activity) == 0 {
			return nil
		}
		for i := range req.Activity {
			req.Activity[i].ID = 0
			req.Activity[i].RequestID = req.ID
		}
		return tx.Create(&req.Activity).Error
	})
	if err != nil {
		r.log.LogError(ctx, err, "create")
		return translateError(err)
	}
	r.log.LogCreate(ctx, map[string]interface{}{"request_id": req.ID})
	return nil
}

func (r *requestRepository) GetByID(ctx context.Context, id string) (*models.Request, error) {
	var req models.Request
	err := cache.Aside(ctx, cache.RequestKey(id), &req, cache.RequestTTL, func() error {
		defer observability.TrackQuery("get", "requests")()
		return withActivity(readDB(r.db).WithContext(ctx)).
			Where("id = ?", id).
			First(&req).Error
	})
	if err != nil {
		return nil, translateError(err)
	}
	return &req, nil
}

func (r *requestRepository) GetByIDForUpdate(ctx context.Context, id string) (*models.Request, error) {
	defer observability.TrackQuery("get_for_update", "requests")()

	var req models.Request
	err := withActivity(r.db.WithContext(ctx)).
		Where("id = ?", id).
		First(&req).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &req, nil
}

func (r *requestRepository) Save(ctx context.Context, req *models.Request, expectedVersion int64) error {
	ctx, span := observability.GetTraceLayer().TraceRepositoryMethod(ctx, "Save", "requests")
	defer span.End()
	defer observability.TrackQuery("save", "requests")()

	if req.UpdatedAt.IsZero() {
		req.UpdatedAt = time.Now().UTC()
	}

	var fresh []models.ActivityEntry
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Request{}).
			Where("id = ? AND version = ?", req.ID, expectedVersion).
			Updates(requestColumns(req, expectedVersion+1))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrConflict
		}

		var persisted int64
		if err := tx.Model(&models.ActivityEntry{}).
			Where("request_id = ?", req.ID).
			Count(&persisted).Error; err != nil {
			return err
		}
		if int64(len(req.Activity)) < persisted {
			return fmt.Errorf("%w: ledger has %d entries, %d stored", ErrConflict, len(req.Activity), persisted)
		}

		for _, e := range req.Activity {
			if int64(e.Seq) < persisted {
				continue
			}
			e.ID = 0
			e.RequestID = req.ID
			fresh = append(fresh, e)
		}
		if len(fresh) == 0 {
			return nil
		}
		return tx.Create(&fresh).Error
	})
	if err != nil {
		span.RecordError(err)
		r.log.LogError(ctx, err, "save")
		err = translateError(err)
		if errors.Is(err, ErrConflict) {
			// Whatever snapshot the loser read may still be cached.
			cache.InvalidateRequest(ctx, req.ID)
		}
		return err
	}

	for _, e := range fresh {
		if e.Seq >= 0 && e.Seq < len(req.Activity) {
			req.Activity[e.Seq].ID = e.ID
			req.Activity[e.Seq].RequestID = req.ID
		}
	}
	req.Version = expectedVersion + 1
	cache.InvalidateRequest(ctx, req.ID)
	r.log.LogUpdate(ctx, map[string]interface{}{
		"request_id":  req.ID,
		"version":     req.Version,
		"new_entries": len(fresh),
	})
	return nil
}

func (r *requestRepository) Delete(ctx context.Context, id string, expectedVersion int64) error {
	defer observability.TrackQuery("delete", "requests")()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND version = ?", id, expectedVersion).Delete(&models.Request{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var n int64
			if err := tx.Model(&models.Request{}).Where("id = ?", id).Count(&n).Error; err != nil {
				return err
			}
			if n == 0 {
				return ErrNotFound
			}
			return ErrConflict
		}
		return tx.Where("request_id = ?", id).Delete(&models.ActivityEntry{}).Error
	})
	if err != nil {
		return translateError(err)
	}
	cache.InvalidateRequest(ctx, id)
	r.log.LogDelete(ctx, map[string]interface{}{"request_id": id})
	return nil
}

func (r *requestRepository) List(ctx context.Context, filter ListFilter) ([]*models.Request, error) {
	defer observability.TrackQuery("list", "requests")()

	var reqs []*models.Request
	err := applyFilter(withActivity(readDB(r.db).WithContext(ctx)), filter).
		Order("created_at DESC").
		Order("id").
		Find(&reqs).Error
	return reqs, translateError(err)
}

func (r *requestRepository) ListFiled(ctx context.Context, filter ListFilter) ([]*models.Request, error) {
	defer observability.TrackQuery("list_filed", "requests")()

	filed := true
	filter.Filed = &filed

	var reqs []*models.Request
	err := applyFilter(readDB(r.db).WithContext(ctx), filter).
		Order("filed_at").
		Order("id").
		Find(&reqs).Error
	return reqs, translateError(err)
}

func withActivity(db *gorm.DB) *gorm.DB {
	return db.Preload("Activity", func(db *gorm.DB) *gorm.DB {
		return db.Order("seq ASC")
	})
}

func applyFilter(db *gorm.DB, f ListFilter) *gorm.DB {
	if f.OwnerID != "" {
		db = db.Where("uploaded_by_id = ?", f.OwnerID)
	}
	if f.UnitUIC != "" {
		db = db.Where("unit_uic = ?", f.UnitUIC)
	}
	if f.InstallationID != "" {
		db = db.Where("installation_id = ?", f.InstallationID)
	}
	if f.RouteSection != "" {
		db = db.Where("route_section = ?", f.RouteSection)
	}
	if f.ExternalUnitUIC != "" {
		db = db.Where("external_pending_unit_uic = ?", f.ExternalUnitUIC)
	}
	if len(f.Stages) > 0 {
		db = db.Where("current_stage IN ?", f.Stages)
	}
	if f.Filed != nil {
		if *f.Filed {
			db = db.Where("filed_at IS NOT NULL")
		} else {
			db = db.Where("filed_at IS NULL")
		}
	}
	if f.Limit > 0 {
		db = db.Limit(f.Limit)
	}
	if f.Offset > 0 {
		db = db.Offset(f.Offset)
	}
	return db
}

// requestColumns lists every mutable column so zero values are written too.
func requestColumns(req *models.Request, version int64) map[string]interface{} {
	c := req.Classification
	return map[string]interface{}{
		"title":                      req.Title,
		"description":                req.Description,
		"installation_id":            req.InstallationID,
		"current_stage":              string(req.CurrentStage),
		"route_section":              req.RouteSection,
		"previous_section":           req.PreviousSection,
		"external_pending_unit_name": req.ExternalPendingUnitName,
		"external_pending_unit_uic":  req.ExternalPendingUnitUIC,
		"external_pending_stage":     req.ExternalPendingStage,
		"final_status":               req.FinalStatus,
		"ssic":                       c.SSIC,
		"nomenclature":               c.Nomenclature,
		"bucket":                     c.Bucket,
		"bucket_title":               c.BucketTitle,
		"is_permanent":               c.IsPermanent,
		"cutoff_trigger":             string(c.CutoffTrigger),
		"retention_value":            c.RetentionValue,
		"retention_unit":             string(c.RetentionUnit),
		"disposal_action":            c.DisposalAction,
		"filed_at":                   req.FiledAt,
		"version":                    version,
		"updated_at":                 req.UpdatedAt,
	}
}

// translateError maps driver errors onto the repository sentinels.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrConflict) || errors.Is(err, ErrNotFound) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505", "40001", "40P01":
			return fmt.Errorf("%w: %s", ErrConflict, pgErr.Message)
		}
	}
	return err
}
