// Package imports manages bulk import records and their uploaded files.
package imports

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"slices"
	"strconv"

	"github.com/google/uuid"
	"github.com/thanos-io/objstore"
	"github.com/vinceanalytics/tally/internal/core"
	"github.com/vinceanalytics/tally/internal/db"
	"github.com/vinceanalytics/tally/internal/expr"
	"github.com/vinceanalytics/tally/internal/logger"
	"github.com/vinceanalytics/tally/internal/store"
	"gorm.io/gorm"
)

var Platforms = []string{"umami", "plausible", "simple_analytics"}

type Service struct {
	DB     *gorm.DB
	Store  store.Querier
	Bucket objstore.Bucket
}

func New(g *gorm.DB, q store.Querier, b objstore.Bucket) *Service {
	return &Service{DB: g, Store: q, Bucket: b}
}

// Location is the bucket key of an import file.
func Location(id, fileName string) string {
	return path.Join("imports", id, path.Base(fileName))
}

func (s *Service) Create(ctx context.Context, site int64, platform string) (*db.Import, error) {
	if site < 1 {
		return nil, core.ErrValidation.New("site id must be positive")
	}
	if !slices.Contains(Platforms, platform) {
		return nil, core.ErrValidation.New("unknown platform " + strconv.Quote(platform))
	}
	imp := &db.Import{
		ID:       uuid.NewString(),
		SiteID:   site,
		Platform: platform,
		Status:   db.ImportPending,
	}
	if err := s.DB.WithContext(ctx).Create(imp).Error; err != nil {
		return nil, fmt.Errorf("creating import %w", err)
	}
	logger.Get(ctx).Info("created import", "site", site, "import", imp.ID, "platform", platform)
	return imp, nil
}

func (s *Service) List(ctx context.Context, site int64) ([]db.Import, error) {
	var o []db.Import
	err := s.DB.WithContext(ctx).
		Where("site_id = ?", site).
		Order("created_at DESC").
		Find(&o).Error
	if err != nil {
		return nil, fmt.Errorf("listing imports %w", err)
	}
	return o, nil
}

// Get returns the import id of site.
func (s *Service) Get(ctx context.Context, site int64, id string) (*db.Import, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, core.ErrValidation.New("import id must be a uuid")
	}
	var imp db.Import
	err := s.DB.WithContext(ctx).First(&imp, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, core.ErrNotFound.New("import not found")
		}
		return nil, fmt.Errorf("reading import %w", err)
	}
	if imp.SiteID != site {
		return nil, core.ErrNotFound.New("import not found")
	}
	return &imp, nil
}

func (s *Service) SetStatus(ctx context.Context, id string, status db.ImportStatus) error {
	return s.DB.WithContext(ctx).Model(&db.Import{ID: id}).Update("status", status).Error
}

// Upload stores the file of a pending import.
func (s *Service) Upload(ctx context.Context, site int64, id, fileName string, r io.Reader) (*db.Import, error) {
	imp, err := s.Get(ctx, site, id)
	if err != nil {
		return nil, err
	}
	if imp.Status != db.ImportPending {
		return nil, core.ErrConflict.New("import is not pending")
	}
	name := path.Base(fileName)
	if name == "." || name == "/" || name == "" {
		return nil, core.ErrValidation.New("file name is required")
	}
	if err := s.Bucket.Upload(ctx, Location(id, name), r); err != nil {
		return nil, fmt.Errorf("uploading import file %w", err)
	}
	imp.FileName = name
	if err := s.DB.WithContext(ctx).Model(imp).Update("file_name", name).Error; err != nil {
		return nil, fmt.Errorf("saving import file name %w", err)
	}
	return imp, nil
}

// Delete removes an import, the events it created and its file. Active
// imports are refused. The record goes first so a failure leaves the events
// in place.
func (s *Service) Delete(ctx context.Context, site int64, id string) error {
	imp, err := s.Get(ctx, site, id)
	if err != nil {
		return err
	}
	if imp.Status.Active() {
		return core.ErrConflict.New("cannot delete active import")
	}
	if err := s.DB.WithContext(ctx).Delete(imp).Error; err != nil {
		return fmt.Errorf("deleting import record %w", err)
	}
	if err := s.Store.Exec(ctx, deleteEvents(site, id)); err != nil {
		return fmt.Errorf("deleting imported events %w", err)
	}
	log := logger.Get(ctx)
	if imp.FileName != "" {
		err := s.Bucket.Delete(ctx, Location(id, imp.FileName))
		if err != nil && !s.Bucket.IsObjNotFoundErr(err) {
			log.Warn("failed deleting import file", "import", id, "err", err)
		}
	}
	log.Info("deleted import", "site", site, "import", id)
	return nil
}

func deleteEvents(site int64, id string) store.Statement {
	p := expr.NewParams()
	p.Set("importId", id)
	p.Set("siteId", strconv.FormatInt(site, 10))
	return store.Statement{
		Name:   "delete_import",
		SQL:    "DELETE FROM events WHERE import_id = {importId:String} AND site_id = {siteId:Int64}",
		Params: p,
	}
}
