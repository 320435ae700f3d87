package traits

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/vinceanalytics/tally/internal/db"
	"gorm.io/gorm"
)

// Store reads traits from the user_profiles table.
type Store struct {
	db *gorm.DB
}

var _ Lookup = (*Store)(nil)

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Traits(ctx context.Context, site int64, ids []string) (map[string]map[string]any, error) {
	var profiles []db.UserProfile
	err := s.db.WithContext(ctx).
		Select("user_id", "traits").
		Where("site_id = ?", site).
		Where("user_id IN ?", ids).
		Find(&profiles).Error
	if err != nil {
		return nil, fmt.Errorf("selecting user profiles %w", err)
	}
	o := make(map[string]map[string]any, len(profiles))
	for _, p := range profiles {
		o[p.UserID] = decode(p.Traits)
	}
	return o, nil
}

// Save creates or replaces the traits of a user.
func (s *Store) Save(ctx context.Context, site int64, id string, traits map[string]any) error {
	data, err := json.Marshal(traits)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Save(&db.UserProfile{
		SiteID: site,
		UserID: id,
		Traits: string(data),
	}).Error
}

// decode returns an empty mapping for anything that is not a JSON object.
func decode(data string) map[string]any {
	var o map[string]any
	if err := json.Unmarshal([]byte(data), &o); err != nil || o == nil {
		return map[string]any{}
	}
	return o
}
