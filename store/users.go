// Package store keeps the small amount of state this service owns locally.
package store

import (
	"context"
	"errors"

	"github.com/elcascavel/tassi-frontend/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserStore caches Auth0 subject to backend user id mappings.
type UserStore struct {
	*gorm.DB
}

// Lookup returns the cached link for authID, if any.
func (s *UserStore) Lookup(ctx context.Context, authID string) (models.UserLink, bool, error) {
	var link models.UserLink
	err := s.WithContext(ctx).Where("auth_id = ?", authID).First(&link).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.UserLink{}, false, nil
	}
	if err != nil {
		return models.UserLink{}, false, err
	}
	return link, true, nil
}

// Save inserts or refreshes the link for link.AuthID.
func (s *UserStore) Save(ctx context.Context, link *models.UserLink) error {
	if link.ID != 0 {
		return s.WithContext(ctx).Save(link).Error
	}
	return s.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "auth_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"user_id", "name", "updated_at"}),
	}).Create(link).Error
}

// ForgetUserID drops every link to backend user id, so the next request of
// that subject registers again.
func (s *UserStore) ForgetUserID(ctx context.Context, userID int64) error {
	return s.WithContext(ctx).Unscoped().Where("user_id = ?", userID).Delete(&models.UserLink{}).Error
}
