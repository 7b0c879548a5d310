package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yourname/watchbuddy/internal/models"
)

// GormStore is the postgres engine. Open the DB with TranslateError enabled
// so unique-key violations surface as gorm.ErrDuplicatedKey.
type GormStore struct{ DB *gorm.DB }

func NewGorm(db *gorm.DB) *GormStore { return &GormStore{DB: db} }

// Migrate creates or updates the schema for all core entities.
func (s *GormStore) Migrate() error {
	if err := s.DB.AutoMigrate(
		&models.User{},
		&models.Session{},
		&models.Watchlist{},
		&models.WatchlistMember{},
		&models.WatchItem{},
		&models.Rating{},
	); err != nil {
		return err
	}
	// Usernames are unique case-insensitively. The pre-check in CreateUser
	// races under concurrent signups, so the database holds the invariant.
	return s.DB.Exec(
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username_lower ON users (LOWER(username))",
	).Error
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrConflict
	}
	return err
}

// Users

func (s *GormStore) CreateUser(ctx context.Context, u *models.User) error {
	var count int64
	if err := s.DB.WithContext(ctx).Model(&models.User{}).
		Where("LOWER(username) = LOWER(?)", u.Username).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrConflict
	}
	return translate(s.DB.WithContext(ctx).Create(u).Error)
}

func (s *GormStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := s.DB.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *GormStore) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	if err := s.DB.WithContext(ctx).First(&u, "LOWER(username) = LOWER(?)", username).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *GormStore) UpdateUserStatus(ctx context.Context, id, status string) error {
	res := s.DB.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) BumpSessionVersion(ctx context.Context, id string) error {
	res := s.DB.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).
		Update("session_version", gorm.Expr("session_version + 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Sessions

func (s *GormStore) PutSession(ctx context.Context, sess *models.Session) error {
	return translate(s.DB.WithContext(ctx).Create(sess).Error)
}

func (s *GormStore) GetSession(ctx context.Context, token string) (*models.Session, error) {
	var sess models.Session
	if err := s.DB.WithContext(ctx).First(&sess, "token = ?", token).Error; err != nil {
		return nil, translate(err)
	}
	return &sess, nil
}

func (s *GormStore) DeleteSession(ctx context.Context, token string) error {
	return s.DB.WithContext(ctx).Where("token = ?", token).Delete(&models.Session{}).Error
}

func (s *GormStore) DeleteExpiredSessions(ctx context.Context, now time.Time) error {
	return s.DB.WithContext(ctx).Where("expires_at <= ?", now).Delete(&models.Session{}).Error
}

// Watchlists

func (s *GormStore) CreateWatchlist(ctx context.Context, wl *models.Watchlist) error {
	return translate(s.DB.WithContext(ctx).Create(wl).Error)
}

func (s *GormStore) loadMembers(ctx context.Context, wl *models.Watchlist) error {
	ids := []string{}
	if err := s.DB.WithContext(ctx).Model(&models.WatchlistMember{}).
		Where("watchlist_id = ?", wl.ID).Order("created_at ASC").
		Pluck("user_id", &ids).Error; err != nil {
		return err
	}
	wl.MemberIDs = ids
	return nil
}

func (s *GormStore) GetWatchlist(ctx context.Context, id string) (*models.Watchlist, error) {
	var wl models.Watchlist
	if err := s.DB.WithContext(ctx).First(&wl, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	if err := s.loadMembers(ctx, &wl); err != nil {
		return nil, err
	}
	return &wl, nil
}

func (s *GormStore) GetWatchlistByInviteCode(ctx context.Context, code string) (*models.Watchlist, error) {
	var wl models.Watchlist
	if err := s.DB.WithContext(ctx).First(&wl, "invite_code = ?", code).Error; err != nil {
		return nil, translate(err)
	}
	if err := s.loadMembers(ctx, &wl); err != nil {
		return nil, err
	}
	return &wl, nil
}

func (s *GormStore) ListWatchlistsForUser(ctx context.Context, userID string) ([]models.Watchlist, error) {
	var out []models.Watchlist
	sub := s.DB.Model(&models.WatchlistMember{}).Select("watchlist_id").Where("user_id = ?", userID)
	if err := s.DB.WithContext(ctx).
		Where("owner_id = ? OR id IN (?)", userID, sub).
		Order("updated_at DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	for i := range out {
		if err := s.loadMembers(ctx, &out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *GormStore) SetInviteCode(ctx context.Context, watchlistID, code string) error {
	res := s.DB.WithContext(ctx).Model(&models.Watchlist{}).
		Where("id = ?", watchlistID).Update("invite_code", code)
	if err := translate(res.Error); err != nil {
		return err
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) AddMember(ctx context.Context, watchlistID, userID string) error {
	m := &models.WatchlistMember{WatchlistID: watchlistID, UserID: userID}
	return s.DB.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(m).Error
}

func (s *GormStore) RemoveMemberAndItems(ctx context.Context, watchlistID, userID string) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("watchlist_id = ? AND user_id = ?", watchlistID, userID).
			Delete(&models.WatchlistMember{}).Error; err != nil {
			return err
		}
		var itemIDs []string
		if err := tx.Model(&models.WatchItem{}).
			Where("watchlist_id = ? AND added_by = ?", watchlistID, userID).
			Pluck("id", &itemIDs).Error; err != nil {
			return err
		}
		if len(itemIDs) == 0 {
			return nil
		}
		if err := tx.Where("item_id IN ?", itemIDs).Delete(&models.Rating{}).Error; err != nil {
			return err
		}
		return tx.Where("id IN ?", itemIDs).Delete(&models.WatchItem{}).Error
	})
}

// Items

func (s *GormStore) CreateItem(ctx context.Context, it *models.WatchItem) error {
	var count int64
	if err := s.DB.WithContext(ctx).Model(&models.WatchItem{}).
		Where("watchlist_id = ? AND external_id = ?", it.WatchlistID, it.ExternalID).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrConflict
	}
	return translate(s.DB.WithContext(ctx).Create(it).Error)
}

func (s *GormStore) GetItem(ctx context.Context, watchlistID, itemID string) (*models.WatchItem, error) {
	var it models.WatchItem
	if err := s.DB.WithContext(ctx).
		First(&it, "id = ? AND watchlist_id = ?", itemID, watchlistID).Error; err != nil {
		return nil, translate(err)
	}
	return &it, nil
}

func (s *GormStore) ListItems(ctx context.Context, watchlistID string) ([]models.WatchItem, error) {
	var out []models.WatchItem
	if err := s.DB.WithContext(ctx).Where("watchlist_id = ?", watchlistID).
		Order("order_index ASC, id ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (s *GormStore) UpdateItemStatus(ctx context.Context, watchlistID, itemID, status string) error {
	res := s.DB.WithContext(ctx).Model(&models.WatchItem{}).
		Where("id = ? AND watchlist_id = ?", itemID, watchlistID).Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) DeleteItem(ctx context.Context, watchlistID, itemID string) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND watchlist_id = ?", itemID, watchlistID).Delete(&models.WatchItem{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return tx.Where("item_id = ?", itemID).Delete(&models.Rating{}).Error
	})
}

func (s *GormStore) NextOrderIndex(ctx context.Context, watchlistID string, step int) (int, error) {
	var next int
	err := s.DB.WithContext(ctx).Model(&models.WatchItem{}).
		Where("watchlist_id = ?", watchlistID).
		Select("COALESCE(MAX(order_index), ?) + ?", -step, step).
		Scan(&next).Error
	return next, err
}

func (s *GormStore) ReorderItems(ctx context.Context, watchlistID string, orderedIDs []string, step int) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i, id := range orderedIDs {
			res := tx.Model(&models.WatchItem{}).
				Where("id = ? AND watchlist_id = ?", id, watchlistID).
				Update("order_index", i*step)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				// Unknown id: abort, rolling back every position written so far.
				return ErrNotFound
			}
		}
		return nil
	})
}

// Ratings

func (s *GormStore) UpsertRating(ctx context.Context, r *models.Rating) error {
	return s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "item_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"score", "updated_at"}),
	}).Create(r).Error
}

func (s *GormStore) DeleteRating(ctx context.Context, itemID, userID string) error {
	return s.DB.WithContext(ctx).
		Where("item_id = ? AND user_id = ?", itemID, userID).Delete(&models.Rating{}).Error
}

func (s *GormStore) GetRating(ctx context.Context, itemID, userID string) (*models.Rating, error) {
	var r models.Rating
	if err := s.DB.WithContext(ctx).
		First(&r, "item_id = ? AND user_id = ?", itemID, userID).Error; err != nil {
		return nil, translate(err)
	}
	return &r, nil
}

func (s *GormStore) ListItemRatings(ctx context.Context, itemID string) ([]models.RatingWithUser, error) {
	out := []models.RatingWithUser{}
	if err := s.DB.WithContext(ctx).Table("ratings").
		Select("ratings.user_id, users.username, ratings.score").
		Joins("JOIN users ON users.id = ratings.user_id").
		Where("ratings.item_id = ?", itemID).
		Order("users.username ASC").
		Scan(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
