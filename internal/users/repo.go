package users

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/supplyhub/marketplace-backend/pkg/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrEmailTaken is returned by Create when another account owns the email.
var ErrEmailTaken = errors.New("email already registered")

// profileColumns are the only columns UpdateProfile will write.
var profileColumns = []string{"first_name", "middle_name", "last_name", "company", "position"}

// NormalizeEmail is the canonical form emails are stored and looked up in.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Repository persists user accounts. Bind it to a transaction by passing the
// tx handle to NewRepository.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) users(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.User{})
}

// Create inserts the account, returning ErrEmailTaken instead of a driver
// error when the email is already in use.
func (r *Repository) Create(ctx context.Context, dto CreateUserDTO) (*models.User, error) {
	user := dto.ToModel()
	user.Email = NormalizeEmail(user.Email)
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(user)
	switch {
	case res.Error != nil:
		return nil, res.Error
	case res.RowsAffected == 0:
		return nil, ErrEmailTaken
	}
	return user, nil
}

func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.users(ctx).Where("email = ?", NormalizeEmail(email)).Take(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.users(ctx).Where("id = ?", id).Take(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *Repository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.users(ctx).Where("id = ?", id).UpdateColumn("last_login_at", at.UTC()).Error
}

// UpdatePasswordHash swaps in a rehashed password after a successful login.
func (r *Repository) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	return r.users(ctx).Where("id = ?", id).UpdateColumn("password_hash", hash).Error
}

// UpdateProfile writes the profile columns present in updates and reports the
// affected row count. Keys outside the profile columns are ignored.
func (r *Repository) UpdateProfile(ctx context.Context, id uuid.UUID, updates map[string]any) (int64, error) {
	allowed := make(map[string]any, len(updates))
	for _, col := range profileColumns {
		if v, ok := updates[col]; ok {
			allowed[col] = v
		}
	}
	if len(allowed) == 0 {
		return 0, nil
	}
	res := r.users(ctx).Where("id = ?", id).Updates(allowed)
	return res.RowsAffected, res.Error
}

// ListShopManagers returns the distinct owners of the given shops.
func (r *Repository) ListShopManagers(ctx context.Context, shopIDs []int64) ([]uuid.UUID, error) {
	if len(shopIDs) == 0 {
		return nil, nil
	}
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.Shop{}).
		Where("id IN ?", shopIDs).
		Where("user_id IS NOT NULL").
		Distinct("user_id").
		Pluck("user_id", &ids).Error
	return ids, err
}
