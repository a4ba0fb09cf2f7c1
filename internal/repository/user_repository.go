package repository

import (
	"github.com/yukikurage/tasktide/internal/models"
	"gorm.io/gorm"
)

// GormUserRepository is a GORM implementation of UserRepository
type GormUserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &GormUserRepository{db: db}
}

// Create creates a new credential record. A taken username surfaces as
// gorm.ErrDuplicatedKey.
func (r *GormUserRepository) Create(user *models.User) error {
	return r.db.Create(user).Error
}

// FindByUsername finds a user by username
func (r *GormUserRepository) FindByUsername(username string) (*models.User, error) {
	var user models.User
	if err := r.db.Where("username = ?", username).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdatePassword replaces the stored hash and salt
func (r *GormUserRepository) UpdatePassword(username, hash, salt string) error {
	res := r.db.Model(&models.User{}).
		Where("username = ?", username).
		Updates(map[string]any{"password_hash": hash, "salt": salt})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete removes a user
func (r *GormUserRepository) Delete(username string) error {
	res := r.db.Where("username = ?", username).Delete(&models.User{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// List returns every user ordered by username
func (r *GormUserRepository) List() ([]models.User, error) {
	users := []models.User{}
	if err := r.db.Order("username").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}
