package repository

import (
	"errors"

	"gorm.io/gorm"

	"github.com/parkcw/mboard/models"
)

// ErrNotFound is returned when a lookup matches no member.
var ErrNotFound = errors.New("record not found")

// Members is the data-access surface for member records. Mutating operations
// report affected-row counts so callers can distinguish a no-op from success.
type Members interface {
	Insert(m *models.Member) (int64, error)
	PasswordHash(username string) (string, error)
	Find(username string) (*models.Member, error)
	// Update rewrites name and email for the given member; newPasswordHash
	// replaces the stored hash only when non-empty.
	Update(username, name, email, newPasswordHash string) (int64, error)
	Delete(username string) (int64, error)
}

// GormMembers implements Members on a gorm connection.
type GormMembers struct {
	db *gorm.DB
}

// NewGormMembers creates a Members implementation backed by db.
func NewGormMembers(db *gorm.DB) *GormMembers {
	return &GormMembers{db: db}
}

func (r *GormMembers) Insert(m *models.Member) (int64, error) {
	res := r.db.Create(m)
	return res.RowsAffected, res.Error
}

func (r *GormMembers) PasswordHash(username string) (string, error) {
	var m models.Member
	err := r.db.Select("password_hash").Where("username = ?", username).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return m.PasswordHash, nil
}

func (r *GormMembers) Find(username string) (*models.Member, error) {
	var m models.Member
	err := r.db.Where("username = ?", username).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *GormMembers) Update(username, name, email, newPasswordHash string) (int64, error) {
	updates := map[string]interface{}{
		"name":  name,
		"email": email,
	}
	if newPasswordHash != "" {
		updates["password_hash"] = newPasswordHash
	}
	res := r.db.Model(&models.Member{}).Where("username = ?", username).Updates(updates)
	return res.RowsAffected, res.Error
}

func (r *GormMembers) Delete(username string) (int64, error) {
	// Hard delete: the member model has no soft-delete column.
	res := r.db.Where("username = ?", username).Delete(&models.Member{})
	return res.RowsAffected, res.Error
}
