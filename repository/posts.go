package repository

import (
	"gorm.io/gorm"

	"github.com/parkcw/mboard/models"
)

// Posts is the data-access surface for board posts.
type Posts interface {
	Insert(p *models.Post) (int64, error)
}

// GormPosts implements Posts on a gorm connection.
type GormPosts struct {
	db *gorm.DB
}

// NewGormPosts creates a Posts implementation backed by db.
func NewGormPosts(db *gorm.DB) *GormPosts {
	return &GormPosts{db: db}
}

func (r *GormPosts) Insert(p *models.Post) (int64, error) {
	res := r.db.Create(p)
	return res.RowsAffected, res.Error
}
