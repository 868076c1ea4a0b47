package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/ummitifli/storefront/internal/domain"
)

// GormStore is the GORM implementation of Store
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-based store
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// DB exposes the handle so other repositories can share the connection pool.
func (s *GormStore) DB() *gorm.DB {
	return s.db
}

func (s *GormStore) List(ctx context.Context, q Query) ([]domain.Product, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	tx := s.db.WithContext(ctx).Model(&domain.Product{})
	for _, f := range q.Filters {
		tx = tx.Where(f.Column+" = ?", f.Value)
	}
	for _, o := range q.Order {
		dir := " ASC"
		if o.Desc {
			dir = " DESC"
		}
		tx = tx.Order(o.Column + dir)
	}
	var rows []domain.Product
	if err := tx.Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "select products")
	}
	return rows, nil
}

func (s *GormStore) Insert(ctx context.Context, in domain.ProductInput) (domain.Product, error) {
	p := domain.NewProduct(uuid.NewString(), in, time.Now())
	if err := s.db.WithContext(ctx).Create(&p).Error; err != nil {
		return domain.Product{}, errors.Wrap(err, "insert product")
	}
	return p, nil
}

func (s *GormStore) Update(ctx context.Context, id string, patch domain.ProductPatch) (domain.Product, error) {
	cols := patch.Columns()
	cols["updated_at"] = time.Now()
	res := s.db.WithContext(ctx).Model(&domain.Product{}).Where("id = ?", id).Updates(cols)
	if res.Error != nil {
		return domain.Product{}, errors.Wrap(res.Error, "update product")
	}
	if res.RowsAffected == 0 {
		return domain.Product{}, ErrNotFound
	}
	var p domain.Product
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Product{}, ErrNotFound
	}
	if err != nil {
		return domain.Product{}, errors.Wrap(err, "reload product")
	}
	return p, nil
}

func (s *GormStore) Delete(ctx context.Context, id string) error {
	err := s.db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Product{}).Error
	return errors.Wrap(err, "delete product")
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
