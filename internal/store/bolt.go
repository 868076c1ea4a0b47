package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"

	"github.com/ummitifli/storefront/internal/domain"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ProductsBucket holds one JSON document per product keyed by id.
var ProductsBucket = []byte("products")

// BoltStore keeps products in an embedded bbolt file.
type BoltStore struct {
	db *bolt.DB
}

// OpenBoltStore opens or creates the database file at path.
func OpenBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 3 * time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "open bolt %s", path)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(ProductsBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "create products bucket")
	}
	return &BoltStore{db: db}, nil
}

// DB exposes the handle so other repositories can keep their buckets in the same file.
func (s *BoltStore) DB() *bolt.DB {
	return s.db
}

func (s *BoltStore) List(ctx context.Context, q Query) ([]domain.Product, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	var rows []domain.Product
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(ProductsBucket).ForEach(func(_, v []byte) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			var p domain.Product
			if err := json.Unmarshal(v, &p); err != nil {
				return err
			}
			if q.match(p) {
				rows = append(rows, p)
			}
			return nil
		})
	})
	if err != nil {
		return nil, errors.Wrap(err, "scan products")
	}
	sortRows(rows, q.Order)
	return rows, nil
}

func (s *BoltStore) Insert(ctx context.Context, in domain.ProductInput) (domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return domain.Product{}, err
	}
	p := domain.NewProduct(uuid.NewString(), in, time.Now())
	err := s.db.Update(func(tx *bolt.Tx) error {
		return putProduct(tx, p)
	})
	if err != nil {
		return domain.Product{}, errors.Wrap(err, "insert product")
	}
	return p, nil
}

func (s *BoltStore) Update(ctx context.Context, id string, patch domain.ProductPatch) (domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return domain.Product{}, err
	}
	var p domain.Product
	err := s.db.Update(func(tx *bolt.Tx) error {
		v := tx.Bucket(ProductsBucket).Get([]byte(id))
		if v == nil {
			return ErrNotFound
		}
		if err := json.Unmarshal(v, &p); err != nil {
			return err
		}
		patch.Apply(&p)
		ts := time.Now()
		p.UpdatedAt = &ts
		return putProduct(tx, p)
	})
	if errors.Is(err, ErrNotFound) {
		return domain.Product{}, ErrNotFound
	}
	if err != nil {
		return domain.Product{}, errors.Wrap(err, "update product")
	}
	return p, nil
}

func (s *BoltStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(ProductsBucket).Delete([]byte(id))
	})
	return errors.Wrap(err, "delete product")
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

func putProduct(tx *bolt.Tx, p domain.Product) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return tx.Bucket(ProductsBucket).Put([]byte(p.ID), data)
}
