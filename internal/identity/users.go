package identity

import (
	"context"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"
	"gorm.io/gorm"

	"github.com/ummitifli/storefront/internal/domain"
)

// ErrUserNotFound is returned by repositories for unknown users.
var ErrUserNotFound = errors.New("user not found")

// UserRepository persists local accounts.
type UserRepository interface {
	// Create inserts a user, ErrEmailTaken when the address exists
	Create(ctx context.Context, u *domain.AuthUser) error

	// GetByID retrieves a user by id
	GetByID(ctx context.Context, id string) (*domain.AuthUser, error)

	// GetByEmail retrieves a user by normalized email
	GetByEmail(ctx context.Context, email string) (*domain.AuthUser, error)

	// GetByVerifyToken retrieves the user waiting on a verification token
	GetByVerifyToken(ctx context.Context, token string) (*domain.AuthUser, error)

	// Update saves every column of u
	Update(ctx context.Context, u *domain.AuthUser) error
}

// GormUserRepository is the GORM implementation of UserRepository
type GormUserRepository struct {
	db *gorm.DB
}

func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

func (r *GormUserRepository) Create(ctx context.Context, u *domain.AuthUser) error {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.AuthUser{}).Where("email = ?", u.Email).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrEmailTaken
	}
	return r.db.WithContext(ctx).Create(u).Error
}

func (r *GormUserRepository) first(ctx context.Context, query string, arg interface{}) (*domain.AuthUser, error) {
	var u domain.AuthUser
	err := r.db.WithContext(ctx).Where(query, arg).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *GormUserRepository) GetByID(ctx context.Context, id string) (*domain.AuthUser, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *GormUserRepository) GetByEmail(ctx context.Context, email string) (*domain.AuthUser, error) {
	return r.first(ctx, "email = ?", email)
}

func (r *GormUserRepository) GetByVerifyToken(ctx context.Context, token string) (*domain.AuthUser, error) {
	if token == "" {
		return nil, ErrUserNotFound
	}
	return r.first(ctx, "verify_token = ?", token)
}

func (r *GormUserRepository) Update(ctx context.Context, u *domain.AuthUser) error {
	return r.db.WithContext(ctx).Save(u).Error
}

var usersBucket = []byte("auth_users")

// BoltUserRepository stores users as JSON keyed by id. Lookups by email or
// token scan the bucket, which stays small for a single shop.
type BoltUserRepository struct {
	db *bolt.DB
}

func NewBoltUserRepository(db *bolt.DB) (*BoltUserRepository, error) {
	err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(usersBucket)
		return err
	})
	if err != nil {
		return nil, errors.Wrap(err, "create auth_users bucket")
	}
	return &BoltUserRepository{db: db}, nil
}

// boltUser mirrors AuthUser with the secret columns exported to JSON.
type boltUser struct {
	domain.AuthUser
	Password    string `json:"password"`
	VerifyToken string `json:"verify_token"`
}

func (r *BoltUserRepository) put(u *domain.AuthUser) error {
	data, err := jsoniter.Marshal(boltUser{AuthUser: *u, Password: u.Password, VerifyToken: u.VerifyToken})
	if err != nil {
		return err
	}
	return r.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(usersBucket).Put([]byte(u.ID), data)
	})
}

func decodeBoltUser(v []byte) (*domain.AuthUser, error) {
	var bu boltUser
	if err := jsoniter.Unmarshal(v, &bu); err != nil {
		return nil, err
	}
	u := bu.AuthUser
	u.Password = bu.Password
	u.VerifyToken = bu.VerifyToken
	return &u, nil
}

func (r *BoltUserRepository) scan(match func(u *domain.AuthUser) bool) (*domain.AuthUser, error) {
	var found *domain.AuthUser
	err := r.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(usersBucket).ForEach(func(_, v []byte) error {
			if found != nil {
				return nil
			}
			u, err := decodeBoltUser(v)
			if err != nil {
				return err
			}
			if match(u) {
				found = u
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, ErrUserNotFound
	}
	return found, nil
}

func (r *BoltUserRepository) Create(_ context.Context, u *domain.AuthUser) error {
	if _, err := r.scan(func(x *domain.AuthUser) bool { return x.Email == u.Email }); err == nil {
		return ErrEmailTaken
	}
	return r.put(u)
}

func (r *BoltUserRepository) GetByID(_ context.Context, id string) (*domain.AuthUser, error) {
	var u *domain.AuthUser
	err := r.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(usersBucket).Get([]byte(id))
		if v == nil {
			return ErrUserNotFound
		}
		var err error
		u, err = decodeBoltUser(v)
		return err
	})
	return u, err
}

func (r *BoltUserRepository) GetByEmail(_ context.Context, email string) (*domain.AuthUser, error) {
	return r.scan(func(u *domain.AuthUser) bool { return u.Email == email })
}

func (r *BoltUserRepository) GetByVerifyToken(_ context.Context, token string) (*domain.AuthUser, error) {
	if token == "" {
		return nil, ErrUserNotFound
	}
	return r.scan(func(u *domain.AuthUser) bool { return u.VerifyToken == token })
}

func (r *BoltUserRepository) Update(_ context.Context, u *domain.AuthUser) error {
	return r.put(u)
}

// MemoryUserRepository keeps users in process.
type MemoryUserRepository struct {
	mu    sync.Mutex
	users map[string]domain.AuthUser
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{users: make(map[string]domain.AuthUser)}
}

func (r *MemoryUserRepository) Create(_ context.Context, u *domain.AuthUser) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, x := range r.users {
		if x.Email == u.Email {
			return ErrEmailTaken
		}
	}
	r.users[u.ID] = *u
	return nil
}

func (r *MemoryUserRepository) match(fn func(u domain.AuthUser) bool) (*domain.AuthUser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if fn(u) {
			u := u
			return &u, nil
		}
	}
	return nil, ErrUserNotFound
}

func (r *MemoryUserRepository) GetByID(_ context.Context, id string) (*domain.AuthUser, error) {
	return r.match(func(u domain.AuthUser) bool { return u.ID == id })
}

func (r *MemoryUserRepository) GetByEmail(_ context.Context, email string) (*domain.AuthUser, error) {
	return r.match(func(u domain.AuthUser) bool { return u.Email == email })
}

func (r *MemoryUserRepository) GetByVerifyToken(_ context.Context, token string) (*domain.AuthUser, error) {
	if token == "" {
		return nil, ErrUserNotFound
	}
	return r.match(func(u domain.AuthUser) bool { return u.VerifyToken == token })
}

func (r *MemoryUserRepository) Update(_ context.Context, u *domain.AuthUser) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[u.ID]; !ok {
		return ErrUserNotFound
	}
	r.users[u.ID] = *u
	return nil
}
