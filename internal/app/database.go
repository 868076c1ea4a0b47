package app

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ummitifli/storefront/config"
	"github.com/ummitifli/storefront/internal/admin"
	"github.com/ummitifli/storefront/internal/identity"
	"github.com/ummitifli/storefront/internal/store"
)

// backend groups the repositories living in one data store.
type backend struct {
	db    *gorm.DB
	store store.Store
	users identity.UserRepository
	logs  admin.LogRepository
}

// openBackend selects the product store by database type. Users and the admin
// log share the store's database when it has one, memory otherwise.
func openBackend(cfg *config.AppConfig) (backend, error) {
	switch cfg.Database.Type {
	case "postgres":
		db, err := getDatabase(cfg.Database)
		if err != nil {
			return backend{}, err
		}
		return backend{
			db:    db,
			store: store.NewGormStore(db),
			users: identity.NewGormUserRepository(db),
			logs:  admin.NewGormLogRepository(db),
		}, nil
	case "bolt":
		bs, err := store.OpenBoltStore(cfg.BoltPath())
		if err != nil {
			return backend{}, err
		}
		users, err := identity.NewBoltUserRepository(bs.DB())
		if err != nil {
			_ = bs.Close()
			return backend{}, err
		}
		logs, err := admin.NewBoltLogRepository(bs.DB())
		if err != nil {
			_ = bs.Close()
			return backend{}, err
		}
		return backend{store: bs, users: users, logs: logs}, nil
	case "rest":
		if cfg.Rest.URL == "" {
			return backend{}, errors.New("rest.url is required for the rest backend")
		}
		return backend{
			store: store.NewRestStore(cfg.Rest.URL, cfg.Rest.APIKey, cfg.RestTimeout()),
			users: identity.NewMemoryUserRepository(),
			logs:  admin.NewMemoryLogRepository(),
		}, nil
	case "memory":
		return backend{
			store: store.NewMemoryStore(),
			users: identity.NewMemoryUserRepository(),
			logs:  admin.NewMemoryLogRepository(),
		}, nil
	}
	return backend{}, errors.Errorf("unsupported database type %q", cfg.Database.Type)
}

func getDatabase(cfg config.DBConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable TimeZone=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Passwd, cfg.Name, time.Local.String())
	level := logger.Warn
	if cfg.Debug {
		level = logger.Info
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:                 logger.Default.LogMode(level),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "open postgres")
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "postgres pool")
	}
	sqlDB.SetMaxOpenConns(cfg.MaxConn)
	sqlDB.SetMaxIdleConns(cfg.IdleConn)
	sqlDB.SetConnMaxLifetime(time.Hour)
	zap.S().Infof("Connected to postgres %s:%d/%s", cfg.Host, cfg.Port, cfg.Name)
	return db, nil
}
