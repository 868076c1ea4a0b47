package app

import (
	"context"
	"os"
	"runtime/debug"
	"time"
	_ "time/tzdata"

	"github.com/asaskevich/EventBus"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
	"gorm.io/gorm"

	"github.com/ummitifli/storefront/config"
	"github.com/ummitifli/storefront/internal/admin"
	"github.com/ummitifli/storefront/internal/adminapi"
	"github.com/ummitifli/storefront/internal/cart"
	"github.com/ummitifli/storefront/internal/catalog"
	"github.com/ummitifli/storefront/internal/domain"
	"github.com/ummitifli/storefront/internal/identity"
	"github.com/ummitifli/storefront/internal/store"
)

// AuditNodeID is the snowflake node of this process.
const AuditNodeID int64 = 1

type Application struct {
	appConfig *config.AppConfig
	gormDB    *gorm.DB
	store     store.Store
	bus       EventBus.Bus
	sched     *cron.Cron
	jobs      []*namedJob

	catalog  *catalog.Catalog
	carts    *cart.Registry
	gateway  *admin.Gateway
	forms    *admin.Forms
	auditor  *admin.Auditor
	identity identity.Provider
}

// Ensure Application implements all interfaces
var (
	_ ConfigProvider     = (*Application)(nil)
	_ StoreProvider      = (*Application)(nil)
	_ SchedulerProvider  = (*Application)(nil)
	_ AppContext         = (*Application)(nil)
	_ adminapi.JobRunner = (*Application)(nil)
)

func NewApplication(appConfig *config.AppConfig) *Application {
	return &Application{appConfig: appConfig}
}

func (a *Application) Config() *config.AppConfig {
	return a.appConfig
}

// DB is nil unless the postgres backend is selected.
func (a *Application) DB() *gorm.DB {
	return a.gormDB
}

func (a *Application) Store() store.Store {
	return a.store
}

func (a *Application) Bus() EventBus.Bus {
	return a.bus
}

func (a *Application) Catalog() *catalog.Catalog {
	return a.catalog
}

func (a *Application) Carts() *cart.Registry {
	return a.carts
}

func (a *Application) Gateway() *admin.Gateway {
	return a.gateway
}

func (a *Application) Forms() *admin.Forms {
	return a.forms
}

func (a *Application) Auditor() *admin.Auditor {
	return a.auditor
}

func (a *Application) Identity() identity.Provider {
	return a.identity
}

// Scheduler returns the cron scheduler
func (a *Application) Scheduler() *cron.Cron {
	return a.sched
}

func (a *Application) Init(cfg *config.AppConfig) error {
	loc, err := time.LoadLocation(cfg.System.Location)
	if err != nil {
		zap.S().Error("timezone config error")
	} else {
		time.Local = loc
	}

	initLogger(cfg)

	if cfg.Database.Type == "" {
		cfg.Database.Type = "memory"
	}
	backend, err := openBackend(cfg)
	if err != nil {
		return err
	}
	a.gormDB = backend.db
	a.store = backend.store
	zap.S().Infof("Data store ready, type: %s", cfg.Database.Type)

	if a.gormDB != nil {
		// Ensure database schema is migrated before serving
		if err := a.MigrateDB(false); err != nil {
			zap.S().Errorf("database migration failed: %v", err)
		}
	}

	a.bus = EventBus.New()
	a.catalog = catalog.New(a.store, a.bus)
	a.carts = cart.NewRegistry()
	a.auditor, err = admin.NewAuditor(backend.logs, AuditNodeID)
	if err != nil {
		return err
	}
	a.gateway = admin.NewGateway(a.store, a.catalog, a.auditor)
	a.forms = admin.NewForms(a.gateway)
	a.identity = newIdentity(cfg, backend.users, a.bus)
	a.subscribeAuth()

	a.checkProducts()
	if err := a.catalog.Load(context.Background()); err != nil {
		// the storefront starts with an empty catalog and the reload job retries
		zap.S().Warnf("initial catalog load failed: %v", err)
	}

	a.initJob()
	return nil
}

// initLogger builds the global zap logger, tee'd to a rotating file when enabled.
func initLogger(cfg *config.AppConfig) {
	var zapConfig zap.Config
	if cfg.Logger.Mode == "production" {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
	}
	zapConfig.OutputPaths = []string{"stdout"}

	var logger *zap.Logger
	if cfg.Logger.FileEnable {
		lumberJackLogger := &lumberjack.Logger{
			Filename:   cfg.Logger.Filename,
			MaxSize:    64,
			MaxBackups: 7,
			MaxAge:     7,
			Compress:   false,
		}
		core := zapcore.NewTee(
			zapcore.NewCore(
				zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
				zapcore.AddSync(lumberJackLogger),
				zapConfig.Level,
			),
			zapcore.NewCore(
				zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
				zapcore.AddSync(os.Stdout),
				zapConfig.Level,
			),
		)
		logger = zap.New(core, zap.AddCaller())
	} else {
		var err error
		logger, err = zapConfig.Build(zap.AddCaller())
		if err != nil {
			panic(err)
		}
	}
	zap.ReplaceGlobals(logger)
}

func newIdentity(cfg *config.AppConfig, users identity.UserRepository, bus EventBus.Bus) identity.Provider {
	if cfg.Auth.Provider == "hosted" {
		zap.S().Infof("Identity provider: hosted %s", cfg.Rest.URL)
		return identity.NewHosted(cfg.Rest.URL, cfg.Rest.APIKey, cfg.Auth.RedirectURL, cfg.RestTimeout(), bus)
	}
	var mailer identity.Mailer = identity.NewSMTPMailer(cfg.Mail.Host, cfg.Mail.Port,
		cfg.Mail.User, cfg.Mail.Password, cfg.Mail.From)
	return identity.NewLocal(users, mailer, identity.LocalConfig{
		Secret:    cfg.Auth.JWTSecret,
		TokenTTL:  cfg.TokenTTL(),
		VerifyURL: cfg.Auth.RedirectURL,
		ShopName:  cfg.System.Appid,
	}, bus)
}

// subscribeAuth logs auth state changes and drops the product form of an
// admin who signs out
func (a *Application) subscribeAuth() {
	if err := a.identity.Subscribe(a.onAuthEvent); err != nil {
		zap.S().Warnf("subscribe auth events: %v", err)
	}
}

func (a *Application) onAuthEvent(e identity.Event) {
	zap.L().Info("auth state changed",
		zap.String("event", e.Kind),
		zap.String("email", e.User.Email),
		zap.String("namespace", "identity"))
	if e.Kind == identity.EventSignedOut && e.User.ID != "" {
		a.forms.Drop(e.User.ID)
	}
}

func (a *Application) MigrateDB(track bool) (err error) {
	if a.gormDB == nil {
		return nil
	}
	defer func() {
		if err1 := recover(); err1 != nil {
			if os.Getenv("GO_DEGUB_TRACE") != "" {
				debug.PrintStack()
			}
			err2, ok := err1.(error)
			if ok {
				err = err2
				zap.S().Error(err2.Error())
			}
		}
	}()
	db := a.gormDB
	if track {
		db = db.Debug()
	}
	return errors.Wrap(db.Migrator().AutoMigrate(domain.Tables...), "auto migrate")
}

func (a *Application) DropAll() {
	if a.gormDB == nil {
		return
	}
	_ = a.gormDB.Migrator().DropTable(domain.Tables...)
}

// InitDb drops and recreates every table.
func (a *Application) InitDb() {
	if a.gormDB == nil {
		zap.S().Warnf("initdb: %s backend has no schema", a.appConfig.Database.Type)
		return
	}
	_ = a.gormDB.Migrator().DropTable(domain.Tables...)
	err := a.gormDB.Migrator().AutoMigrate(domain.Tables...)
	if err != nil {
		zap.S().Error(err)
	}
}

// Release releases application resources
func (a *Application) Release() {
	if a.sched != nil {
		<-a.sched.Stop().Done()
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			zap.S().Errorf("close store: %v", err)
		}
	}
	_ = zap.L().Sync()
}
