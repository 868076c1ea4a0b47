package app

import (
	"github.com/asaskevich/EventBus"
	"github.com/robfig/cron/v3"

	"github.com/ummitifli/storefront/config"
	"github.com/ummitifli/storefront/internal/adminapi"
	"github.com/ummitifli/storefront/internal/store"
	"github.com/ummitifli/storefront/internal/storefront"
)

// ConfigProvider provides application configuration
type ConfigProvider interface {
	Config() *config.AppConfig
}

// StoreProvider provides the product data store
type StoreProvider interface {
	Store() store.Store
	Bus() EventBus.Bus
}

// SchedulerProvider provides task scheduling capability
type SchedulerProvider interface {
	Scheduler() *cron.Cron
}

// AppContext combines all provider interfaces for full application context.
// It satisfies both the public and the admin handler contexts.
type AppContext interface {
	ConfigProvider
	StoreProvider
	SchedulerProvider
	storefront.AppContext
	adminapi.AppContext

	// Application lifecycle methods
	MigrateDB(track bool) error
	InitDb()
	DropAll()
}
