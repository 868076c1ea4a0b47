package app

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/ummitifli/storefront/internal/adminapi"
	"github.com/ummitifli/storefront/internal/identity"
)

var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// namedJob is a cron entry the admin API can list and trigger.
type namedJob struct {
	name string
	spec string
	fn   func()
	id   cron.EntryID
}

func (a *Application) initJob() {
	loc, err := time.LoadLocation(a.appConfig.System.Location)
	if err != nil {
		loc = time.Local
	}
	a.sched = cron.New(cron.WithLocation(loc), cron.WithParser(cronParser))

	a.jobs = []*namedJob{
		{name: "cart_sweep", spec: "@every 1m", fn: a.SchedSweepCarts},
		{name: "token_purge", spec: "@every 10m", fn: a.SchedPurgeRevokedTokens},
		{name: "catalog_reload", spec: "@every 5m", fn: a.SchedReloadCatalog},
		{name: "admin_log_purge", spec: "@daily", fn: a.SchedPurgeAdminLogs},
	}
	for _, job := range a.jobs {
		job.id, err = a.sched.AddFunc(job.spec, job.fn)
		if err != nil {
			zap.S().Errorf("init job error %s", err.Error())
		}
	}
}

// Jobs lists the scheduled jobs with their last and next run.
func (a *Application) Jobs() []adminapi.Job {
	out := make([]adminapi.Job, 0, len(a.jobs))
	for _, job := range a.jobs {
		e := a.sched.Entry(job.id)
		out = append(out, adminapi.Job{Name: job.name, Spec: job.spec, Prev: e.Prev, Next: e.Next})
	}
	return out
}

// RunJob runs the named job now, in the calling goroutine.
func (a *Application) RunJob(name string) error {
	for _, job := range a.jobs {
		if job.name == name {
			zap.L().Info("job triggered", zap.String("job", name), zap.String("namespace", "jobs"))
			job.fn()
			return nil
		}
	}
	return adminapi.ErrUnknownJob
}

// RunJobs runs the scheduler until ctx is done.
func (a *Application) RunJobs(ctx context.Context) error {
	a.sched.Start()
	<-ctx.Done()
	<-a.sched.Stop().Done()
	return nil
}

// SchedSweepCarts drops carts idle for longer than the configured TTL
func (a *Application) SchedSweepCarts() {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()
	if n := a.carts.Sweep(a.appConfig.CartIdleTTL()); n > 0 {
		zap.L().Info("idle carts swept", zap.Int("count", n), zap.String("namespace", "cart"))
	}
}

// SchedPurgeRevokedTokens forgets signed-out tokens that have expired
func (a *Application) SchedPurgeRevokedTokens() {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()
	local, ok := a.identity.(*identity.Local)
	if !ok {
		return
	}
	if n := local.PurgeRevoked(); n > 0 {
		zap.L().Debug("revoked tokens purged", zap.Int("count", n), zap.String("namespace", "identity"))
	}
}

// SchedReloadCatalog picks up rows changed outside the admin gateway
func (a *Application) SchedReloadCatalog() {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	// Load logs its own failures and keeps the previous snapshot
	_ = a.catalog.Load(ctx)
}

// SchedPurgeAdminLogs applies the admin log retention
func (a *Application) SchedPurgeAdminLogs() {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()
	if a.appConfig.Cart.LogRetention <= 0 {
		return
	}
	n, err := a.auditor.Purge(context.Background(), a.appConfig.LogRetention())
	if err != nil {
		zap.L().Error("purge admin logs failed", zap.Error(err), zap.String("namespace", "admin"))
		return
	}
	if n > 0 {
		zap.L().Info("admin logs purged", zap.Int64("count", n), zap.String("namespace", "admin"))
	}
}
