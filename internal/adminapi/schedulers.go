package adminapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/ummitifli/storefront/internal/webserver"
)

// ErrUnknownJob is returned by RunJob for a name that is not scheduled.
var ErrUnknownJob = errors.New("unknown job")

// Job describes a scheduled background job.
type Job struct {
	Name string    `json:"name"`
	Spec string    `json:"spec"`
	Prev time.Time `json:"prev"`
	Next time.Time `json:"next"`
}

// JobRunner is implemented by application contexts that run background jobs.
type JobRunner interface {
	Jobs() []Job
	RunJob(name string) error
}

// registerSchedulerRoutes registers scheduler API routes
func registerSchedulerRoutes() {
	webserver.ApiGET("/jobs", ListSchedulers)
	webserver.ApiPOST("/jobs/:name/run", TriggerScheduler)
}

func jobRunner(c echo.Context) (JobRunner, bool) {
	r, ok := GetAppContext(c).(JobRunner)
	return r, ok
}

// ListSchedulers lists the background jobs with their next run
func ListSchedulers(c echo.Context) error {
	r, supported := jobRunner(c)
	if !supported {
		return ok(c, []Job{})
	}
	jobs := r.Jobs()
	if name := strings.TrimSpace(c.QueryParam("name")); name != "" {
		matched := jobs[:0:0]
		for _, j := range jobs {
			if strings.Contains(j.Name, name) {
				matched = append(matched, j)
			}
		}
		jobs = matched
	}
	return ok(c, jobs)
}

// TriggerScheduler runs a job immediately
func TriggerScheduler(c echo.Context) error {
	r, supported := jobRunner(c)
	if !supported {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Job not found", nil)
	}
	err := r.RunJob(c.Param("name"))
	switch {
	case errors.Is(err, ErrUnknownJob):
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Job not found", nil)
	case err != nil:
		return fail(c, http.StatusInternalServerError, "RUN_FAILED", "Failed to run job", err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
