package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/iho/welth/internal/adapter/http/respond"
	"github.com/iho/welth/internal/infrastructure/scheduler"
	"github.com/iho/welth/internal/usecase"
)

// JobRunner runs registered jobs on demand.
type JobRunner interface {
	Trigger(ctx context.Context, name string, now time.Time) (*usecase.JobReport, error)
	NextRun(name string) (time.Time, bool)
	Jobs() []string
}

// Reconciler checks stored balances against transactions.
type Reconciler interface {
	GenerateReport(ctx context.Context) (*usecase.ReconciliationReport, error)
}

// AdminHandler serves the operator endpoints.
type AdminHandler struct {
	jobs       JobRunner
	reconciler Reconciler
	now        func() time.Time
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(jobs JobRunner, reconciler Reconciler) *AdminHandler {
	return &AdminHandler{jobs: jobs, reconciler: reconciler, now: time.Now}
}

type jobInfo struct {
	Name    string     `json:"name"`
	NextRun *time.Time `json:"next_run,omitempty"`
}

// ListJobs lists registered jobs and their next scheduled run.
func (h *AdminHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	names := h.jobs.Jobs()
	jobs := make([]jobInfo, 0, len(names))
	for _, name := range names {
		info := jobInfo{Name: name}
		if next, ok := h.jobs.NextRun(name); ok {
			info.NextRun = &next
		}
		jobs = append(jobs, info)
	}

	writeJSON(w, http.StatusOK, map[string]any{"jobs": jobs})
}

// RunJob runs a job now and returns its report. Per-entity failures are in
// the report; the status is 200 unless the run itself failed.
func (h *AdminHandler) RunJob(w http.ResponseWriter, r *http.Request) {
	report, err := h.jobs.Trigger(r.Context(), chi.URLParam(r, "name"), h.now().UTC())
	switch {
	case errors.Is(err, scheduler.ErrUnknownJob):
		respond.Message(w, http.StatusNotFound, respond.CodeNotFound, err.Error())
		return
	case errors.Is(err, scheduler.ErrJobRunning):
		respond.Message(w, http.StatusConflict, respond.CodeConflict, err.Error())
		return
	case err != nil && report == nil:
		handleError(w, r, err)
		return
	}

	status := http.StatusOK
	if err != nil {
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, report)
}

// Reconcile runs the balance consistency check.
func (h *AdminHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	report, err := h.reconciler.GenerateReport(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}

	status := http.StatusOK
	if !report.Consistent() {
		status = http.StatusConflict
	}
	writeJSON(w, status, report)
}
