package http

import (
	"context"
	"net/http"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/robertarktes/pet-services-marketplace/internal/auth"
	"github.com/robertarktes/pet-services-marketplace/internal/booking"
	"github.com/robertarktes/pet-services-marketplace/internal/catalog"
	"github.com/robertarktes/pet-services-marketplace/internal/domain"
	"github.com/robertarktes/pet-services-marketplace/internal/observability"
)

// ReadinessCheck reports whether a backing dependency can serve traffic.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type Handlers struct {
	auth    *auth.Service
	catalog *catalog.Service
	ledger  *booking.Ledger
	checks  []ReadinessCheck
	logger  observability.Logger
}

func NewHandlers(authSvc *auth.Service, catalogSvc *catalog.Service, ledger *booking.Ledger, checks []ReadinessCheck, logger observability.Logger) *Handlers {
	return &Handlers{
		auth:    authSvc,
		catalog: catalogSvc,
		ledger:  ledger,
		checks:  checks,
		logger:  logger,
	}
}

func (h *Handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	writeDomainError(w, r, h.logger, err)
}

func actor(r *http.Request) domain.Actor {
	a, _ := ActorFromContext(r.Context())
	return a
}

func int64Param(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.Wrapf(domain.ErrInvalidInput, "invalid %s", name)
	}
	return id, nil
}

func uuidParam(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, errors.Wrapf(domain.ErrInvalidInput, "invalid %s", name)
	}
	return id, nil
}

func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handlers) Readyz(w http.ResponseWriter, r *http.Request) {
	failed := map[string]string{}
	for _, c := range h.checks {
		if err := c.Check(r.Context()); err != nil {
			failed[c.Name] = err.Error()
		}
	}
	if len(failed) > 0 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{"status": "unavailable", "failed": failed})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
