// Package handler exposes policy administration over HTTP. Routes are meant to sit behind the
// admin token middleware.
package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"casework/internal/policy"
	"casework/pkg/domain"
	dErrors "casework/pkg/domain-errors"
	"casework/pkg/platform/httputil"
	"casework/pkg/requestcontext"
)

const maxPolicyBytes = 4 << 20

// Handler serves the policy registry.
type Handler struct {
	registry *policy.Registry
	logger   *slog.Logger
}

func New(registry *policy.Registry, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handler{registry: registry, logger: logger}
}

// Register mounts the admin routes on r.
func (h *Handler) Register(r chi.Router) {
	r.Route("/admin/policies", func(r chi.Router) {
		r.Post("/", h.HandleImport)
		r.Get("/", h.HandleList)
		r.Post("/{policyID}/activation", h.HandleActivate)
		r.Post("/{policyID}/archive", h.HandleArchive)
	})
}

// ImportResponse lists the ids of newly registered policies.
type ImportResponse struct {
	Registered []domain.PolicyID `json:"registered"`
}

// ActivationResponse names the policy that lost active status, when there was one.
type ActivationResponse struct {
	Active     domain.PolicyID  `json:"active"`
	Superseded *domain.PolicyID `json:"superseded,omitempty"`
}

// HandleImport registers every policy in a YAML document. Registration stops at the first
// failure; policies registered before it stay registered.
func (h *Handler) HandleImport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	policies, err := policy.LoadYAML(http.MaxBytesReader(w, r.Body, maxPolicyBytes))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if len(policies) == 0 {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "document contains no policies"))
		return
	}
	resp := ImportResponse{Registered: make([]domain.PolicyID, 0, len(policies))}
	for _, p := range policies {
		if err := h.registry.Register(p); err != nil {
			h.logger.WarnContext(ctx, "policy import stopped",
				"request_id", requestcontext.RequestID(ctx),
				"policy_id", p.ID.String(),
				"registered", len(resp.Registered),
				"error", err,
			)
			httputil.WriteError(w, err)
			return
		}
		resp.Registered = append(resp.Registered, p.ID)
		h.logger.InfoContext(ctx, "policy registered",
			"request_id", requestcontext.RequestID(ctx),
			"policy_id", p.ID.String(),
			"organization_id", p.OrganizationID,
			"version", p.Version,
		)
	}
	httputil.WriteJSON(w, http.StatusCreated, resp)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	org := strings.TrimSpace(r.URL.Query().Get("org"))
	if org == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "org query parameter is required"))
		return
	}
	policies := h.registry.List(org)
	if policies == nil {
		policies = []policy.Policy{}
	}
	httputil.WriteJSON(w, http.StatusOK, policies)
}

func (h *Handler) HandleActivate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := domain.ParsePolicyID(chi.URLParam(r, "policyID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	prev, err := h.registry.Activate(id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	resp := ActivationResponse{Active: id}
	if prev != nil {
		resp.Superseded = &prev.ID
	}
	h.logger.InfoContext(ctx, "policy activated",
		"request_id", requestcontext.RequestID(ctx),
		"policy_id", id.String(),
		"superseded", prev != nil,
	)
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) HandleArchive(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParsePolicyID(chi.URLParam(r, "policyID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.registry.Archive(id); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
