// Package handler exposes case commands over HTTP. Authentication happens upstream: every route
// expects the actor in the request context.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"casework/internal/cases/intake"
	"casework/internal/cases/models"
	"casework/internal/cases/service"
	"casework/internal/policy"
	"casework/pkg/domain"
	"casework/pkg/platform/httputil"
	"casework/pkg/requestcontext"
)

// Service is the case service as seen by the HTTP layer.
type Service interface {
	CreateCase(ctx context.Context, p service.CreateCaseParams) (*models.ConflictCase, error)
	Get(ctx context.Context, id domain.CaseID) (*models.ConflictCase, error)
	GetByNumber(ctx context.Context, caseNumber string) (*models.ConflictCase, error)
	AddEmployee(ctx context.Context, id domain.CaseID, e models.InvolvedEmployee) (domain.EmployeeID, *models.ConflictCase, error)
	AttachDocument(ctx context.Context, id domain.CaseID, doc models.CaseDocument) (domain.DocumentID, *models.ConflictCase, error)
	RecordReview(ctx context.Context, id domain.CaseID, docID domain.DocumentID, at time.Time) (*models.ConflictCase, error)
	RecordSignature(ctx context.Context, id domain.CaseID, docID domain.DocumentID, signatureImage string, at time.Time) (*models.ConflictCase, error)
	CertifySupervisor(ctx context.Context, id domain.CaseID, docID domain.DocumentID, supervisorID, supervisorName string, at time.Time) (*models.ConflictCase, error)
	EditText(ctx context.Context, id domain.CaseID, docID domain.DocumentID, cleanedText string) (*models.ConflictCase, error)
	Transition(ctx context.Context, id domain.CaseID, target models.CaseStatus) (*models.ConflictCase, error)
	UpdateNotes(ctx context.Context, id domain.CaseID, notes string) (*models.ConflictCase, error)
	LinkPolicy(ctx context.Context, id domain.CaseID, policyID domain.PolicyID) (*models.ConflictCase, error)
	AcceptComparison(ctx context.Context, id domain.CaseID, result models.AIComparisonResult) (*models.ConflictCase, error)
	AddPolicyMatch(ctx context.Context, id domain.CaseID, match models.PolicyMatch) (*models.ConflictCase, error)
	AddRecommendations(ctx context.Context, id domain.CaseID, recs []models.AIRecommendation) (*models.ConflictCase, error)
	SelectAction(ctx context.Context, id domain.CaseID, action models.RecommendedAction) (*models.ConflictCase, error)
	AttachGeneratedDocument(ctx context.Context, id domain.CaseID, content string) (*models.ConflictCase, error)
	EditGeneratedDocument(ctx context.Context, id domain.CaseID, edits string) (*models.ConflictCase, error)
	ApproveGeneratedDocument(ctx context.Context, id domain.CaseID) (*models.ConflictCase, error)
	ExportCase(ctx context.Context, id domain.CaseID, format string) ([]byte, error)
	Verify(ctx context.Context, id domain.CaseID) ([]models.IntegrityProblem, error)
	SearchPolicy(ctx context.Context, policyID domain.PolicyID, query string, types ...policy.SectionType) ([]policy.Section, error)
}

// Handler wires case endpoints to the case service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a case handler. A nil logger discards handler logs.
func New(service Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handler{service: service, logger: logger}
}

// Register mounts the case and policy routes.
func (h *Handler) Register(r chi.Router) {
	r.Route("/cases", func(r chi.Router) {
		r.Post("/", h.HandleCreate)
		r.Get("/by-number/{caseNumber}", h.HandleGetByNumber)
		r.Route("/{caseID}", func(r chi.Router) {
			r.Get("/", h.HandleGet)
			r.Get("/export", h.HandleExport)
			r.Get("/integrity", h.HandleVerify)
			r.Post("/employees", h.HandleAddEmployee)
			r.Post("/documents", h.HandleAttachDocument)
			r.Post("/documents/{documentID}/review", h.HandleReview)
			r.Post("/documents/{documentID}/signature", h.HandleSignature)
			r.Post("/documents/{documentID}/certification", h.HandleCertify)
			r.Put("/documents/{documentID}/text", h.HandleEditText)
			r.Post("/transitions", h.HandleTransition)
			r.Put("/notes", h.HandleNotes)
			r.Put("/policy", h.HandleLinkPolicy)
			r.Post("/comparison", h.HandleComparison)
			r.Post("/policy-matches", h.HandlePolicyMatch)
			r.Post("/recommendations", h.HandleRecommendations)
			r.Put("/selected-action", h.HandleSelectAction)
			r.Post("/generated-document", h.HandleGenerateDocument)
			r.Put("/generated-document", h.HandleEditGeneratedDocument)
			r.Post("/generated-document/approval", h.HandleApproveGeneratedDocument)
		})
	})
	r.Get("/policies/{policyID}/sections", h.HandleSearchPolicy)
}

func (h *Handler) caseID(w http.ResponseWriter, r *http.Request) (domain.CaseID, bool) {
	id, err := domain.ParseCaseID(chi.URLParam(r, "caseID"))
	if err != nil {
		httputil.WriteError(w, err)
		return domain.CaseID{}, false
	}
	return id, true
}

func (h *Handler) documentID(w http.ResponseWriter, r *http.Request) (domain.DocumentID, bool) {
	id, err := domain.ParseDocumentID(chi.URLParam(r, "documentID"))
	if err != nil {
		httputil.WriteError(w, err)
		return domain.DocumentID{}, false
	}
	return id, true
}

// respond writes the case or the command error. Rejections are logged at info; the service has
// already logged the detail.
func (h *Handler) respond(w http.ResponseWriter, r *http.Request, op string, c *models.ConflictCase, err error) {
	if err != nil {
		h.logger.InfoContext(r.Context(), "case request rejected",
			"request_id", requestcontext.RequestID(r.Context()),
			"operation", op,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, c)
}

// HandleCreate handles POST /cases.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	req, ok := httputil.DecodeAndPrepare[CreateCaseRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	c, err := h.service.CreateCase(ctx, service.CreateCaseParams{
		Type:           models.CaseType(req.Type),
		IncidentDate:   req.IncidentDate.UTC(),
		Location:       req.Location,
		Department:     req.Department,
		Shift:          req.Shift,
		ActivePolicyID: req.parsedPolicyID,
	})
	if err != nil {
		h.respond(w, r, "create", nil, err)
		return
	}
	h.logger.InfoContext(ctx, "case created",
		"request_id", requestID,
		"case_id", c.ID().String(),
		"case_number", c.CaseNumber(),
	)
	w.Header().Set("Location", "/cases/"+c.ID().String())
	httputil.WriteJSON(w, http.StatusCreated, &CaseCreatedResponse{
		ID:         c.ID().String(),
		CaseNumber: c.CaseNumber(),
		Status:     string(c.Status()),
		CreatedAt:  c.CreatedAt(),
	})
}

// HandleGet handles GET /cases/{caseID}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := h.caseID(w, r)
	if !ok {
		return
	}
	c, err := h.service.Get(r.Context(), id)
	h.respond(w, r, "get", c, err)
}

// HandleGetByNumber handles GET /cases/by-number/{caseNumber}.
func (h *Handler) HandleGetByNumber(w http.ResponseWriter, r *http.Request) {
	c, err := h.service.GetByNumber(r.Context(), chi.URLParam(r, "caseNumber"))
	h.respond(w, r, "get_by_number", c, err)
}

// HandleExport handles GET /cases/{caseID}/export. The export is recorded in the case audit log.
func (h *Handler) HandleExport(w http.ResponseWriter, r *http.Request) {
	id, ok := h.caseID(w, r)
	if !ok {
		return
	}
	out, err := h.service.ExportCase(r.Context(), id, r.URL.Query().Get("format"))
	if err != nil {
		h.respond(w, r, "export", nil, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="case-`+id.String()+`.json"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out)
}

// HandleVerify handles GET /cases/{caseID}/integrity.
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	id, ok := h.caseID(w, r)
	if !ok {
		return
	}
	problems, err := h.service.Verify(r.Context(), id)
	if err != nil {
		h.respond(w, r, "verify", nil, err)
		return
	}
	if len(problems) > 0 {
		h.logger.WarnContext(r.Context(), "case integrity check failed",
			"case_id", id.String(),
			"problems", len(problems),
		)
	}
	httputil.WriteJSON(w, http.StatusOK, fromProblems(id.String(), problems))
}

// HandleAddEmployee handles POST /cases/{caseID}/employees.
func (h *Handler) HandleAddEmployee(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.caseID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[AddEmployeeRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	employeeID, c, err := h.service.AddEmployee(ctx, id, req.employee())
	if err != nil {
		h.respond(w, r, "add_employee", nil, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, &CreatedIDResponse{ID: employeeID.String(), Case: c})
}

// HandleAttachDocument handles POST /cases/{caseID}/documents.
func (h *Handler) HandleAttachDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.caseID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[AttachDocumentRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	docID, c, err := h.service.AttachDocument(ctx, id, req.document())
	if err != nil {
		h.respond(w, r, "attach_document", nil, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, &CreatedIDResponse{ID: docID.String(), Case: c})
}

// attestation decodes the shared body of the ledger endpoints and runs fn.
func (h *Handler) attestation(w http.ResponseWriter, r *http.Request, op string,
	fn func(ctx context.Context, id domain.CaseID, docID domain.DocumentID, req *AttestationRequest) (*models.ConflictCase, error)) {
	ctx := r.Context()
	id, ok := h.caseID(w, r)
	if !ok {
		return
	}
	docID, ok := h.documentID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[AttestationRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	c, err := fn(ctx, id, docID, req)
	h.respond(w, r, op, c, err)
}

// HandleReview handles POST /cases/{caseID}/documents/{documentID}/review.
func (h *Handler) HandleReview(w http.ResponseWriter, r *http.Request) {
	h.attestation(w, r, "record_review", func(ctx context.Context, id domain.CaseID, docID domain.DocumentID, req *AttestationRequest) (*models.ConflictCase, error) {
		return h.service.RecordReview(ctx, id, docID, req.at())
	})
}

// HandleSignature handles POST /cases/{caseID}/documents/{documentID}/signature.
func (h *Handler) HandleSignature(w http.ResponseWriter, r *http.Request) {
	h.attestation(w, r, "record_signature", func(ctx context.Context, id domain.CaseID, docID domain.DocumentID, req *AttestationRequest) (*models.ConflictCase, error) {
		return h.service.RecordSignature(ctx, id, docID, req.SignatureImage, req.at())
	})
}

// HandleCertify handles POST /cases/{caseID}/documents/{documentID}/certification.
func (h *Handler) HandleCertify(w http.ResponseWriter, r *http.Request) {
	h.attestation(w, r, "certify_supervisor", func(ctx context.Context, id domain.CaseID, docID domain.DocumentID, req *AttestationRequest) (*models.ConflictCase, error) {
		return h.service.CertifySupervisor(ctx, id, docID, req.SupervisorID, req.SupervisorName, req.at())
	})
}

// HandleEditText handles PUT /cases/{caseID}/documents/{documentID}/text.
func (h *Handler) HandleEditText(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.caseID(w, r)
	if !ok {
		return
	}
	docID, ok := h.documentID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[EditTextRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	c, err := h.service.EditText(ctx, id, docID, req.CleanedText)
	h.respond(w, r, "edit_text", c, err)
}

// HandleTransition handles POST /cases/{caseID}/transitions.
func (h *Handler) HandleTransition(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.caseID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[TransitionRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	c, err := h.service.Transition(ctx, id, models.CaseStatus(req.Status))
	h.respond(w, r, "transition", c, err)
}

// HandleNotes handles PUT /cases/{caseID}/notes.
func (h *Handler) HandleNotes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.caseID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[NotesRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	c, err := h.service.UpdateNotes(ctx, id, req.Notes)
	h.respond(w, r, "update_notes", c, err)
}

// HandleLinkPolicy handles PUT /cases/{caseID}/policy.
func (h *Handler) HandleLinkPolicy(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.caseID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[LinkPolicyRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	c, err := h.service.LinkPolicy(ctx, id, req.parsed)
	h.respond(w, r, "link_policy", c, err)
}

// HandleComparison handles POST /cases/{caseID}/comparison. The body is the comparison service's
// result, validated for shape only.
func (h *Handler) HandleComparison(w http.ResponseWriter, r *http.Request) {
	id, ok := h.caseID(w, r)
	if !ok {
		return
	}
	result, err := intake.DecodeComparison(r.Body)
	if err != nil {
		h.respond(w, r, "accept_comparison", nil, err)
		return
	}
	c, err := h.service.AcceptComparison(r.Context(), id, result)
	h.respond(w, r, "accept_comparison", c, err)
}

// HandlePolicyMatch handles POST /cases/{caseID}/policy-matches.
func (h *Handler) HandlePolicyMatch(w http.ResponseWriter, r *http.Request) {
	id, ok := h.caseID(w, r)
	if !ok {
		return
	}
	match, err := intake.DecodePolicyMatch(r.Body)
	if err != nil {
		h.respond(w, r, "add_policy_match", nil, err)
		return
	}
	c, err := h.service.AddPolicyMatch(r.Context(), id, match)
	h.respond(w, r, "add_policy_match", c, err)
}

// HandleRecommendations handles POST /cases/{caseID}/recommendations. The body is a JSON array.
func (h *Handler) HandleRecommendations(w http.ResponseWriter, r *http.Request) {
	id, ok := h.caseID(w, r)
	if !ok {
		return
	}
	recs, err := intake.DecodeRecommendations(r.Body)
	if err != nil {
		h.respond(w, r, "add_recommendations", nil, err)
		return
	}
	c, err := h.service.AddRecommendations(r.Context(), id, recs)
	h.respond(w, r, "add_recommendations", c, err)
}

// HandleSelectAction handles PUT /cases/{caseID}/selected-action.
func (h *Handler) HandleSelectAction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.caseID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[SelectActionRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	c, err := h.service.SelectAction(ctx, id, models.RecommendedAction(req.Action))
	h.respond(w, r, "select_action", c, err)
}

// HandleGenerateDocument handles POST /cases/{caseID}/generated-document.
func (h *Handler) HandleGenerateDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.caseID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[GeneratedDocumentRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	c, err := h.service.AttachGeneratedDocument(ctx, id, req.Content)
	h.respond(w, r, "attach_generated_document", c, err)
}

// HandleEditGeneratedDocument handles PUT /cases/{caseID}/generated-document.
func (h *Handler) HandleEditGeneratedDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.caseID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[GeneratedDocumentRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	c, err := h.service.EditGeneratedDocument(ctx, id, req.Edits)
	h.respond(w, r, "edit_generated_document", c, err)
}

// HandleApproveGeneratedDocument handles POST /cases/{caseID}/generated-document/approval.
func (h *Handler) HandleApproveGeneratedDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := h.caseID(w, r)
	if !ok {
		return
	}
	c, err := h.service.ApproveGeneratedDocument(r.Context(), id)
	h.respond(w, r, "approve_generated_document", c, err)
}

// HandleSearchPolicy handles GET /policies/{policyID}/sections?q=...&type=....
func (h *Handler) HandleSearchPolicy(w http.ResponseWriter, r *http.Request) {
	policyID, err := domain.ParsePolicyID(chi.URLParam(r, "policyID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	var types []policy.SectionType
	for _, t := range r.URL.Query()["type"] {
		types = append(types, policy.SectionType(strings.TrimSpace(t)))
	}
	sections, err := h.service.SearchPolicy(r.Context(), policyID, query, types...)
	if err != nil {
		h.respond(w, r, "search_policy", nil, err)
		return
	}
	if sections == nil {
		sections = []policy.Section{}
	}
	httputil.WriteJSON(w, http.StatusOK, &SectionsResponse{PolicyID: policyID.String(), Query: query, Sections: sections})
}
