package httptransport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"formgate/internal/audit"
	"formgate/internal/form"
	"formgate/internal/identity/client"
	"formgate/internal/identity/session"
	"formgate/internal/platform/metrics"
	"formgate/internal/submission"
	"formgate/internal/verification"
	dErrors "formgate/pkg/domain-errors"
	"formgate/pkg/platform/httputil"
)

// SubmissionHandler runs a submission through the processing pipeline and
// the verification checks before accepting it.
type SubmissionHandler struct {
	forms    form.Lookup
	pipeline *submission.Pipeline
	checker  *verification.Service
	session  *session.Manager
	audit    *audit.Publisher
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

func NewSubmissionHandler(
	forms form.Lookup,
	pipeline *submission.Pipeline,
	checker *verification.Service,
	sessions *session.Manager,
	auditor *audit.Publisher,
	logger *slog.Logger,
	m *metrics.Metrics,
) *SubmissionHandler {
	return &SubmissionHandler{
		forms:    forms,
		pipeline: pipeline,
		checker:  checker,
		session:  sessions,
		audit:    auditor,
		logger:   logger,
		metrics:  m,
	}
}

func (h *SubmissionHandler) Register(r chi.Router) {
	r.Post("/api/forms/{formId}/submissions", h.handleSubmit)
}

type submitRequest struct {
	Responses []form.Response `json:"responses"`
}

type submitResponse struct {
	SubmissionAccepted bool                           `json:"submissionAccepted"`
	Responses          []submission.ProcessedResponse `json:"responses"`
}

// handleSubmit processes and verifies one submission. Forms with identity
// fields require a login cookie from the earlier prefill. The cookie is
// cleared whether the checks pass or fail, so a retry starts from a fresh
// login.
func (h *SubmissionHandler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	formID := chi.URLParam(r, "formId")
	frm, err := h.findForm(r, formID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "decode submission body"))
		return
	}

	processed, err := h.pipeline.Process(frm, req.Responses)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if !frm.IdentityEnabled() {
		h.observe("accepted")
		httputil.WriteJSON(w, http.StatusOK, submitResponse{
			SubmissionAccepted: true,
			Responses:          processed,
		})
		return
	}

	respondentID, err := h.respondentID(r)
	if err != nil {
		h.session.Clear(w)
		h.observe("no_session")
		httputil.WriteError(w, err)
		return
	}

	checked, err := h.checker.CheckSubmission(r.Context(), frm, respondentID, processed)
	h.session.Clear(w)
	if err != nil {
		h.recordFailure(r.Context(), frm.ID, err)
		httputil.WriteError(w, err)
		return
	}

	checked = submission.AppendIdentityResponses(checked, respondentID)
	h.observe("accepted")
	httputil.WriteJSON(w, http.StatusOK, submitResponse{
		SubmissionAccepted: true,
		Responses:          checked,
	})
}

// respondentID recovers the national identifier from the access token held
// in the login cookie. The cookie may already be spent from the prefill; it
// only has to exist and verify.
func (h *SubmissionHandler) respondentID(r *http.Request) (string, error) {
	payload, err := h.session.Read(r)
	if err != nil {
		return "", err
	}
	if payload.State != session.StateSuccess || payload.AccessToken == "" {
		return "", dErrors.New(dErrors.CodeCookieState, "identity login did not succeed")
	}
	return client.SubjectOf(payload.AccessToken)
}

func (h *SubmissionHandler) recordFailure(ctx context.Context, formID string, err error) {
	code := dErrors.CodeOf(err)
	h.observe(string(code))

	var kind audit.Kind
	switch code {
	case dErrors.CodeHashMismatch:
		kind = audit.KindHashMismatch
	case dErrors.CodeMissingHash:
		kind = audit.KindMissingHash
	case dErrors.CodeNotWhitelisted:
		kind = audit.KindWhitelistRejection
	case dErrors.CodeBreakerOpen:
		kind = audit.KindBreakerOpen
	default:
		return
	}

	if h.audit == nil {
		return
	}
	if auditErr := h.audit.Emit(ctx, audit.Event{Kind: kind, FormID: formID}); auditErr != nil {
		h.logger.Error("audit emit failed", "formId", formID, "kind", string(kind))
	}
}

func (h *SubmissionHandler) observe(outcome string) {
	if h.metrics != nil {
		h.metrics.ObserveSubmissionCheck(outcome)
	}
}

func (h *SubmissionHandler) findForm(r *http.Request, formID string) (*form.Form, error) {
	frm, err := h.forms.FindByID(r.Context(), formID)
	if err != nil {
		return nil, mapFormLookupErr(err)
	}
	return frm, nil
}
