package httptransport

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"

	"formgate/internal/form"
	"formgate/internal/hashstore"
	"formgate/internal/identity/adapter"
	"formgate/internal/identity/attr"
	"formgate/internal/identity/client"
	"formgate/internal/identity/session"
	"formgate/internal/platform/metrics"
	"formgate/internal/prefill"
	dErrors "formgate/pkg/domain-errors"
	"formgate/pkg/platform/httputil"
	"formgate/pkg/platform/sentinel"
)

// IdentityClient is the provider surface the handler needs.
type IdentityClient interface {
	CreateRedirectURL(formID, formTitle, serviceID string, requestedAttrs []attr.Internal, encodedQuery string, cookieDuration time.Duration) (string, error)
	RetrieveAccessToken(ctx context.Context, authCode string) (string, error)
	FetchPersonData(ctx context.Context, accessToken string, requestedAttrs []attr.Internal, serviceID string) (*adapter.PersonData, error)
}

// IdentityHandler serves the login redirect, the provider callback, and the
// prefill endpoint.
type IdentityHandler struct {
	client  IdentityClient
	forms   form.Lookup
	session *session.Manager
	hashes  *hashstore.Service
	hashTTL time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewIdentityHandler(
	identityClient IdentityClient,
	forms form.Lookup,
	sessions *session.Manager,
	hashes *hashstore.Service,
	hashTTL time.Duration,
	logger *slog.Logger,
	m *metrics.Metrics,
) *IdentityHandler {
	return &IdentityHandler{
		client:  identityClient,
		forms:   forms,
		session: sessions,
		hashes:  hashes,
		hashTTL: hashTTL,
		logger:  logger,
		metrics: m,
	}
}

func (h *IdentityHandler) Register(r chi.Router) {
	r.Get("/api/identity/{formId}/redirect", h.handleRedirect)
	r.Get("/api/identity/callback", h.handleCallback)
	r.Post("/api/forms/{formId}/prefill", h.handlePrefill)
}

// handleRedirect builds the provider's consent URL for one form.
func (h *IdentityHandler) handleRedirect(w http.ResponseWriter, r *http.Request) {
	frm, err := h.findForm(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	redirectURL, err := h.client.CreateRedirectURL(
		frm.ID, frm.Title, frm.ServiceID, frm.RequestedAttrs(),
		r.URL.Query().Get("encodedQuery"), frm.SessionTTL)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"redirectURL": redirectURL})
}

// handleCallback receives the provider's consent redirect. Success exchanges
// the auth code and sets the login cookie; failure sets an error-state
// cookie. Either way the browser lands back on the form, keeping whatever
// query string the respondent arrived with.
func (h *IdentityHandler) handleCallback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	state, err := client.ParseRelayState(query.Get("state"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if providerErr := query.Get("error"); providerErr != "" {
		h.logger.Warn("identity consent failed",
			"formId", state.FormID,
			"error", providerErr)
		if err := h.session.SetError(w); err != nil {
			httputil.WriteError(w, err)
			return
		}
		h.redirectToForm(w, r, state)
		return
	}

	token, err := h.client.RetrieveAccessToken(r.Context(), query.Get("code"))
	if err != nil {
		h.logger.Error("token exchange failed",
			"formId", state.FormID,
			"code", string(dErrors.CodeOf(err)))
		if h.metrics != nil {
			h.metrics.ObserveProviderFailure(string(dErrors.CodeOf(err)))
		}
		if err := h.session.SetError(w); err != nil {
			httputil.WriteError(w, err)
			return
		}
		h.redirectToForm(w, r, state)
		return
	}

	cookieWindow := time.Duration(state.CookieDuration) * time.Millisecond
	if err := h.session.SetSuccessFor(w, token, cookieWindow); err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.redirectToForm(w, r, state)
}

type prefillResponse struct {
	Fields []prefill.Field `json:"fields"`
}

// handlePrefill spends the login cookie, fetches the person data, prefills
// the form's fields, and persists hashes of the locked values. The raw
// person data never leaves this request.
func (h *IdentityHandler) handlePrefill(w http.ResponseWriter, r *http.Request) {
	frm, err := h.findForm(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	token, err := h.session.Consume(w, r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	person, err := h.client.FetchPersonData(r.Context(), token, frm.RequestedAttrs(), frm.ServiceID)
	if err != nil {
		if h.metrics != nil {
			h.metrics.ObserveProviderFailure(string(dErrors.CodeOf(err)))
		}
		httputil.WriteError(w, err)
		return
	}

	// The token subject keys the hash record; submission recovers the same
	// identifier from the same cookie, so the two always agree even when the
	// payload omits the national id attribute.
	respondentID, err := client.SubjectOf(token)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	fields := prefill.Prefill(person, frm.Fields)
	if err := h.hashes.Save(r.Context(), respondentID, frm.ID, fields, h.hashTTL); err != nil {
		httputil.WriteError(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.ObservePrefill()
	}
	httputil.WriteJSON(w, http.StatusOK, prefillResponse{Fields: fields})
}

func (h *IdentityHandler) findForm(r *http.Request) (*form.Form, error) {
	frm, err := h.forms.FindByID(r.Context(), chi.URLParam(r, "formId"))
	if err != nil {
		return nil, mapFormLookupErr(err)
	}
	return frm, nil
}

func mapFormLookupErr(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "form not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "load form")
}

// redirectToForm lands the browser back on the form, restoring the query
// string carried through the consent flow in the relay state.
func (h *IdentityHandler) redirectToForm(w http.ResponseWriter, r *http.Request, state client.RelayState) {
	target := "/" + url.PathEscape(state.FormID)
	if state.EncodedQuery != "" {
		target += "?" + state.EncodedQuery
	}
	http.Redirect(w, r, target, http.StatusFound)
}
