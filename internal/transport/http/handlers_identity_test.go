package httptransport

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"formgate/internal/audit"
	"formgate/internal/form"
	"formgate/internal/hashstore"
	"formgate/internal/identity/adapter"
	"formgate/internal/identity/attr"
	"formgate/internal/identity/client"
	"formgate/internal/identity/session"
	"formgate/internal/prefill"
	"formgate/internal/submission"
	"formgate/internal/verification"
	"formgate/internal/whitelist"
	dErrors "formgate/pkg/domain-errors"
	"formgate/pkg/testutil"
)

const (
	testFormID     = "form-1"
	testNationalID = "S9812345A"
)

type stubIdentityClient struct {
	redirectURL string
	token       string
	tokenErr    error
	person      *adapter.PersonData
	personErr   error

	fetchedAttrs  []attr.Internal
	fetchCalls    int
	redirectQuery string
}

func (s *stubIdentityClient) CreateRedirectURL(formID, formTitle, serviceID string, requestedAttrs []attr.Internal, encodedQuery string, cookieDuration time.Duration) (string, error) {
	s.redirectQuery = encodedQuery
	return s.redirectURL, nil
}

func (s *stubIdentityClient) RetrieveAccessToken(ctx context.Context, authCode string) (string, error) {
	if s.tokenErr != nil {
		return "", s.tokenErr
	}
	return s.token, nil
}

func (s *stubIdentityClient) FetchPersonData(ctx context.Context, accessToken string, requestedAttrs []attr.Internal, serviceID string) (*adapter.PersonData, error) {
	s.fetchCalls++
	s.fetchedAttrs = requestedAttrs
	if s.personErr != nil {
		return nil, s.personErr
	}
	return s.person, nil
}

type testEnv struct {
	router   http.Handler
	client   *stubIdentityClient
	forms    *form.InMemoryStore
	sessions *session.Manager
	hashes   *hashstore.Service
	wlStore  *whitelist.InMemoryStore
	audits   *audit.Publisher
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	person := adapter.NewPersonData(adapter.PersonPayload{
		NationalID: &adapter.BasicField{Value: testNationalID, Source: adapter.SourceGovtVerified},
		Name:       &adapter.BasicField{Value: "TAN AH KOW", Source: adapter.SourceGovtVerified},
		MobileNo: &adapter.PhoneField{
			Prefix: "+", AreaCode: "65", Number: "91234567",
			Source: adapter.SourceUserProvided,
		},
	}, logger)

	stub := &stubIdentityClient{
		redirectURL: "https://provider.example.com/consent?client_id=test",
		token:       providerToken(t, testNationalID),
		person:      person,
	}

	forms := form.NewInMemoryStore()
	forms.Put(&form.Form{
		ID:        testFormID,
		Title:     "Household Survey",
		ServiceID: "GOVT-SVC",
		Fields: []form.Field{
			{ID: "field-name", Type: form.TypeShortText, Title: "Name", Attribute: attr.Name},
			{ID: "field-mobile", Type: form.TypeMobile, Title: "Mobile", Attribute: attr.MobileNo},
			{ID: "field-remarks", Type: form.TypeShortText, Title: "Remarks"},
		},
		SessionTTL: time.Minute,
	})

	sessions := session.NewManager([]byte("test-session-secret"), session.WithSecure(false))
	hashes := hashstore.NewService(hashstore.NewInMemoryStore(), []byte("test-pseudonym-secret"),
		hashstore.WithCost(bcrypt.MinCost), hashstore.WithLogger(logger))
	wlStore := whitelist.NewInMemoryStore()
	wl := whitelist.NewService(wlStore, whitelist.WithLogger(logger))
	checker := verification.NewService(hashes, wl, verification.WithLogger(logger))
	pipeline := submission.NewPipeline(submission.WithLogger(logger))
	audits := audit.NewPublisher(audit.NewInMemoryStore())

	identity := NewIdentityHandler(stub, forms, sessions, hashes, 30*time.Minute, logger, nil)
	submissions := NewSubmissionHandler(forms, pipeline, checker, sessions, audits, logger, nil)

	return &testEnv{
		router:   NewRouter(identity, submissions),
		client:   stub,
		forms:    forms,
		sessions: sessions,
		hashes:   hashes,
		wlStore:  wlStore,
		audits:   audits,
	}
}

// providerToken mints an access token whose subject is the national id, the
// way the provider's token endpoint issues them.
func providerToken(t *testing.T, subject string) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := tok.SignedString([]byte("provider-secret"))
	require.NoError(t, err)
	return signed
}

func encodedState(t *testing.T, formID string) string {
	t.Helper()
	state, err := client.NewRelayState(formID, "", time.Minute).Encode()
	require.NoError(t, err)
	return state
}

// loginThroughCallback drives the consent callback and returns the session
// cookie it set.
func loginThroughCallback(t *testing.T, env *testEnv) *http.Cookie {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet,
		"/api/identity/callback?code=auth-code&state="+encodedState(t, testFormID), nil)
	rec := testutil.DoRequest(env.router, req)
	require.Equal(t, http.StatusFound, rec.Code)

	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == session.CookieName {
			return cookie
		}
	}
	t.Fatal("callback did not set a session cookie")
	return nil
}

func TestHandleRedirect(t *testing.T) {
	env := newTestEnv(t)

	t.Run("returns the provider consent url", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/identity/"+testFormID+"/redirect", nil)
		rec := testutil.DoRequest(env.router, req)

		testutil.AssertStatus(t, rec, http.StatusOK)
		body := testutil.UnmarshalResponse[map[string]string](t, rec)
		assert.Equal(t, env.client.redirectURL, (*body)["redirectURL"])
	})

	t.Run("forwards the respondent's query string into the relay state", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet,
			"/api/identity/"+testFormID+"/redirect?encodedQuery=lang%3Den", nil)
		rec := testutil.DoRequest(env.router, req)

		testutil.AssertStatus(t, rec, http.StatusOK)
		assert.Equal(t, "lang=en", env.client.redirectQuery)
	})

	t.Run("unknown form is 404", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/identity/no-such-form/redirect", nil)
		rec := testutil.DoRequest(env.router, req)

		testutil.AssertStatus(t, rec, http.StatusNotFound)
		testutil.AssertErrorCode(t, rec, string(dErrors.CodeNotFound))
	})
}

func TestHandleCallback(t *testing.T) {
	t.Run("success sets login cookie and redirects to the form", func(t *testing.T) {
		env := newTestEnv(t)
		req := httptest.NewRequest(http.MethodGet,
			"/api/identity/callback?code=auth-code&state="+encodedState(t, testFormID), nil)
		rec := testutil.DoRequest(env.router, req)

		assert.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "/"+testFormID, rec.Header().Get("Location"))

		cookie := loginThroughCallback(t, env)
		payload, err := env.sessions.Read(requestWithCookie(cookie))
		require.NoError(t, err)
		assert.Equal(t, session.StateSuccess, payload.State)
	})

	t.Run("restores the respondent's query string on the way back", func(t *testing.T) {
		env := newTestEnv(t)
		state, err := client.NewRelayState(testFormID, "lang=en", time.Minute).Encode()
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet,
			"/api/identity/callback?code=auth-code&state="+url.QueryEscape(state), nil)
		rec := testutil.DoRequest(env.router, req)

		assert.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "/"+testFormID+"?lang=en", rec.Header().Get("Location"))
	})

	t.Run("provider error sets error-state cookie and still redirects", func(t *testing.T) {
		env := newTestEnv(t)
		req := httptest.NewRequest(http.MethodGet,
			"/api/identity/callback?error=access_denied&state="+encodedState(t, testFormID), nil)
		rec := testutil.DoRequest(env.router, req)

		assert.Equal(t, http.StatusFound, rec.Code)
		cookie := callbackCookie(t, rec)
		payload, err := env.sessions.Read(requestWithCookie(cookie))
		require.NoError(t, err)
		assert.Equal(t, session.StateError, payload.State)
		assert.Empty(t, payload.AccessToken)
	})

	t.Run("token exchange failure sets error-state cookie", func(t *testing.T) {
		env := newTestEnv(t)
		env.client.tokenErr = dErrors.New(dErrors.CodeFetchFailed, "token endpoint returned 502")

		req := httptest.NewRequest(http.MethodGet,
			"/api/identity/callback?code=auth-code&state="+encodedState(t, testFormID), nil)
		rec := testutil.DoRequest(env.router, req)

		assert.Equal(t, http.StatusFound, rec.Code)
		cookie := callbackCookie(t, rec)
		payload, err := env.sessions.Read(requestWithCookie(cookie))
		require.NoError(t, err)
		assert.Equal(t, session.StateError, payload.State)
	})

	t.Run("garbled relay state is rejected", func(t *testing.T) {
		env := newTestEnv(t)
		req := httptest.NewRequest(http.MethodGet,
			"/api/identity/callback?code=auth-code&state=not-json", nil)
		rec := testutil.DoRequest(env.router, req)

		testutil.AssertStatus(t, rec, http.StatusBadRequest)
		testutil.AssertErrorCode(t, rec, string(dErrors.CodeBadRelayState))
	})
}

func TestHandlePrefill(t *testing.T) {
	t.Run("prefills bound fields and locks verified values", func(t *testing.T) {
		env := newTestEnv(t)
		cookie := loginThroughCallback(t, env)

		req := httptest.NewRequest(http.MethodPost, "/api/forms/"+testFormID+"/prefill", nil)
		req.AddCookie(cookie)
		rec := testutil.DoRequest(env.router, req)

		testutil.AssertStatus(t, rec, http.StatusOK)
		body := testutil.UnmarshalResponse[prefillResponse](t, rec)
		require.Len(t, body.Fields, 3)

		byID := make(map[string]prefill.Field, len(body.Fields))
		for _, f := range body.Fields {
			byID[f.ID] = f
		}
		assert.Equal(t, "TAN AH KOW", byID["field-name"].FieldValue)
		assert.True(t, byID["field-name"].Disabled)
		assert.Equal(t, "+65 91234567", byID["field-mobile"].FieldValue)
		assert.False(t, byID["field-mobile"].Disabled)
		assert.Empty(t, byID["field-remarks"].FieldValue)

		assert.Equal(t, []attr.Internal{attr.Name, attr.MobileNo}, env.client.fetchedAttrs)
	})

	t.Run("persists hashes of locked values", func(t *testing.T) {
		env := newTestEnv(t)
		cookie := loginThroughCallback(t, env)

		req := httptest.NewRequest(http.MethodPost, "/api/forms/"+testFormID+"/prefill", nil)
		req.AddCookie(cookie)
		testutil.DoRequest(env.router, req)

		stored, err := env.hashes.Fetch(context.Background(), testNationalID, testFormID)
		require.NoError(t, err)
		assert.Contains(t, stored, attr.Name)
		assert.NotContains(t, stored, attr.MobileNo)
	})

	t.Run("login token is single use", func(t *testing.T) {
		env := newTestEnv(t)
		cookie := loginThroughCallback(t, env)

		first := httptest.NewRequest(http.MethodPost, "/api/forms/"+testFormID+"/prefill", nil)
		first.AddCookie(cookie)
		firstRec := testutil.DoRequest(env.router, first)
		testutil.AssertStatus(t, firstRec, http.StatusOK)

		// The browser keeps the rewritten, spent cookie from the first call.
		replay := httptest.NewRequest(http.MethodPost, "/api/forms/"+testFormID+"/prefill", nil)
		replay.AddCookie(callbackCookie(t, firstRec))
		rec := testutil.DoRequest(env.router, replay)

		testutil.AssertStatus(t, rec, http.StatusUnauthorized)
		testutil.AssertErrorCode(t, rec, string(dErrors.CodeCookieState))
		assert.Equal(t, 1, env.client.fetchCalls)
	})

	t.Run("missing cookie is an authentication failure", func(t *testing.T) {
		env := newTestEnv(t)
		req := httptest.NewRequest(http.MethodPost, "/api/forms/"+testFormID+"/prefill", nil)
		rec := testutil.DoRequest(env.router, req)

		testutil.AssertStatus(t, rec, http.StatusUnauthorized)
		testutil.AssertErrorCode(t, rec, string(dErrors.CodeMissingAccessToken))
	})

	t.Run("provider fetch failure propagates as bad gateway", func(t *testing.T) {
		env := newTestEnv(t)
		env.client.personErr = dErrors.New(dErrors.CodeFetchFailed, "person endpoint returned 500")
		cookie := loginThroughCallback(t, env)

		req := httptest.NewRequest(http.MethodPost, "/api/forms/"+testFormID+"/prefill", nil)
		req.AddCookie(cookie)
		rec := testutil.DoRequest(env.router, req)

		testutil.AssertStatus(t, rec, http.StatusBadGateway)
		testutil.AssertErrorCode(t, rec, string(dErrors.CodeFetchFailed))
	})
}

func callbackCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == session.CookieName {
			return cookie
		}
	}
	t.Fatal("response did not set a session cookie")
	return nil
}

func requestWithCookie(cookie *http.Cookie) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	return req
}
