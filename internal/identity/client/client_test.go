package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"formgate/internal/identity/attr"
	dErrors "formgate/pkg/domain-errors"
	"formgate/pkg/platform/circuit"
)

func signedToken(t *testing.T, subject string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return signed
}

func TestCreateRedirectURL(t *testing.T) {
	c := New(Config{
		ClientID:     "formgate-client",
		RedirectURI:  "https://forms.example.com/api/identity/callback",
		AuthEndpoint: "https://provider.example.com/authorise",
	})

	redirect, err := c.CreateRedirectURL("form-1", "Sports CCA Registration", "ESRVC-1",
		[]attr.Internal{attr.Name, attr.MobileNo}, "lang=en", 3*time.Minute)
	require.NoError(t, err)

	parsed, err := url.Parse(redirect)
	require.NoError(t, err)
	query := parsed.Query()

	assert.Equal(t, "formgate-client", query.Get("client_id"))
	assert.Equal(t, "Sports CCA Registration", query.Get("purpose"))
	assert.Equal(t, "ESRVC-1", query.Get("esrvcId"))
	assert.Equal(t, "name,mobileno,uinfin", query.Get("attributes"),
		"scopes always include the national id")

	state, err := ParseRelayState(query.Get("state"))
	require.NoError(t, err)
	assert.Equal(t, "form-1", state.FormID)
	assert.NotEmpty(t, state.UUID)
	assert.Equal(t, (3 * time.Minute).Milliseconds(), state.CookieDuration)
	assert.Equal(t, "lang=en", state.EncodedQuery,
		"the respondent's query string survives the consent round trip")
}

func TestParseRelayState(t *testing.T) {
	t.Run("round trips", func(t *testing.T) {
		encoded, err := NewRelayState("form-1", "", 3*time.Minute).Encode()
		require.NoError(t, err)
		state, err := ParseRelayState(encoded)
		require.NoError(t, err)
		assert.Equal(t, "form-1", state.FormID)
	})

	rejections := map[string]string{
		"not JSON":        "uuid,form-1",
		"malformed uuid":  `{"uuid":"nope","formId":"form-1"}`,
		"missing form id": `{"uuid":"8b37d91b-ed71-41a9-a0f3-f97110bb4bb5"}`,
		"empty":           "",
	}
	for name, raw := range rejections {
		t.Run(name, func(t *testing.T) {
			_, err := ParseRelayState(raw)
			require.Error(t, err)
			assert.Equal(t, dErrors.CodeBadRelayState, dErrors.CodeOf(err))
		})
	}
}

func TestRetrieveAccessToken(t *testing.T) {
	t.Run("exchanges auth code", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "authorization_code", r.PostForm.Get("grant_type"))
			assert.Equal(t, "auth-code-1", r.PostForm.Get("code"))
			json.NewEncoder(w).Encode(map[string]string{"access_token": "token-1"})
		}))
		defer srv.Close()

		c := New(Config{TokenEndpoint: srv.URL})
		token, err := c.RetrieveAccessToken(context.Background(), "auth-code-1")
		require.NoError(t, err)
		assert.Equal(t, "token-1", token)
	})

	t.Run("provider fault maps to fetch failure", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		c := New(Config{TokenEndpoint: srv.URL})
		_, err := c.RetrieveAccessToken(context.Background(), "auth-code-1")
		require.Error(t, err)
		assert.Equal(t, dErrors.CodeFetchFailed, dErrors.CodeOf(err))
	})

	t.Run("open breaker maps to breaker open without calling out", func(t *testing.T) {
		called := 0
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called++
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		token := circuit.New("token",
			circuit.WithErrorThresholdPercentage(80),
			circuit.WithVolumeThreshold(2))
		c := New(Config{TokenEndpoint: srv.URL},
			WithBreakers(token, circuit.New("person")))

		for i := 0; i < 2; i++ {
			_, err := c.RetrieveAccessToken(context.Background(), "auth-code-1")
			require.Error(t, err)
			assert.Equal(t, dErrors.CodeFetchFailed, dErrors.CodeOf(err))
		}
		require.Equal(t, 2, called)

		_, err := c.RetrieveAccessToken(context.Background(), "auth-code-1")
		require.Error(t, err)
		assert.Equal(t, dErrors.CodeBreakerOpen, dErrors.CodeOf(err))
		assert.Equal(t, 2, called, "open breaker must short-circuit")
	})
}

func TestFetchPersonData(t *testing.T) {
	t.Run("fetches and adapts the payload", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/S9812345A", r.URL.Path)
			assert.Contains(t, r.Header.Get("Authorization"), "Bearer ")
			assert.Contains(t, r.URL.Query().Get("attributes"), "uinfin")
			json.NewEncoder(w).Encode(map[string]any{
				"uinfin": map[string]any{"value": "S9812345A", "source": "1"},
				"name":   map[string]any{"value": "TAN XIAO HUI", "source": "1"},
			})
		}))
		defer srv.Close()

		c := New(Config{PersonEndpoint: srv.URL})
		person, err := c.FetchPersonData(context.Background(),
			signedToken(t, "S9812345A"), []attr.Internal{attr.Name}, "ESRVC-1")
		require.NoError(t, err)
		assert.Equal(t, "S9812345A", person.NationalID())

		value, readOnly := person.FieldValueForAttr(attr.Name)
		assert.Equal(t, "TAN XIAO HUI", value)
		assert.True(t, readOnly)
	})

	t.Run("rejects a token without a subject", func(t *testing.T) {
		c := New(Config{PersonEndpoint: "https://unused.example.com"})
		_, err := c.FetchPersonData(context.Background(),
			signedToken(t, ""), []attr.Internal{attr.Name}, "ESRVC-1")
		require.Error(t, err)
		assert.Equal(t, dErrors.CodeMissingAccessToken, dErrors.CodeOf(err))
	})

	t.Run("rejects an opaque token", func(t *testing.T) {
		c := New(Config{PersonEndpoint: "https://unused.example.com"})
		_, err := c.FetchPersonData(context.Background(),
			"not-a-jwt", []attr.Internal{attr.Name}, "ESRVC-1")
		require.Error(t, err)
		assert.Equal(t, dErrors.CodeMissingAccessToken, dErrors.CodeOf(err))
	})
}
