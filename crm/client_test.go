package crm_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mindbox-quickstart/staff-auth/crm"
)

type capturedRequest struct {
	Method        string
	Path          string
	Query         map[string]string
	Authorization string
	ContentType   string
	Body          map[string]any
}

func newFakeCRM(t *testing.T, status int, response string) (*httptest.Server, *capturedRequest) {
	t.Helper()

	captured := &capturedRequest{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.Method = r.Method
		captured.Path = r.URL.Path
		captured.Query = map[string]string{}
		for key := range r.URL.Query() {
			captured.Query[key] = r.URL.Query().Get(key)
		}
		captured.Authorization = r.Header.Get("Authorization")
		captured.ContentType = r.Header.Get("Content-Type")
		_ = json.NewDecoder(r.Body).Decode(&captured.Body)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(srv.Close)

	return srv, captured
}

func newClient(baseURL string) *crm.Client {
	return crm.New(crm.Config{
		BaseURL:          baseURL,
		EndpointID:       "main-endpoint",
		SecretKey:        "main-secret",
		SearchEndpointID: "search-endpoint",
		SearchSecretKey:  "search-secret",
	})
}

func TestClient_Exists(t *testing.T) {
	t.Run("found staff member", func(t *testing.T) {
		srv, captured := newFakeCRM(t, http.StatusOK, `{"status":"Success","customer":{"processingStatus":"Found"}}`)
		client := newClient(srv.URL)

		exists, err := client.Exists(context.Background(), "nikitin@mindbox.ru")

		require.NoError(t, err)
		assert.True(t, exists)

		assert.Equal(t, http.MethodPost, captured.Method)
		assert.Equal(t, "/v3/operations/sync", captured.Path)
		assert.Equal(t, "QuickStart.GetStaff", captured.Query["operation"])
		assert.Equal(t, "search-endpoint", captured.Query["endpointId"])
		assert.Equal(t, `Mindbox secretKey="search-secret"`, captured.Authorization)
		assert.Equal(t, "application/json; charset=utf-8", captured.ContentType)

		customer, ok := captured.Body["customer"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "nikitin@mindbox.ru", customer["email"])
		assert.NotContains(t, customer, "password")
	})

	t.Run("unknown staff member", func(t *testing.T) {
		srv, _ := newFakeCRM(t, http.StatusOK, `{"status":"Success","customer":{"processingStatus":"NotFound"}}`)
		client := newClient(srv.URL)

		exists, err := client.Exists(context.Background(), "nobody@mindbox.ru")

		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("non success envelope is a gateway failure", func(t *testing.T) {
		srv, _ := newFakeCRM(t, http.StatusOK, `{"status":"ValidationError","errorMessage":"endpoint is not configured"}`)
		client := newClient(srv.URL)

		_, err := client.Exists(context.Background(), "nikitin@mindbox.ru")

		require.Error(t, err)
		var gatewayErr *crm.GatewayError
		require.ErrorAs(t, err, &gatewayErr)
		assert.Equal(t, "ValidationError", gatewayErr.Upstream)
		assert.Equal(t, "endpoint is not configured", gatewayErr.Detail())
	})
}

func TestClient_VerifyCredentials(t *testing.T) {
	t.Run("accepted credentials", func(t *testing.T) {
		srv, captured := newFakeCRM(t, http.StatusOK, `{"status":"Success","customer":{"processingStatus":"AuthenticationSucceeded"}}`)
		client := newClient(srv.URL)

		ok, err := client.VerifyCredentials(context.Background(), "nikitin@mindbox.ru", "qwerty123")

		require.NoError(t, err)
		assert.True(t, ok)

		assert.Equal(t, "QuickStart.Auth", captured.Query["operation"])
		assert.Equal(t, "main-endpoint", captured.Query["endpointId"])
		assert.Equal(t, `Mindbox secretKey="main-secret"`, captured.Authorization)

		customer, hasCustomer := captured.Body["customer"].(map[string]any)
		require.True(t, hasCustomer)
		assert.Equal(t, "qwerty123", customer["password"])
	})

	t.Run("rejected credentials", func(t *testing.T) {
		srv, _ := newFakeCRM(t, http.StatusOK, `{"status":"Success","customer":{"processingStatus":"AuthenticationFailed"}}`)
		client := newClient(srv.URL)

		ok, err := client.VerifyCredentials(context.Background(), "nikitin@mindbox.ru", "wrong")

		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("http error carries the raw body", func(t *testing.T) {
		srv, _ := newFakeCRM(t, http.StatusInternalServerError, `upstream exploded`)
		client := newClient(srv.URL)

		_, err := client.VerifyCredentials(context.Background(), "nikitin@mindbox.ru", "qwerty123")

		require.Error(t, err)
		var gatewayErr *crm.GatewayError
		require.ErrorAs(t, err, &gatewayErr)
		assert.Equal(t, http.StatusInternalServerError, gatewayErr.Status)
		assert.Equal(t, "upstream exploded", gatewayErr.Detail())
	})
}

func TestClient_Register(t *testing.T) {
	t.Run("enrolls through the async operation", func(t *testing.T) {
		srv, captured := newFakeCRM(t, http.StatusOK, `{"status":"Success"}`)
		client := newClient(srv.URL)

		err := client.Register(context.Background(), "new@mindbox.ru", "s3cret9pwd")

		require.NoError(t, err)
		assert.Equal(t, "/v3/operations/async", captured.Path)
		assert.Equal(t, "QuickStart.Reg", captured.Query["operation"])
		assert.Equal(t, "main-endpoint", captured.Query["endpointId"])

		customer, ok := captured.Body["customer"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "new@mindbox.ru", customer["email"])
		assert.Equal(t, "s3cret9pwd", customer["password"])
	})

	t.Run("surfaces the structured errorMessage", func(t *testing.T) {
		srv, _ := newFakeCRM(t, http.StatusBadRequest, `{"status":"ProtocolError","errorMessage":"operation is unknown"}`)
		client := newClient(srv.URL)

		err := client.Register(context.Background(), "new@mindbox.ru", "s3cret9pwd")

		require.Error(t, err)
		var gatewayErr *crm.GatewayError
		require.ErrorAs(t, err, &gatewayErr)
		assert.Equal(t, "operation is unknown", gatewayErr.Detail())
		assert.True(t, crm.IsGatewayError(err))
	})
}

func TestGatewayError_Detail(t *testing.T) {
	t.Run("prefers the structured message", func(t *testing.T) {
		err := &crm.GatewayError{ErrorMessage: "structured", Body: `{"errorMessage":"structured"}`}
		assert.Equal(t, "structured", err.Detail())
	})

	t.Run("falls back to raw body", func(t *testing.T) {
		err := &crm.GatewayError{Body: "raw payload"}
		assert.Equal(t, "raw payload", err.Detail())
	})

	t.Run("falls back to wrapped error", func(t *testing.T) {
		err := &crm.GatewayError{Err: context.DeadlineExceeded}
		assert.Equal(t, context.DeadlineExceeded.Error(), err.Detail())
	})
}
