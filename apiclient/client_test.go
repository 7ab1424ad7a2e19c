package apiclient_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"agentdash/apiclient"
)

// staticTokens is a fixed-value TokenSource.
type staticTokens string

func (s staticTokens) AccessToken() string { return string(s) }

func newClient(t *testing.T, serverURL string, token string) *apiclient.Client {
	t.Helper()
	client, err := apiclient.New(serverURL+"/api", staticTokens(token))
	require.NoError(t, err)
	return client
}

func TestNew(t *testing.T) {
	t.Run("requires a base URL", func(t *testing.T) {
		_, err := apiclient.New("", staticTokens(""))
		require.Error(t, err)
	})

	t.Run("requires a token source", func(t *testing.T) {
		_, err := apiclient.New("http://localhost:8000/api", nil)
		require.Error(t, err)
	})
}

func TestCall(t *testing.T) {
	t.Run("prefixes the API root and decodes JSON", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/api/projekti", r.URL.Path)
			require.Equal(t, "application/json", r.Header.Get("Content-Type"))
			w.Write([]byte(`{"projekti":[{"id":1}]}`))
		}))
		defer server.Close()

		var out struct {
			Projects []struct {
				ID int `json:"id"`
			} `json:"projekti"`
		}
		err := newClient(t, server.URL, "tok").Call(context.Background(), http.MethodGet, "/projekti", nil, &out)
		require.NoError(t, err)
		require.Len(t, out.Projects, 1)
		require.Equal(t, 1, out.Projects[0].ID)
	})

	t.Run("sends the bearer token and a request ID", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
			require.NotEmpty(t, r.Header.Get("X-Request-ID"))
			w.Write([]byte(`{}`))
		}))
		defer server.Close()

		err := newClient(t, server.URL, "tok").Call(context.Background(), http.MethodGet, "/auth/me", nil, nil)
		require.NoError(t, err)
	})

	t.Run("an empty token emits no Authorization header", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, present := r.Header["Authorization"]
			require.False(t, present)
			w.Write([]byte(`{}`))
		}))
		defer server.Close()

		err := newClient(t, server.URL, "").Call(context.Background(), http.MethodPost, "/auth/login", map[string]string{"username": "u"}, nil)
		require.NoError(t, err)
	})

	t.Run("serializes the request body as JSON", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var body struct {
				Username string `json:"username"`
				Password string `json:"password"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			require.Equal(t, "admin", body.Username)
			require.Equal(t, "admin123", body.Password)
			w.Write([]byte(`{}`))
		}))
		defer server.Close()

		body := map[string]string{"username": "admin", "password": "admin123"}
		err := newClient(t, server.URL, "").Call(context.Background(), http.MethodPost, "/auth/login", body, nil)
		require.NoError(t, err)
	})

	t.Run("non-2xx surfaces as APIError with the status preserved", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}))
		defer server.Close()

		err := newClient(t, server.URL, "tok").Call(context.Background(), http.MethodGet, "/emaili", nil, nil)
		require.Error(t, err)

		apiErr, ok := apiclient.AsAPIError(err)
		require.True(t, ok)
		require.Equal(t, http.StatusInternalServerError, apiErr.Status)
		require.False(t, apiclient.IsTimeout(err))
	})

	t.Run("malformed JSON on a success is a parse error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"history": [`))
		}))
		defer server.Close()

		var out map[string]any
		err := newClient(t, server.URL, "tok").Call(context.Background(), http.MethodGet, "/chat/history", nil, &out)
		require.Error(t, err)
		require.ErrorIs(t, err, apiclient.ErrParse)
	})

	t.Run("an empty success body leaves out untouched", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		var out struct {
			DownloadURL string `json:"download_url"`
		}
		err := newClient(t, server.URL, "tok").Call(context.Background(), http.MethodPost, "/chat/actions/a1/confirm", nil, &out)
		require.NoError(t, err)
		require.Empty(t, out.DownloadURL)
	})

	t.Run("a transport failure is neither APIError nor timeout", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		server.Close() // refuse connections

		err := newClient(t, server.URL, "tok").Call(context.Background(), http.MethodGet, "/emaili", nil, nil)
		require.Error(t, err)

		_, ok := apiclient.AsAPIError(err)
		require.False(t, ok)
		require.False(t, apiclient.IsTimeout(err))
	})
}
