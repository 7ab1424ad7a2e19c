package emails_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"agentdash/apiclient"
	"agentdash/emails"
)

type staticTokens string

func (s staticTokens) AccessToken() string { return string(s) }

func newService(t *testing.T, handler http.Handler) *emails.Service {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	gateway, err := apiclient.New(server.URL+"/api", staticTokens("tok"))
	require.NoError(t, err)

	service, err := emails.NewService(gateway)
	require.NoError(t, err)
	return service
}

func TestList(t *testing.T) {
	t.Run("unwraps the email list", func(t *testing.T) {
		service := newService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/api/emaili", r.URL.Path)
			require.Empty(t, r.URL.RawQuery)
			w.Write([]byte(`{"emaili":[{"id":10,"zadeva":"RFQ za konektorje","posiljatelj":"kupec@example.com","kategorija":"RFQ","analiza_status":"done","priloge":[{"name":"spec.pdf","downloaded":true}]}]}`))
		}))

		list, err := service.List(context.Background(), emails.Filter{})
		require.NoError(t, err)
		require.Len(t, list, 1)
		require.Equal(t, 10, list[0].ID)
		require.Equal(t, "RFQ za konektorje", list[0].Subject)
		require.Equal(t, "RFQ", list[0].Category)
		require.Len(t, list[0].Attachments, 1)
		require.True(t, list[0].Attachments[0].Downloaded)
	})

	t.Run("encodes both filters into the query", func(t *testing.T) {
		service := newService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "RFQ", r.URL.Query().Get("kategorija"))
			require.Equal(t, "nov kupec", r.URL.Query().Get("rfq_podkategorija"))
			w.Write([]byte(`{"emaili":[]}`))
		}))

		list, err := service.List(context.Background(), emails.Filter{Category: "RFQ", RFQSubcategory: "nov kupec"})
		require.NoError(t, err)
		require.Empty(t, list)
	})

	t.Run("a missing list reads as empty", func(t *testing.T) {
		service := newService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{}`))
		}))

		list, err := service.List(context.Background(), emails.Filter{})
		require.NoError(t, err)
		require.Empty(t, list)
	})

	t.Run("a 500 surfaces as APIError for the caller to render", func(t *testing.T) {
		service := newService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "db down", http.StatusInternalServerError)
		}))

		_, err := service.List(context.Background(), emails.Filter{})
		require.Error(t, err)

		apiErr, ok := apiclient.AsAPIError(err)
		require.True(t, ok)
		require.Equal(t, http.StatusInternalServerError, apiErr.Status)
	})
}

func TestAnalysis(t *testing.T) {
	t.Run("fetches the stored analysis", func(t *testing.T) {
		service := newService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/api/emaili/10/analysis", r.URL.Path)
			require.Equal(t, http.MethodGet, r.Method)
			w.Write([]byte(`{"summary":"nov RFQ","confidence":0.92}`))
		}))

		analysis, err := service.Analysis(context.Background(), 10)
		require.NoError(t, err)
		require.Equal(t, "nov RFQ", analysis["summary"])
	})

	t.Run("trigger posts to the analyze path", func(t *testing.T) {
		service := newService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/api/emaili/10/analyze", r.URL.Path)
			require.Equal(t, http.MethodPost, r.Method)
			w.Write([]byte(`{"summary":"posodobljeno"}`))
		}))

		analysis, err := service.TriggerAnalysis(context.Background(), 10)
		require.NoError(t, err)
		require.Equal(t, "posodobljeno", analysis["summary"])
	})
}
