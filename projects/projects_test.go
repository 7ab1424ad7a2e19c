package projects_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"agentdash/apiclient"
	"agentdash/projects"
)

type staticTokens string

func (s staticTokens) AccessToken() string { return string(s) }

func newService(t *testing.T, handler http.Handler) *projects.Service {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	gateway, err := apiclient.New(server.URL+"/api", staticTokens("tok"))
	require.NoError(t, err)

	service, err := projects.NewService(gateway)
	require.NoError(t, err)
	return service
}

func TestList(t *testing.T) {
	t.Run("unwraps the project list", func(t *testing.T) {
		service := newService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/api/projekti", r.URL.Path)
			require.Empty(t, r.URL.RawQuery)
			w.Write([]byte(`{"projekti":[{"id":5,"stevilka_projekta":"P-2024-005","naziv":"Konektorji X","faza":"RFQ","status":"aktiven","datum_rfq":"2024-04-01"}]}`))
		}))

		list, err := service.List(context.Background(), projects.Filter{})
		require.NoError(t, err)
		require.Len(t, list, 1)
		require.Equal(t, "P-2024-005", list[0].Number)
		require.Equal(t, "RFQ", list[0].Phase)
	})

	t.Run("escapes the phase filter", func(t *testing.T) {
		service := newService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "v izdelavi", r.URL.Query().Get("faza"))
			w.Write([]byte(`{"projekti":[]}`))
		}))

		list, err := service.List(context.Background(), projects.Filter{Phase: "v izdelavi"})
		require.NoError(t, err)
		require.Empty(t, list)
	})
}

func TestGet(t *testing.T) {
	service := newService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/projekti/5", r.URL.Path)
		w.Write([]byte(`{"id":5,"stevilka_projekta":"P-2024-005","naziv":"Konektorji X","stranka_id":77,"faza":"ponudba","status":"aktiven","datum_rfq":"2024-04-01"}`))
	}))

	projekt, err := service.Get(context.Background(), 5)
	require.NoError(t, err)
	require.Equal(t, 5, projekt.ID)
	require.NotNil(t, projekt.CustomerID)
	require.Equal(t, 77, *projekt.CustomerID)
}

func TestFull(t *testing.T) {
	t.Run("decodes project, emails, and timeline", func(t *testing.T) {
		service := newService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/api/projekti/5/full", r.URL.Path)
			w.Write([]byte(`{
				"projekt": {"id":5,"stevilka_projekta":"P-2024-005","naziv":"Konektorji X","faza":"RFQ","status":"aktiven","datum_rfq":"2024-04-01"},
				"emaili": [{"id":10,"zadeva":"RFQ za konektorje"}],
				"casovnica": [{"id":1,"projekt_id":5,"dogodek":"faza","opis":"RFQ prejet","stara_vrednost":"nov","nova_vrednost":"RFQ","datum":"2024-04-01","uporabnik_ali_agent":"agent"}]
			}`))
		}))

		full, err := service.Full(context.Background(), 5)
		require.NoError(t, err)
		require.Equal(t, 5, full.Projekt.ID)
		require.Len(t, full.Emails, 1)
		require.Len(t, full.Timeline, 1)
		require.Equal(t, "agent", full.Timeline[0].Author)
		require.NotNil(t, full.Timeline[0].NewValue)
		require.Equal(t, "RFQ", *full.Timeline[0].NewValue)
	})

	t.Run("a missing project surfaces the 404", func(t *testing.T) {
		service := newService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"detail":"Projekt ne obstaja"}`, http.StatusNotFound)
		}))

		_, err := service.Full(context.Background(), 99)
		require.Error(t, err)

		apiErr, ok := apiclient.AsAPIError(err)
		require.True(t, ok)
		require.Equal(t, http.StatusNotFound, apiErr.Status)
	})
}
