// Package projects wraps the backend's project endpoints, including the
// full detail view with linked emails and the change timeline.
package projects

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/pkg/errors"

	"agentdash/emails"
)

// Projekt is one project row. JSON tags follow the backend's Slovenian
// field names.
type Projekt struct {
	ID            int     `json:"id"`
	Number        string  `json:"stevilka_projekta"`
	Name          string  `json:"naziv"`
	CustomerID    *int    `json:"stranka_id,omitempty"`
	Phase         string  `json:"faza"`
	Status        string  `json:"status"`
	RFQDate       string  `json:"datum_rfq"`
	CompletedDate *string `json:"datum_zakljucka,omitempty"`
	Notes         *string `json:"opombe,omitempty"`
}

// TimelineEntry is one project change event, recorded by a user or the agent.
type TimelineEntry struct {
	ID        int     `json:"id"`
	ProjektID int     `json:"projekt_id"`
	Event     string  `json:"dogodek"`
	Details   string  `json:"opis"`
	OldValue  *string `json:"stara_vrednost,omitempty"`
	NewValue  *string `json:"nova_vrednost,omitempty"`
	Date      string  `json:"datum"`
	Author    string  `json:"uporabnik_ali_agent"`
}

// Full is the project detail view: the project, its emails, its timeline.
type Full struct {
	Projekt  Projekt         `json:"projekt"`
	Emails   []emails.Email  `json:"emaili"`
	Timeline []TimelineEntry `json:"casovnica"`
}

// Filter narrows the project listing. A zero value is omitted from the query.
type Filter struct {
	Phase string
}

// Gateway is the slice of the request gateway the project service uses.
type Gateway interface {
	Call(ctx context.Context, method, path string, body, out any) error
}

// Service issues project calls through the gateway.
type Service struct {
	gateway Gateway
}

// NewService creates a project service over gateway.
func NewService(gateway Gateway) (*Service, error) {
	if gateway == nil {
		return nil, errors.New("[projects.NewService] gateway is required")
	}
	return &Service{gateway: gateway}, nil
}

type listResponse struct {
	Projects []Projekt `json:"projekti"`
}

// List returns projects matching filter. A missing list is empty, not an
// error.
func (s *Service) List(ctx context.Context, filter Filter) ([]Projekt, error) {
	path := "/projekti"
	if filter.Phase != "" {
		path += "?faza=" + url.QueryEscape(filter.Phase)
	}

	var resp listResponse
	if err := s.gateway.Call(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, errors.Wrapf(err, "[List] GET %s", path)
	}
	return resp.Projects, nil
}

// Get returns one project.
func (s *Service) Get(ctx context.Context, projektID int) (*Projekt, error) {
	var projekt Projekt
	path := fmt.Sprintf("/projekti/%d", projektID)
	if err := s.gateway.Call(ctx, http.MethodGet, path, nil, &projekt); err != nil {
		return nil, errors.Wrapf(err, "[Get] GET %s", path)
	}
	return &projekt, nil
}

// Full returns the project detail view with linked emails and timeline.
func (s *Service) Full(ctx context.Context, projektID int) (*Full, error) {
	var full Full
	path := fmt.Sprintf("/projekti/%d/full", projektID)
	if err := s.gateway.Call(ctx, http.MethodGet, path, nil, &full); err != nil {
		return nil, errors.Wrapf(err, "[Full] GET %s", path)
	}
	return &full, nil
}
