// Package emails wraps the backend's inbound email endpoints: the filtered
// listing and the AI analysis of a single email.
package emails

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/pkg/errors"
)

// Attachment is one inbound email attachment as the sync job recorded it.
type Attachment struct {
	Name       string `json:"name"`
	Downloaded bool   `json:"downloaded"`
}

// Email is an inbound email row. JSON tags follow the backend's Slovenian
// field names.
type Email struct {
	ID               int            `json:"id"`
	Subject          string         `json:"zadeva,omitempty"`
	Sender           string         `json:"posiljatelj,omitempty"`
	Recipients       string         `json:"prejemniki,omitempty"`
	Category         string         `json:"kategorija,omitempty"`
	RFQSubcategory   string         `json:"rfq_podkategorija,omitempty"`
	Status           string         `json:"status,omitempty"`
	Date             string         `json:"datum,omitempty"`
	AnalysisStatus   string         `json:"analiza_status,omitempty"`
	AnalysisResult   map[string]any `json:"analiza_rezultat,omitempty"`
	Attachments      []Attachment   `json:"priloge,omitempty"`
	ExtractedFields  map[string]any `json:"izvleceni_podatki,omitempty"`
}

// Analysis is the AI-derived view of one email. The backend's shape varies
// by category, so it stays schemaless on the client.
type Analysis map[string]any

// Filter narrows the email listing. Zero values are omitted from the query.
type Filter struct {
	Category       string
	RFQSubcategory string
}

// Gateway is the slice of the request gateway the email service uses.
type Gateway interface {
	Call(ctx context.Context, method, path string, body, out any) error
}

// Service issues email calls through the gateway.
type Service struct {
	gateway Gateway
}

// NewService creates an email service over gateway.
func NewService(gateway Gateway) (*Service, error) {
	if gateway == nil {
		return nil, errors.New("[emails.NewService] gateway is required")
	}
	return &Service{gateway: gateway}, nil
}

type listResponse struct {
	Emails []Email `json:"emaili"`
}

// List returns emails matching filter. A missing list is empty, not an error.
func (s *Service) List(ctx context.Context, filter Filter) ([]Email, error) {
	query := url.Values{}
	if filter.Category != "" {
		query.Set("kategorija", filter.Category)
	}
	if filter.RFQSubcategory != "" {
		query.Set("rfq_podkategorija", filter.RFQSubcategory)
	}

	path := "/emaili"
	if encoded := query.Encode(); encoded != "" {
		path += "?" + encoded
	}

	var resp listResponse
	if err := s.gateway.Call(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, errors.Wrapf(err, "[List] GET %s", path)
	}
	return resp.Emails, nil
}

// Analysis returns the stored AI analysis of one email.
func (s *Service) Analysis(ctx context.Context, emailID int) (Analysis, error) {
	var analysis Analysis
	path := fmt.Sprintf("/emaili/%d/analysis", emailID)
	if err := s.gateway.Call(ctx, http.MethodGet, path, nil, &analysis); err != nil {
		return nil, errors.Wrapf(err, "[Analysis] GET %s", path)
	}
	return analysis, nil
}

// TriggerAnalysis (re)runs the AI analysis of one email and returns the
// fresh result.
func (s *Service) TriggerAnalysis(ctx context.Context, emailID int) (Analysis, error) {
	var analysis Analysis
	path := fmt.Sprintf("/emaili/%d/analyze", emailID)
	if err := s.gateway.Call(ctx, http.MethodPost, path, nil, &analysis); err != nil {
		return nil, errors.Wrapf(err, "[TriggerAnalysis] POST %s", path)
	}
	return analysis, nil
}
