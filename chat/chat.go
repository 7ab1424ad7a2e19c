// Package chat wraps the backend's agent conversation endpoints: plain and
// multipart message sends, history, pending-action confirmation, and
// document export.
package chat

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"agentdash/apiclient"
)

// Message roles as the backend reports them.
const (
	RoleUser   = "user"
	RoleAgent  = "agent"
	RoleSystem = "system"
)

// Pending-action statuses (backend values are Slovenian).
const (
	ActionPending   = "Čaka"
	ActionConfirmed = "Potrjeno"
	ActionRejected  = "Zavrnjeno"
)

// Attachment describes a file the agent received with a message.
type Attachment struct {
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
	MimeType string `json:"mime_type"`
}

// Action is a tool invocation awaiting user confirmation.
type Action struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	Description string `json:"description"`
	ToolName    string `json:"tool_name,omitempty"`
}

// Message is one conversation entry.
type Message struct {
	Role              string
	Content           string
	Timestamp         string
	ProjektID         *int
	NeedsConfirmation bool
	Actions           []Action
	SuggestedCommands []string
	Attachments       []Attachment
}

// wireMessage is the tolerant backend shape: agent replies may carry the
// text under "response" instead of "content" and omit role or timestamp.
type wireMessage struct {
	Role              string       `json:"role"`
	Content           string       `json:"content"`
	Response          string       `json:"response"`
	Timestamp         string       `json:"timestamp"`
	ProjektID         *int         `json:"projekt_id"`
	NeedsConfirmation bool         `json:"needs_confirmation"`
	Actions           []Action     `json:"actions"`
	SuggestedCommands []string     `json:"suggested_commands"`
	Attachments       []Attachment `json:"attachments"`
}

// Gateway is the slice of the request gateway the chat service uses.
type Gateway interface {
	Call(ctx context.Context, method, path string, body, out any) error
	CallWithFiles(ctx context.Context, path string, fields map[string]string, uploads []apiclient.Upload, out any) error
	DownloadBlob(ctx context.Context, method, path string, body any, dir, fallbackName string) (string, error)
}

// Service issues chat calls through the gateway.
type Service struct {
	gateway Gateway
	nowTime func() time.Time
}

// ServiceOption modifies a Service instance.
type ServiceOption func(*Service)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ServiceOption {
	return func(s *Service) {
		s.nowTime = nowFunc
	}
}

// NewService creates a chat service over gateway.
func NewService(gateway Gateway, options ...ServiceOption) (*Service, error) {
	if gateway == nil {
		return nil, errors.New("[chat.NewService] gateway is required")
	}
	service := &Service{gateway: gateway, nowTime: time.Now}
	for _, opt := range options {
		opt(service)
	}
	return service, nil
}

type sendRequest struct {
	Message   string `json:"message"`
	ProjektID *int   `json:"projekt_id,omitempty"`
}

// Send posts a message to the agent, optionally scoped to a project.
func (s *Service) Send(ctx context.Context, message string, projektID *int) (*Message, error) {
	var reply wireMessage
	err := s.gateway.Call(ctx, http.MethodPost, "/chat", sendRequest{Message: message, ProjektID: projektID}, &reply)
	if err != nil {
		return nil, errors.Wrap(err, "[Send] POST /chat")
	}
	return s.normalize(reply), nil
}

// SendWithFiles posts a message plus file parts. Large files and vision
// analysis run long server side; the gateway's upload time limit applies
// and surfaces as apiclient.ErrTimeout.
func (s *Service) SendWithFiles(ctx context.Context, message string, projektID *int, uploads []apiclient.Upload) (*Message, error) {
	fields := map[string]string{"message": message}
	if projektID != nil {
		fields["projekt_id"] = strconv.Itoa(*projektID)
	}

	var reply wireMessage
	if err := s.gateway.CallWithFiles(ctx, "/chat/with-files", fields, uploads, &reply); err != nil {
		return nil, errors.Wrap(err, "[SendWithFiles] POST /chat/with-files")
	}
	return s.normalize(reply), nil
}

type historyResponse struct {
	History []wireMessage `json:"history"`
}

// History returns the conversation, optionally scoped to a project. A
// missing list is an empty conversation, not an error.
func (s *Service) History(ctx context.Context, projektID *int) ([]Message, error) {
	path := "/chat/history"
	if projektID != nil {
		path = fmt.Sprintf("/chat/history/%d", *projektID)
	}

	var resp historyResponse
	if err := s.gateway.Call(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, errors.Wrapf(err, "[History] GET %s", path)
	}

	messages := make([]Message, 0, len(resp.History))
	for _, wire := range resp.History {
		messages = append(messages, *s.normalize(wire))
	}
	return messages, nil
}

type actionResponse struct {
	DownloadURL string `json:"download_url"`
}

// ConfirmAction approves a pending action. The backend may answer with a
// download URL for a generated artifact.
func (s *Service) ConfirmAction(ctx context.Context, actionID string) (string, error) {
	var resp actionResponse
	err := s.gateway.Call(ctx, http.MethodPost, "/chat/actions/"+actionID+"/confirm", nil, &resp)
	if err != nil {
		return "", errors.Wrapf(err, "[ConfirmAction] action %s", actionID)
	}
	return resp.DownloadURL, nil
}

// RejectAction declines a pending action.
func (s *Service) RejectAction(ctx context.Context, actionID string) error {
	err := s.gateway.Call(ctx, http.MethodPost, "/chat/actions/"+actionID+"/reject", nil, nil)
	if err != nil {
		return errors.Wrapf(err, "[RejectAction] action %s", actionID)
	}
	return nil
}

type exportWordRequest struct {
	Content string `json:"content"`
	Title   string `json:"title"`
}

// ExportWord renders content into a Word document and saves it under dir.
// Returns the saved path.
func (s *Service) ExportWord(ctx context.Context, content, title, dir string) (string, error) {
	if title == "" {
		title = "Analiza"
	}
	fallback := strings.ReplaceAll(title, " ", "_") + ".docx"

	path, err := s.gateway.DownloadBlob(ctx, http.MethodPost, "/chat/export-word", exportWordRequest{Content: content, Title: title}, dir, fallback)
	if err != nil {
		return "", errors.Wrap(err, "[ExportWord] POST /chat/export-word")
	}
	return path, nil
}

type generateDocumentRequest struct {
	Content      string `json:"content"`
	TemplateType string `json:"template_type"`
}

// GenerateDocument renders content through a named backend template and
// saves the result under dir. Returns the saved path.
func (s *Service) GenerateDocument(ctx context.Context, content, templateType, dir string) (string, error) {
	fallback := "dokument_" + templateType + ".docx"

	path, err := s.gateway.DownloadBlob(ctx, http.MethodPost, "/chat/generate-document", generateDocumentRequest{Content: content, TemplateType: templateType}, dir, fallback)
	if err != nil {
		return "", errors.Wrap(err, "[GenerateDocument] POST /chat/generate-document")
	}
	return path, nil
}

// normalize fills the defaults the backend omits: agent role, content under
// "response", current timestamp.
func (s *Service) normalize(wire wireMessage) *Message {
	message := Message{
		Role:              wire.Role,
		Content:           wire.Content,
		Timestamp:         wire.Timestamp,
		ProjektID:         wire.ProjektID,
		NeedsConfirmation: wire.NeedsConfirmation,
		Actions:           wire.Actions,
		SuggestedCommands: wire.SuggestedCommands,
		Attachments:       wire.Attachments,
	}
	if message.Role == "" {
		message.Role = RoleAgent
	}
	if message.Content == "" {
		message.Content = wire.Response
	}
	if message.Timestamp == "" {
		message.Timestamp = s.nowTime().Format(time.RFC3339)
	}
	return &message
}
