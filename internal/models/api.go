package models

import (
	"time"
)

// AuthTestRequest is the body of POST /api/v1/web-crawlers/auth-test
type AuthTestRequest struct {
	URL         string      `json:"url" validate:"required,url"`
	Credentials Credentials `json:"credentials" validate:"required"`
}

// AuthTestResponse is the wire shape returned by the auth-test endpoint
type AuthTestResponse struct {
	Success              bool    `json:"success"`
	Message              string  `json:"message"`
	Authenticated        bool    `json:"authenticated"`
	LoginDetected        bool    `json:"login_detected"`
	FormFilled           bool    `json:"form_filled"`
	SubmissionSuccessful bool    `json:"submission_successful"`
	PostLoginURL         string  `json:"post_login_url,omitempty"`
	SessionSaved         bool    `json:"session_saved"`
	ExecutionTime        float64 `json:"execution_time"` // Seconds
	RequestID            string  `json:"request_id"`
	Timestamp            string  `json:"timestamp"` // RFC 3339
}

// FieldDetectionRequest is the body of POST /api/v1/web-crawlers/field-detection
type FieldDetectionRequest struct {
	URL         string       `json:"url" validate:"required,url"`
	Credentials *Credentials `json:"credentials,omitempty" validate:"omitempty"`
}

// DetectedFieldDTO is one field in a field-detection response
type DetectedFieldDTO struct {
	Name        string         `json:"name"`
	Type        string         `json:"type"`
	Selector    string         `json:"selector"`
	Description string         `json:"description,omitempty"`
	Columns     []string       `json:"columns,omitempty"`
	Options     []SelectOption `json:"options,omitempty"`
}

// FieldDetectionResponse is the wire shape returned by the field-detection endpoint
type FieldDetectionResponse struct {
	Success       bool               `json:"success"`
	Message       string             `json:"message,omitempty"`
	Fields        []DetectedFieldDTO `json:"fields"`
	Warning       string             `json:"warning,omitempty"` // Set exactly when the result is degraded
	ExecutionTime float64            `json:"execution_time"`    // Seconds
	RequestID     string             `json:"request_id"`
	Timestamp     string             `json:"timestamp"` // RFC 3339
}

// HealthResponse is the wire shape returned by the health endpoint
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Service   string `json:"service"`
}

// NewFieldDetectionResponse maps an engine DetectionResult onto the wire shape
func NewFieldDetectionResponse(result *DetectionResult) *FieldDetectionResponse {
	fields := make([]DetectedFieldDTO, 0, len(result.Fields))
	for _, f := range result.Fields {
		fields = append(fields, DetectedFieldDTO{
			Name:        f.Name,
			Type:        string(f.Kind),
			Selector:    f.Selector,
			Description: f.Description,
			Columns:     f.Columns,
			Options:     f.Options,
		})
	}

	resp := &FieldDetectionResponse{
		Success:       result.Success,
		Message:       result.Message,
		Fields:        fields,
		ExecutionTime: result.Duration.Seconds(),
		RequestID:     result.RequestID,
		Timestamp:     result.Timestamp.Format(time.RFC3339),
	}
	if result.Degraded {
		resp.Warning = "low-confidence result: generic selectors were substituted for undetected fields"
	}
	return resp
}

// NewAuthTestResponse maps an engine AuthResult onto the wire shape
func NewAuthTestResponse(result *AuthResult) *AuthTestResponse {
	return &AuthTestResponse{
		Success:              result.Success,
		Message:              result.Message,
		Authenticated:        result.Success,
		LoginDetected:        result.LoginDetected,
		FormFilled:           result.FormFilled,
		SubmissionSuccessful: result.SubmissionSuccessful,
		PostLoginURL:         result.PostLoginURL,
		SessionSaved:         result.SessionSaved,
		ExecutionTime:        result.Duration.Seconds(),
		RequestID:            result.RequestID,
		Timestamp:            result.Timestamp.Format(time.RFC3339),
	}
}
