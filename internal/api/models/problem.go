package models

import (
	"encoding/json"
	"net/http"
)

// Problem is an RFC 7807 error body, served as application/problem+json.
// TraceID carries the request ID so clients can quote it in reports.
type Problem struct {
	Type     string       `json:"type"`
	Title    string       `json:"title"`
	Status   int          `json:"status"`
	Detail   string       `json:"detail,omitempty"`
	Instance string       `json:"instance,omitempty"`
	TraceID  string       `json:"traceId"`
	Errors   []FieldError `json:"errors,omitempty"`
}

// FieldError points at one invalid input field, e.g. "parameters[1]".
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

const problemBase = "https://weatherodds.dev/problems/"

// Problem types.
const (
	ProblemTypeValidation       = problemBase + "validation-error"
	ProblemTypeNotFound         = problemBase + "not-found"
	ProblemTypeMethodNotAllowed = problemBase + "method-not-allowed"
	ProblemTypeUnsupportedMedia = problemBase + "unsupported-media-type"
	ProblemTypeTooManyRequests  = problemBase + "too-many-requests"
	ProblemTypeTLSRequired      = problemBase + "tls-required"
	ProblemTypeInternal         = problemBase + "internal-error"
	ProblemTypeUnavailable      = problemBase + "service-unavailable"
)

// problemKind pairs a type URI with its fixed title and status.
type problemKind struct {
	typ    string
	title  string
	status int
}

var (
	kindValidation       = problemKind{ProblemTypeValidation, "Validation error", http.StatusBadRequest}
	kindNotFound         = problemKind{ProblemTypeNotFound, "Not found", http.StatusNotFound}
	kindMethodNotAllowed = problemKind{ProblemTypeMethodNotAllowed, "Method not allowed", http.StatusMethodNotAllowed}
	kindUnsupportedMedia = problemKind{ProblemTypeUnsupportedMedia, "Unsupported media type", http.StatusUnsupportedMediaType}
	kindTooManyRequests  = problemKind{ProblemTypeTooManyRequests, "Too many requests", http.StatusTooManyRequests}
	kindTLSRequired      = problemKind{ProblemTypeTLSRequired, "TLS required", http.StatusForbidden}
	kindInternal         = problemKind{ProblemTypeInternal, "Internal server error", http.StatusInternalServerError}
	kindUnavailable      = problemKind{ProblemTypeUnavailable, "Service unavailable", http.StatusServiceUnavailable}
)

func (k problemKind) new(traceID, detail string) *Problem {
	return NewProblem(k.typ, k.title, k.status, traceID).WithDetail(detail)
}

// NewProblem creates a Problem without detail.
func NewProblem(problemType, title string, status int, traceID string) *Problem {
	return &Problem{
		Type:    problemType,
		Title:   title,
		Status:  status,
		TraceID: traceID,
	}
}

// WithDetail sets Detail.
func (p *Problem) WithDetail(detail string) *Problem {
	p.Detail = detail
	return p
}

// WithInstance sets Instance, normally the request path.
func (p *Problem) WithInstance(instance string) *Problem {
	p.Instance = instance
	return p
}

// WithErrors sets the field errors.
func (p *Problem) WithErrors(errors []FieldError) *Problem {
	p.Errors = errors
	return p
}

// Write sends the problem with its status code and request ID header.
func (p *Problem) Write(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/problem+json")
	if p.TraceID != "" {
		w.Header().Set("X-Request-Id", p.TraceID)
	}
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

// NewBadRequest creates a 400 validation problem.
func NewBadRequest(traceID, detail string, errors []FieldError) *Problem {
	return kindValidation.new(traceID, detail).WithErrors(errors)
}

func NewNotFound(traceID, detail string) *Problem {
	return kindNotFound.new(traceID, detail)
}

// NewMethodNotAllowed creates a 405 problem for method on path.
func NewMethodNotAllowed(traceID, method, path string) *Problem {
	return kindMethodNotAllowed.new(traceID, method+" is not supported on "+path)
}

func NewUnsupportedMediaType(traceID, detail string) *Problem {
	return kindUnsupportedMedia.new(traceID, detail)
}

func NewTooManyRequests(traceID, detail string) *Problem {
	return kindTooManyRequests.new(traceID, detail)
}

// NewTLSRequired creates a 403 problem for plain-HTTP requests.
func NewTLSRequired(traceID string) *Problem {
	return kindTLSRequired.new(traceID, "This endpoint requires HTTPS")
}

func NewInternalError(traceID, detail string) *Problem {
	return kindInternal.new(traceID, detail)
}

func NewServiceUnavailable(traceID, detail string) *Problem {
	return kindUnavailable.new(traceID, detail)
}
