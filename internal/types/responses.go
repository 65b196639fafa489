// Package types defines the API request and response envelopes
package types

// Slug is a type for the slug field in the response. It lets clients
// classify a response without inspecting HTTP status codes.
type Slug string

const (
	SuccessSlug      Slug = "success"
	InvalidInputSlug Slug = "invalid-input"
	NotFoundSlug     Slug = "not-found"
	ServerErrorSlug  Slug = "server-error"
)

// Response is the envelope type for all API responses
type Response struct {
	Slug  Slug        `json:"slug"`
	Error string      `json:"error,omitempty"`
	Data  interface{} `json:"data,omitempty"`
}

// Success returns a Response with the SuccessSlug and the data
func Success(data interface{}) Response {
	return Response{Slug: SuccessSlug, Data: data}
}

// ErrInvalidInput returns a Response with the InvalidInputSlug and the error message
func ErrInvalidInput(msg string) Response {
	return Response{Slug: InvalidInputSlug, Error: msg}
}

// ErrNotFound returns a Response with the NotFoundSlug and the error message
func ErrNotFound(msg string) Response {
	return Response{Slug: NotFoundSlug, Error: msg}
}

// ErrServer returns a Response with the ServerErrorSlug and the error message
func ErrServer(msg string) Response {
	return Response{Slug: ServerErrorSlug, Error: msg}
}
