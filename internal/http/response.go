package http

type Status string

const (
	// StatusOK is used for health-check responses.
	StatusOK Status = "OK"

	// StatusSuccess indicates an operation completed successfully.
	StatusSuccess Status = "success"

	// StatusError indicates an operation failed.
	StatusError Status = "error"
)

// Response represents the standard API response format.
type Response struct {
	Status    Status `json:"status,omitempty"`
	Value     any    `json:"value,omitempty"`
	Error     string `json:"error,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

func NewOKResponse() Response {
	return Response{Status: StatusOK}
}

func NewSuccessResponse() Response {
	return Response{Status: StatusSuccess}
}

// NewValueResponse wraps a decoded cache value. Raw payloads are sent as text.
func NewValueResponse(value any) Response {
	return Response{Status: StatusSuccess, Value: jsonable(value)}
}

func NewErrorResponse(err string) Response {
	return Response{Status: StatusError, Error: err}
}

// jsonable converts []byte to string, recursively, so raw payloads are not base64'd.
func jsonable(v any) any {
	switch t := v.(type) {
	case []byte:
		return string(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = jsonable(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = jsonable(item)
		}
		return out
	}
	return v
}
