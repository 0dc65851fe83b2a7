package api

import (
	"strconv"

	"github.com/danielgtaylor/huma/v2"

	"github.com/readingnook/readingnook-server/internal/http/response"
)

// EnvelopeTransformer wraps every huma response body in response.Envelope so
// huma operations and plain chi handlers answer in the same shape.
func EnvelopeTransformer(_ huma.Context, status string, v any) (any, error) {
	if apiErr, ok := v.(*APIError); ok {
		return response.Envelope{
			Error:   apiErr.Message,
			Code:    apiErr.Code,
			Details: apiErr.Details,
		}, nil
	}

	code, _ := strconv.Atoi(status)
	if code >= 400 {
		env := response.Envelope{Code: response.CodeForStatus(code)}
		if err, ok := v.(error); ok {
			env.Error = err.Error()
		}
		return env, nil
	}

	return response.Envelope{Success: true, Data: v}, nil
}
