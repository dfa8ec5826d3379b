package httpx

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pumpline-erp/pumpline/internal/platform/backend"
)

func TestRespondErrorMapsBackendErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		detail string
	}{
		{"local validation", fmt.Errorf("%w: shift id", ErrValidation), http.StatusBadRequest, "validation failed: shift id"},
		{"backend validation", &backend.APIError{Status: 422, Message: "Dip required"}, http.StatusBadRequest, "Dip required"},
		{"backend conflict", &backend.APIError{Status: 409, Message: "Shift already closed"}, http.StatusConflict, "Shift already closed"},
		{"unauthorized", &backend.APIError{Status: 401}, http.StatusUnauthorized, ""},
		{"network", fmt.Errorf("%w: GET /shift", backend.ErrNetwork), http.StatusBadGateway, ""},
		{"unknown", fmt.Errorf("boom"), http.StatusInternalServerError, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			RespondError(rec, tc.err)
			assert.Equal(t, tc.status, rec.Code)
			var body ProblemDetail
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tc.status, body.Status)
			if tc.detail != "" {
				assert.Equal(t, tc.detail, body.Detail)
			}
		})
	}
}
