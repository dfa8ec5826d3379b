package backend

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type station struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type recordingObserver struct {
	routes   []string
	statuses []int
}

func (o *recordingObserver) ObserveBackendCall(method, route string, status int, elapsed time.Duration) {
	o.routes = append(o.routes, method+" "+route)
	o.statuses = append(o.statuses, status)
}

func TestClientDecodesEnvelopeAndSendsToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tkn", r.Header.Get("Authorization"))
		assert.Equal(t, "/station/7", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"id":7,"name":"Kilimani"},"message":"ok"}`))
	}))
	defer srv.Close()

	obs := &recordingObserver{}
	client := NewClient(srv.URL, time.Second, WithObserver(obs))
	var out station
	err := client.Get(WithToken(context.Background(), "tkn"), "/station/7", nil, &out)
	require.NoError(t, err)
	assert.Equal(t, station{ID: 7, Name: "Kilimani"}, out)
	assert.Equal(t, []string{"GET /station/:id"}, obs.routes)
	assert.Equal(t, []int{http.StatusOK}, obs.statuses)
}

func TestClientDecodesBarePayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id":1,"name":"A"},{"id":2,"name":"B"}]`))
	}))
	defer srv.Close()

	var out []station
	require.NoError(t, NewClient(srv.URL, time.Second).Get(context.Background(), "/station", nil, &out))
	assert.Len(t, out, 2)
}

func TestClientNullEnvelopeData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":null,"message":"ok"}`))
	}))
	defer srv.Close()
	client := NewClient(srv.URL, time.Second)

	var list []station
	require.NoError(t, client.Get(context.Background(), "/station", nil, &list))
	assert.Empty(t, list)

	one := station{ID: 3, Name: "kept"}
	require.NoError(t, client.Get(context.Background(), "/station/3", nil, &one))
	assert.Equal(t, station{ID: 3, Name: "kept"}, one)
}

func TestClientMapsErrorResponses(t *testing.T) {
	cases := []struct {
		name     string
		status   int
		body     string
		sentinel error
		message  string
	}{
		{name: "unauthorized", status: http.StatusUnauthorized, body: `{"message":"token expired"}`, sentinel: ErrUnauthorized, message: "token expired"},
		{name: "validation", status: http.StatusUnprocessableEntity, body: `{"error":"name is required","errors":{"name":"required"}}`, sentinel: ErrValidation, message: "name is required"},
		{name: "forbidden without body", status: http.StatusForbidden, body: ``, sentinel: ErrForbidden, message: "You do not have permission to perform this action."},
		{name: "server error hides detail", status: http.StatusInternalServerError, body: `{"message":"pq: deadlock"}`, sentinel: nil, message: fallbackMessage},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			err := NewClient(srv.URL, time.Second).Post(context.Background(), "/company", map[string]string{"name": ""}, nil)
			require.Error(t, err)
			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tc.status, apiErr.Status)
			if tc.sentinel != nil {
				assert.ErrorIs(t, err, tc.sentinel)
			}
			assert.Equal(t, tc.message, UserMessage(err))
		})
	}
}

func TestClientValidationFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"invalid","errors":{"email":"already taken"}}`))
	}))
	defer srv.Close()

	err := NewClient(srv.URL, time.Second).Post(context.Background(), "/user", struct{}{}, nil)
	assert.Equal(t, map[string]string{"email": "already taken"}, FieldErrors(err))
}

func TestClientNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	err := NewClient(url, time.Second).Get(context.Background(), "/shift", nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNetwork)
	assert.Equal(t, networkMessage, UserMessage(err))
}

func TestIdempotencyKeyHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "abc-123", r.Header.Get("Idempotency-Key"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	err := NewClient(srv.URL, time.Second).Post(context.Background(), "/shift/3/close", map[string]int{"a": 1}, nil, IdempotencyKey("abc-123"))
	require.NoError(t, err)
}

func TestRouteLabel(t *testing.T) {
	assert.Equal(t, "/shift/:id/close", routeLabel("/shift/12/close"))
	assert.Equal(t, "/supplier-debt/accounts", routeLabel("/supplier-debt/accounts?station_id=4"))
	assert.Equal(t, "/a/:id/:id", routeLabel("/a/1/2"))
}
