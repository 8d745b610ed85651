package actions

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/joshu-sajeev/destinations/common"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type samplePayload struct {
	Name  string `json:"name" validate:"required"`
	Count int    `json:"count" validate:"gte=0"`
}

func sampleDefinition(calls *[]string) *Definition {
	return &Definition{
		Name:     "sample",
		Title:    "Sample",
		Validate: Validate[samplePayload](),
		Perform: Handle(func(ctx context.Context, ec ExecContext, p *samplePayload) (*Result, error) {
			*calls = append(*calls, "single:"+p.Name)
			return &Result{StatusCode: http.StatusOK}, nil
		}),
		PerformBatch: HandleBatch(func(ctx context.Context, ec ExecContext, ps []*samplePayload) (*Result, error) {
			for _, p := range ps {
				*calls = append(*calls, "batch:"+p.Name)
			}
			return &Result{StatusCode: http.StatusAccepted}, nil
		}),
	}
}

func TestRegistry_Lookup(t *testing.T) {
	var calls []string
	reg := NewRegistry(
		&Destination{Name: "zeta", Actions: []*Definition{sampleDefinition(&calls)}},
		&Destination{Name: "alpha"},
		nil,
	)

	assert.Equal(t, []string{"alpha", "zeta"}, reg.Names())
	require.Len(t, reg.Destinations(), 2)
	assert.Equal(t, "alpha", reg.Destinations()[0].Name)

	def, err := reg.Lookup("zeta", "sample")
	require.NoError(t, err)
	assert.Equal(t, "Sample", def.Title)

	_, err = reg.Lookup("missing", "sample")
	var apiErr common.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "invalid destination", apiErr.Message)
	assert.Equal(t, []string{"alpha", "zeta"}, apiErr.Fields["allowed"])

	_, err = reg.Lookup("zeta", "other")
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "invalid action", apiErr.Message)
	assert.Equal(t, []string{"sample"}, apiErr.Fields["allowed"])
}

func TestDefinition_Run(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		batch     bool
		noBatch   bool
		wantCalls []string
		wantErr   string
	}{
		{name: "single", raw: `{"name":"a"}`, wantCalls: []string{"single:a"}},
		{name: "single invalid", raw: `{"count":1}`, wantErr: "payload validation failed"},
		{name: "single malformed", raw: `{`, wantErr: "invalid payload format"},
		{name: "batch", raw: `[{"name":"a"},{"name":"b"}]`, batch: true, wantCalls: []string{"batch:a", "batch:b"}},
		{name: "batch names failing index", raw: `[{"name":"a"},{"count":-1}]`, batch: true, wantErr: "batch[1]: payload validation failed"},
		{name: "batch not an array", raw: `{"name":"a"}`, batch: true, wantErr: "batch payload must be a JSON array"},
		{name: "batch unsupported", raw: `[{"name":"a"}]`, batch: true, noBatch: true, wantErr: "does not support batching"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls []string
			def := sampleDefinition(&calls)
			if tt.noBatch {
				def.PerformBatch = nil
			}

			_, err := def.Run(context.Background(), ExecContext{}, json.RawMessage(tt.raw), tt.batch)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.Empty(t, calls)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantCalls, calls)
		})
	}
}

func TestExecContext_Defaults(t *testing.T) {
	var seen ExecContext
	def := &Definition{
		Name: "inspect",
		Perform: func(ctx context.Context, ec ExecContext, raw json.RawMessage) (*Result, error) {
			seen = ec
			return nil, nil
		},
	}

	_, err := def.Run(context.Background(), ExecContext{Features: map[string]bool{"x": true}}, json.RawMessage(`{}`), false)
	require.NoError(t, err)
	assert.IsType(t, NopStats{}, seen.Stats)
	assert.True(t, seen.Enabled("x"))
	assert.False(t, seen.Enabled("y"))
}

func TestSend(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"id":"1"}`))
		case "/rejected":
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`[{"errorCode":"REQUIRED_FIELD_MISSING"}]`))
		default:
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}))
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/ok", nil)
	res, body, err := Send(srv.Client(), req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, res.StatusCode)
	assert.JSONEq(t, `{"id":"1"}`, string(body))

	req, _ = http.NewRequest(http.MethodPost, srv.URL+"/rejected", nil)
	res, _, err = Send(srv.Client(), req)
	var apiErr common.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, common.CodeUpstream, apiErr.Code)
	assert.Contains(t, apiErr.Message, "REQUIRED_FIELD_MISSING")
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.False(t, common.IsRetryable(err))

	req, _ = http.NewRequest(http.MethodGet, srv.URL+"/down", nil)
	_, _, err = Send(srv.Client(), req)
	assert.True(t, common.IsRetryable(err))

	req, _ = http.NewRequest(http.MethodGet, "http://127.0.0.1:1/unreachable", nil)
	_, _, err = Send(srv.Client(), req)
	require.Error(t, err)
	assert.True(t, common.IsRetryable(err))
}

func TestTruncateRaw(t *testing.T) {
	assert.Equal(t, "", TruncateRaw("abc", 0))
	assert.Equal(t, "abc", TruncateRaw("abc", 5))
	assert.Equal(t, "hé", TruncateRaw("héllo", 2))
}

func TestLogStats(t *testing.T) {
	var buf bytes.Buffer
	stats := LogStats{Logger: zerolog.New(&buf).Level(zerolog.DebugLevel)}

	stats.Incr("bulk_job.created", 2, "operation:upsert", "object:Opportunity")
	stats.Histogram("bulk_job.rows", 10)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"metric":"bulk_job.created"`)
	assert.Contains(t, lines[0], `"tags":"object:Opportunity,operation:upsert"`)
	assert.Contains(t, lines[1], `"value":10`)
}
