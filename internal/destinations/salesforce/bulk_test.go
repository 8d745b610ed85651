package salesforce

import (
	"bytes"
	"context"
	"net/http"
	"testing"

	"github.com/joshu-sajeev/destinations/common"
	"github.com/joshu-sajeev/destinations/internal/actions"
	"github.com/joshu-sajeev/destinations/internal/config"
	"github.com/joshu-sajeev/destinations/internal/dto"
	"github.com/rs/zerolog"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func golden(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata"),
		goldie.WithNameSuffix(".golden"),
	)
}

func upsertBatch() []Record {
	first := OpportunityRecord(&dto.OpportunityPayload{
		Operation:            config.OperationUpsert,
		EnableBatching:       true,
		BulkUpsertExternalID: &dto.BulkUpsertExternalID{ExternalIDName: "External_Id__c", ExternalIDValue: "ext-1"},
		CloseDate:            "2024-01-31",
		Name:                 "Big deal",
		StageName:            "Prospecting",
		Amount:               "1000",
	})
	second := OpportunityRecord(&dto.OpportunityPayload{
		Operation:            config.OperationUpsert,
		EnableBatching:       true,
		BulkUpsertExternalID: &dto.BulkUpsertExternalID{ExternalIDName: "External_Id__c", ExternalIDValue: "ext-2"},
		CloseDate:            "2024-02-29",
		Name:                 "Small, deal",
		StageName:            "Closed Won",
		Description:          `He said "hi"`,
	})
	return []Record{first, second}
}

func TestBuildCSV_Upsert(t *testing.T) {
	recs := upsertBatch()
	plan, err := planBulk(recs[0])
	require.NoError(t, err)

	data, err := buildCSV(recs, plan)
	require.NoError(t, err)

	golden(t).Assert(t, "bulk_upsert", data)
}

func TestBuildCSV_Insert(t *testing.T) {
	recs := []Record{
		OpportunityRecord(&dto.OpportunityPayload{
			Operation:    config.OperationCreate,
			CloseDate:    "2024-01-31",
			Name:         "Big deal",
			StageName:    "Prospecting",
			CustomFields: map[string]any{"Lead_Source__c": "Web", "Probability": float64(40)},
		}),
		OpportunityRecord(&dto.OpportunityPayload{
			Operation: config.OperationCreate,
			CloseDate: "2024-03-01",
			Name:      "Other",
			StageName: "Qualification",
		}),
	}
	plan, err := planBulk(recs[0])
	require.NoError(t, err)

	data, err := buildCSV(recs, plan)
	require.NoError(t, err)

	golden(t).Assert(t, "bulk_insert", data)
}

func TestPlanBulk(t *testing.T) {
	tests := []struct {
		name    string
		rec     Record
		wantOp  string
		wantKey string
		wantErr bool
	}{
		{name: "create", rec: Record{Operation: config.OperationCreate}, wantOp: "insert"},
		{name: "update", rec: Record{Operation: config.OperationUpdate}, wantOp: "update", wantKey: "Id"},
		{
			name:    "upsert",
			rec:     Record{Operation: config.OperationUpsert, BulkUpsertExternalID: &dto.BulkUpsertExternalID{ExternalIDName: "Ext__c"}},
			wantOp:  "upsert",
			wantKey: "Ext__c",
		},
		{name: "upsert without external id", rec: Record{Operation: config.OperationUpsert}, wantErr: true},
		{name: "delete", rec: Record{Operation: config.OperationDelete}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := planBulk(tt.rec)
			if tt.wantErr {
				assert.True(t, common.HasCode(err, common.CodeInvalidInput), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantOp, plan.operation)
			assert.Equal(t, tt.wantKey, plan.keyColumn)
		})
	}
}

func TestBuildCSV_UpdateNeedsRecordID(t *testing.T) {
	recs := []Record{
		{Operation: config.OperationUpdate, BulkUpdateRecordID: "006A", Fields: map[string]any{"Name": "a"}},
		{Operation: config.OperationUpdate, Fields: map[string]any{"Name": "b"}},
	}
	plan, err := planBulk(recs[0])
	require.NoError(t, err)

	_, err = buildCSV(recs, plan)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "record 1")
	assert.True(t, common.HasCode(err, common.CodeInvalidInput))
}

func TestRESTClient_BulkHandler(t *testing.T) {
	org := &fakeOrg{}
	c := newTestClient(t, org)

	var logs bytes.Buffer
	opts := BulkOptions{
		ShouldLog: true,
		Logger:    zerolog.New(&logs),
		Stats:     actions.LogStats{Logger: zerolog.New(&logs).Level(zerolog.DebugLevel)},
	}

	res, err := c.BulkHandler(context.Background(), upsertBatch(), "Opportunity", opts)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)

	calls := org.calls()
	require.Len(t, calls, 3)

	assert.Equal(t, "POST /services/data/v53.0/jobs/ingest", calls[0].Method+" "+calls[0].Path)
	assert.JSONEq(t, `{
		"object": "Opportunity",
		"operation": "upsert",
		"externalIdFieldName": "External_Id__c",
		"contentType": "CSV",
		"lineEnding": "LF"
	}`, calls[0].Body)

	assert.Equal(t, "PUT /services/data/v53.0/jobs/ingest/7501x000002/batches", calls[1].Method+" "+calls[1].Path)
	golden(t).Assert(t, "bulk_upsert", []byte(calls[1].Body))

	assert.Equal(t, "PATCH /services/data/v53.0/jobs/ingest/7501x000002", calls[2].Method+" "+calls[2].Path)
	assert.JSONEq(t, `{"state":"UploadComplete"}`, calls[2].Body)

	assert.Contains(t, logs.String(), `"job_id":"7501x000002"`)
	assert.Contains(t, logs.String(), `"metric":"bulk_job.created"`)
}

func TestRESTClient_BulkHandler_QuietWithoutLogging(t *testing.T) {
	org := &fakeOrg{}
	c := newTestClient(t, org)

	var logs bytes.Buffer
	_, err := c.BulkHandler(context.Background(), upsertBatch(), "Opportunity", BulkOptions{Logger: zerolog.New(&logs)})

	require.NoError(t, err)
	assert.Empty(t, logs.String())
}

func TestRESTClient_BulkHandler_AbortsOnUploadFailure(t *testing.T) {
	org := &fakeOrg{status: map[string]int{
		"PUT /services/data/v53.0/jobs/ingest/7501x000002/batches": http.StatusBadRequest,
	}}
	c := newTestClient(t, org)

	_, err := c.BulkHandler(context.Background(), upsertBatch(), "Opportunity", BulkOptions{})

	require.Error(t, err)
	assert.True(t, common.HasCode(err, common.CodeUpstream))

	calls := org.calls()
	require.Len(t, calls, 3)
	assert.Equal(t, http.MethodPatch, calls[2].Method)
	assert.JSONEq(t, `{"state":"Aborted"}`, calls[2].Body)
}

func TestRESTClient_BulkHandler_AbortSurvivesCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	org := &fakeOrg{
		status: map[string]int{
			"PUT /services/data/v53.0/jobs/ingest/7501x000002/batches": http.StatusInternalServerError,
		},
		onRequest: func(r *http.Request) {
			if r.Method == http.MethodPut {
				cancel()
			}
		},
	}
	c := newTestClient(t, org)

	_, err := c.BulkHandler(ctx, upsertBatch(), "Opportunity", BulkOptions{})
	require.Error(t, err)

	calls := org.calls()
	require.Len(t, calls, 3)
	assert.Equal(t, "PATCH /services/data/v53.0/jobs/ingest/7501x000002", calls[2].Method+" "+calls[2].Path)
	assert.JSONEq(t, `{"state":"Aborted"}`, calls[2].Body)
}

func TestRESTClient_BulkHandler_LogsFailedAbort(t *testing.T) {
	org := &fakeOrg{status: map[string]int{
		"PUT /services/data/v53.0/jobs/ingest/7501x000002/batches": http.StatusBadRequest,
		"PATCH /services/data/v53.0/jobs/ingest/7501x000002":       http.StatusServiceUnavailable,
	}}
	c := newTestClient(t, org)

	var logs bytes.Buffer
	opts := BulkOptions{
		ShouldLog: true,
		Logger:    zerolog.New(&logs),
		Stats:     actions.LogStats{Logger: zerolog.New(&logs).Level(zerolog.DebugLevel)},
	}
	_, err := c.BulkHandler(context.Background(), upsertBatch(), "Opportunity", opts)

	assert.True(t, common.HasCode(err, common.CodeUpstream))
	assert.Contains(t, err.Error(), "rejected")
	assert.Contains(t, logs.String(), "bulk job abort failed")
	assert.Contains(t, logs.String(), `"metric":"bulk_job.abort_failed"`)
}

func TestBuildCSV_RejectsMalformedRecordID(t *testing.T) {
	recs := []Record{
		{Operation: config.OperationUpdate, BulkUpdateRecordID: "006A", Fields: map[string]any{"Name": "a"}},
		{Operation: config.OperationUpdate, BulkUpdateRecordID: "006,B\nId", Fields: map[string]any{"Name": "b"}},
	}
	plan, err := planBulk(recs[0])
	require.NoError(t, err)

	_, err = buildCSV(recs, plan)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "record 1")
	assert.True(t, common.HasCode(err, common.CodeInvalidInput))
}

func TestChunkRecords(t *testing.T) {
	recs := make([]Record, 5)

	tests := []struct {
		name string
		size int
		want []int
	}{
		{name: "unset", size: 0, want: []int{5}},
		{name: "larger than batch", size: 10, want: []int{5}},
		{name: "exact", size: 5, want: []int{5}},
		{name: "uneven", size: 2, want: []int{2, 2, 1}},
		{name: "one per job", size: 1, want: []int{1, 1, 1, 1, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []int
			for _, c := range chunkRecords(recs, tt.size) {
				got = append(got, len(c))
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRESTClient_BulkHandler_SplitsByBatchSize(t *testing.T) {
	org := &fakeOrg{}
	c := newTestClient(t, org)

	recs := make([]Record, 0, 5)
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		recs = append(recs, Record{
			Operation:      config.OperationCreate,
			EnableBatching: true,
			BatchSize:      2,
			Fields:         map[string]any{"Name": name},
		})
	}

	res, err := c.BulkHandler(context.Background(), recs, "Opportunity", BulkOptions{})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)

	calls := org.calls()
	require.Len(t, calls, 9)
	var uploads []string
	for _, call := range calls {
		if call.Method == http.MethodPut {
			uploads = append(uploads, call.Body)
		}
	}
	assert.Equal(t, []string{"Name\na\nb\n", "Name\nc\nd\n", "Name\ne\n"}, uploads)
}

func TestRESTClient_BulkHandler_RejectsBeforeAnyJob(t *testing.T) {
	org := &fakeOrg{}
	c := newTestClient(t, org)

	recs := []Record{
		{Operation: config.OperationUpdate, EnableBatching: true, BatchSize: 1, BulkUpdateRecordID: "006A"},
		{Operation: config.OperationUpdate, EnableBatching: true, BatchSize: 1},
	}

	_, err := c.BulkHandler(context.Background(), recs, "Opportunity", BulkOptions{})

	assert.True(t, common.HasCode(err, common.CodeInvalidInput), "got %v", err)
	assert.Contains(t, err.Error(), "bulk job 1")
	assert.Empty(t, org.calls())
}

func TestRESTClient_BulkHandler_Rejects(t *testing.T) {
	tests := []struct {
		name string
		recs []Record
	}{
		{name: "empty", recs: nil},
		{name: "batching disabled", recs: []Record{{Operation: config.OperationCreate}}},
		{name: "delete", recs: []Record{{Operation: config.OperationDelete, EnableBatching: true}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			org := &fakeOrg{}
			c := newTestClient(t, org)

			_, err := c.BulkHandler(context.Background(), tt.recs, "Opportunity", BulkOptions{})

			assert.True(t, common.HasCode(err, common.CodeInvalidInput), "got %v", err)
			assert.Empty(t, org.calls())
		})
	}
}
