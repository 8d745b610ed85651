package salesforce

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"

	"github.com/joshu-sajeev/destinations/common"
	"github.com/joshu-sajeev/destinations/internal/actions"
	"github.com/joshu-sajeev/destinations/internal/config"
)

// Bulk API 2.0 job states.
const (
	jobStateUploadComplete = "UploadComplete"
	jobStateAborted        = "Aborted"
)

type jobRequest struct {
	Object              string `json:"object"`
	Operation           string `json:"operation"`
	ExternalIDFieldName string `json:"externalIdFieldName,omitempty"`
	ContentType         string `json:"contentType"`
	LineEnding          string `json:"lineEnding"`
}

type jobResponse struct {
	ID    string `json:"id"`
	State string `json:"state"`
}

// bulkPlan is the job shape derived from the first record of a batch.
type bulkPlan struct {
	operation  string
	keyColumn  string
	externalID string
	key        func(Record) (string, error)
}

// BulkHandler uploads recs as Bulk API 2.0 ingest jobs of at most
// recs[0].BatchSize rows each. Every job is created, its CSV uploaded and the
// job closed; a failed upload aborts that job. Jobs already closed stay
// closed when a later one fails.
func (c *RESTClient) BulkHandler(ctx context.Context, recs []Record, object string, opts BulkOptions) (*actions.Result, error) {
	if len(recs) == 0 {
		return nil, bulkError("Bulk operation triggered with no records")
	}
	if !recs[0].EnableBatching {
		return nil, bulkError("Bulk operation triggered where enable_batching is false")
	}

	plan, err := planBulk(recs[0])
	if err != nil {
		return nil, err
	}

	chunks := chunkRecords(recs, recs[0].BatchSize)
	payloads := make([][]byte, 0, len(chunks))
	for i, chunk := range chunks {
		data, err := buildCSV(chunk, plan)
		if err != nil {
			if len(chunks) > 1 {
				return nil, fmt.Errorf("bulk job %d: %w", i, err)
			}
			return nil, err
		}
		payloads = append(payloads, data)
	}

	if opts.Stats == nil {
		opts.Stats = actions.NopStats{}
	}

	var res *actions.Result
	for i, data := range payloads {
		res, err = c.runJob(ctx, object, plan, data, len(chunks[i]), opts)
		if err != nil {
			if len(payloads) > 1 {
				return nil, fmt.Errorf("bulk job %d of %d: %w", i+1, len(payloads), err)
			}
			return nil, err
		}
	}
	return res, nil
}

func (c *RESTClient) runJob(ctx context.Context, object string, plan bulkPlan, data []byte, rows int, opts BulkOptions) (*actions.Result, error) {
	job, err := c.createJob(ctx, object, plan)
	if err != nil {
		return nil, err
	}

	stats := opts.Stats
	tags := []string{"object:" + object, "operation:" + plan.operation}

	if opts.ShouldLog {
		opts.Logger.Info().
			Str("job_id", job.ID).
			Str("object", object).
			Str("operation", plan.operation).
			Int("rows", rows).
			Msg("bulk job created")
		stats.Incr("bulk_job.created", 1, tags...)
		stats.Histogram("bulk_job.rows", float64(rows), tags...)
	}

	if err := c.uploadCSV(ctx, job.ID, data); err != nil {
		if opts.ShouldLog {
			opts.Logger.Error().Err(err).Str("job_id", job.ID).Msg("bulk upload failed, aborting job")
			stats.Incr("bulk_job.upload_failed", 1, tags...)
		}
		// Abort even when ctx is done.
		if _, abortErr := c.setJobState(context.WithoutCancel(ctx), job.ID, jobStateAborted); abortErr != nil && opts.ShouldLog {
			opts.Logger.Error().Err(abortErr).Str("job_id", job.ID).Msg("bulk job abort failed")
			stats.Incr("bulk_job.abort_failed", 1, tags...)
		}
		return nil, err
	}

	res, err := c.setJobState(ctx, job.ID, jobStateUploadComplete)
	if err != nil {
		return nil, err
	}
	if opts.ShouldLog {
		stats.Incr("bulk_job.closed", 1, tags...)
	}
	return res, nil
}

// chunkRecords splits recs into runs of at most size records. A size of zero
// or less keeps them together.
func chunkRecords(recs []Record, size int) [][]Record {
	if size <= 0 || size >= len(recs) {
		return [][]Record{recs}
	}
	var chunks [][]Record
	for start := 0; start < len(recs); start += size {
		chunks = append(chunks, recs[start:min(start+size, len(recs))])
	}
	return chunks
}

func planBulk(first Record) (bulkPlan, error) {
	switch first.Operation {
	case config.OperationCreate:
		return bulkPlan{operation: "insert"}, nil
	case config.OperationUpdate:
		return bulkPlan{
			operation: "update",
			keyColumn: "Id",
			key: func(r Record) (string, error) {
				if r.BulkUpdateRecordID == "" {
					return "", bulkError("Undefined bulkUpdateRecordId when using bulk update")
				}
				if !recordIDPattern.MatchString(r.BulkUpdateRecordID) {
					return "", bulkError(fmt.Sprintf("Invalid bulkUpdateRecordId %q", r.BulkUpdateRecordID))
				}
				return r.BulkUpdateRecordID, nil
			},
		}, nil
	case config.OperationUpsert:
		if first.BulkUpsertExternalID == nil || first.BulkUpsertExternalID.ExternalIDName == "" {
			return bulkPlan{}, bulkError("Undefined bulkUpsertExternalId.externalIdName when using bulk upsert")
		}
		name := first.BulkUpsertExternalID.ExternalIDName
		return bulkPlan{
			operation:  "upsert",
			keyColumn:  name,
			externalID: name,
			key: func(r Record) (string, error) {
				if r.BulkUpsertExternalID == nil || r.BulkUpsertExternalID.ExternalIDValue == "" {
					return "", bulkError("Undefined bulkUpsertExternalId.externalIdValue when using bulk upsert")
				}
				return r.BulkUpsertExternalID.ExternalIDValue, nil
			},
		}, nil
	default:
		return bulkPlan{}, bulkError(fmt.Sprintf("Unsupported bulk operation %q", first.Operation))
	}
}

// buildCSV renders recs with the key column first and the remaining fields in
// sorted order. A field a record lacks is left empty, which Salesforce treats
// as "leave unchanged".
func buildCSV(recs []Record, plan bulkPlan) ([]byte, error) {
	seen := map[string]bool{}
	var cols []string
	for _, r := range recs {
		for k := range r.Fields {
			if k == plan.keyColumn || seen[k] {
				continue
			}
			seen[k] = true
			cols = append(cols, k)
		}
	}
	sort.Strings(cols)

	header := cols
	if plan.keyColumn != "" {
		header = append([]string{plan.keyColumn}, cols...)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return nil, err
	}

	for i, r := range recs {
		row := make([]string, 0, len(header))
		if plan.key != nil {
			k, err := plan.key(r)
			if err != nil {
				return nil, fmt.Errorf("record %d: %w", i, err)
			}
			row = append(row, k)
		}
		for _, col := range cols {
			row = append(row, csvValue(r.Fields[col]))
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}

	w.Flush()
	return buf.Bytes(), w.Error()
}

func csvValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}

func (c *RESTClient) createJob(ctx context.Context, object string, plan bulkPlan) (*jobResponse, error) {
	req := jobRequest{
		Object:              object,
		Operation:           plan.operation,
		ExternalIDFieldName: plan.externalID,
		ContentType:         "CSV",
		LineEnding:          "LF",
	}

	b, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/jobs/ingest", bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	_, body, err := actions.Send(c.http, httpReq)
	if err != nil {
		return nil, err
	}

	var job jobResponse
	if err := json.Unmarshal(body, &job); err != nil {
		return nil, fmt.Errorf("decode bulk job: %w", err)
	}
	if job.ID == "" {
		return nil, fmt.Errorf("bulk job created without id")
	}
	return &job, nil
}

func (c *RESTClient) uploadCSV(ctx context.Context, jobID string, data []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+"/jobs/ingest/"+jobID+"/batches", bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "text/csv")

	_, _, err = actions.Send(c.http, req)
	return err
}

func (c *RESTClient) setJobState(ctx context.Context, jobID, state string) (*actions.Result, error) {
	return c.do(ctx, http.MethodPatch, "/jobs/ingest/"+jobID, map[string]string{"state": state})
}

func bulkError(msg string) error {
	return common.NewIntegrationError(msg, common.CodeInvalidInput, http.StatusBadRequest)
}
