package salesforce

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/joshu-sajeev/destinations/common"
	"github.com/joshu-sajeev/destinations/internal/actions"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

// Client performs record mutations against a Salesforce org.
type Client interface {
	CreateRecord(ctx context.Context, rec Record, object string) (*actions.Result, error)
	UpdateRecord(ctx context.Context, rec Record, object string) (*actions.Result, error)
	UpsertRecord(ctx context.Context, rec Record, object string) (*actions.Result, error)
	DeleteRecord(ctx context.Context, rec Record, object string) (*actions.Result, error)
	BulkHandler(ctx context.Context, recs []Record, object string, opts BulkOptions) (*actions.Result, error)
}

// BulkOptions carries per-batch observability handles.
type BulkOptions struct {
	ShouldLog bool
	Stats     actions.Stats
	Logger    zerolog.Logger
}

const DefaultAPIVersion = "v53.0"

// RESTClient talks to the REST and Bulk API 2.0 endpoints of one org.
type RESTClient struct {
	baseURL string
	http    actions.HTTPClient
}

type Option func(*clientOptions)

type clientOptions struct {
	apiVersion string
	base       *http.Client
}

// WithAPIVersion overrides DefaultAPIVersion.
func WithAPIVersion(v string) Option {
	return func(o *clientOptions) {
		if v != "" {
			o.apiVersion = v
		}
	}
}

// WithHTTPClient sets the transport wrapped by the bearer token client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *clientOptions) {
		o.base = c
	}
}

// NewRESTClient returns a client for instanceURL authenticating with a
// static access token. Token refresh is left to whoever supplies it.
func NewRESTClient(ctx context.Context, instanceURL, accessToken string, opts ...Option) *RESTClient {
	o := clientOptions{apiVersion: DefaultAPIVersion}
	for _, opt := range opts {
		opt(&o)
	}

	if o.base != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, o.base)
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})

	return &RESTClient{
		baseURL: strings.TrimRight(instanceURL, "/") + "/services/data/" + o.apiVersion,
		http:    oauth2.NewClient(ctx, ts),
	}
}

func (c *RESTClient) CreateRecord(ctx context.Context, rec Record, object string) (*actions.Result, error) {
	return c.do(ctx, http.MethodPost, "/sobjects/"+object, rec.Fields)
}

func (c *RESTClient) UpdateRecord(ctx context.Context, rec Record, object string) (*actions.Result, error) {
	path, err := c.recordPath(ctx, rec, object)
	if err != nil {
		return nil, err
	}
	return c.do(ctx, http.MethodPatch, path, rec.Fields)
}

// UpsertRecord updates the record matched by traits, or creates one when
// nothing matches.
func (c *RESTClient) UpsertRecord(ctx context.Context, rec Record, object string) (*actions.Result, error) {
	ids, err := c.lookup(ctx, rec, object)
	if err != nil {
		return nil, err
	}

	switch len(ids) {
	case 0:
		return c.CreateRecord(ctx, rec, object)
	case 1:
		path, err := recordPath(object, ids[0])
		if err != nil {
			return nil, err
		}
		return c.do(ctx, http.MethodPatch, path, rec.Fields)
	default:
		return nil, multipleRecords(object)
	}
}

func (c *RESTClient) DeleteRecord(ctx context.Context, rec Record, object string) (*actions.Result, error) {
	path, err := c.recordPath(ctx, rec, object)
	if err != nil {
		return nil, err
	}
	return c.do(ctx, http.MethodDelete, path, nil)
}

func (c *RESTClient) recordPath(ctx context.Context, rec Record, object string) (string, error) {
	if rec.BulkUpdateRecordID != "" {
		return recordPath(object, rec.BulkUpdateRecordID)
	}

	ids, err := c.lookup(ctx, rec, object)
	if err != nil {
		return "", err
	}

	switch len(ids) {
	case 0:
		return "", common.NewIntegrationError(
			fmt.Sprintf("No %s record found with given traits", object),
			common.CodeRecordNotFound,
			http.StatusNotFound,
		)
	case 1:
		return recordPath(object, ids[0])
	default:
		return "", multipleRecords(object)
	}
}

type queryResponse struct {
	TotalSize int `json:"totalSize"`
	Records   []struct {
		ID string `json:"Id"`
	} `json:"records"`
}

func (c *RESTClient) lookup(ctx context.Context, rec Record, object string) ([]string, error) {
	q := lookupQuery(object, rec.Traits, rec.MatcherOperator)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/query?q="+url.QueryEscape(q), nil)
	if err != nil {
		return nil, err
	}

	_, body, err := actions.Send(c.http, req)
	if err != nil {
		return nil, err
	}

	var resp queryResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode query response: %w", err)
	}

	ids := make([]string, 0, len(resp.Records))
	for _, r := range resp.Records {
		ids = append(ids, r.ID)
	}
	return ids, nil
}

func (c *RESTClient) do(ctx context.Context, method, path string, payload any) (*actions.Result, error) {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s body: %w", path, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, _, err := actions.Send(c.http, req)
	return res, err
}

func multipleRecords(object string) error {
	return common.NewIntegrationError(
		fmt.Sprintf("Multiple %s records found with given traits", object),
		common.CodeMultipleRecordsFound,
		http.StatusMultipleChoices,
	)
}
