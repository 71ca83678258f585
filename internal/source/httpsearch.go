package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/curatehub/curatehub/internal/model"
)

// HTTPSearch talks to a mention-search service over HTTP. Large queries are
// answered with a job id; the job is re-polled via the cursor's
// CurrentAsyncJob until the platform reports done/error/timeout.
type HTTPSearch struct {
	baseURL string
	apiKey  string
	client  *http.Client
	limiter *rate.Limiter
}

func NewHTTPSearch(baseURL, apiKey string, ratePerSecond float64) *HTTPSearch {
	if ratePerSecond <= 0 {
		ratePerSecond = 1
	}
	return &HTTPSearch{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(ratePerSecond), 1),
	}
}

type searchRequest struct {
	Type     string `json:"type,omitempty"`
	Query    string `json:"query"`
	SinceID  string `json:"sinceId,omitempty"`
	PageSize int    `json:"pageSize,omitempty"`
}

type searchResponse struct {
	Items  []Item `json:"items"`
	JobID  string `json:"jobId,omitempty"`
	Status string `json:"status,omitempty"`
	NextID string `json:"nextId,omitempty"`
	// Exhausted signals there is nothing further to resume from.
	Exhausted bool `json:"exhausted,omitempty"`
}

func (h *HTTPSearch) Search(ctx context.Context, last *model.CursorData, opts SearchOptions) (*Result, error) {
	if err := h.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	if last != nil && last.CurrentAsyncJob != nil && last.CurrentAsyncJob.Status.InFlight() {
		return h.pollJob(ctx, last, last.CurrentAsyncJob.ID)
	}
	return h.submitSearch(ctx, last, opts)
}

func (h *HTTPSearch) submitSearch(ctx context.Context, last *model.CursorData, opts SearchOptions) (*Result, error) {
	reqBody := searchRequest{Type: opts.Type, Query: opts.Query, PageSize: opts.PageSize}
	if last != nil {
		reqBody.SinceID = last.LatestProcessedID
	}
	var resp searchResponse
	if err := h.post(ctx, "/v1/search", reqBody, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	if resp.JobID != "" {
		// Platform went async: hand back a cursor carrying the job handle so
		// the poll loop re-polls it.
		next := cloneCursor(last)
		next.CurrentAsyncJob = &model.AsyncJobState{ID: resp.JobID, Status: model.JobSubmitted}
		return &Result{NextState: next}, nil
	}
	return h.finish(last, resp), nil
}

func (h *HTTPSearch) pollJob(ctx context.Context, last *model.CursorData, jobID string) (*Result, error) {
	var resp searchResponse
	if err := h.get(ctx, "/v1/jobs/"+jobID, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	status := model.AsyncJobStatus(resp.Status)
	if status.InFlight() {
		next := cloneCursor(last)
		next.CurrentAsyncJob = &model.AsyncJobState{ID: jobID, Status: status}
		return &Result{NextState: next}, nil
	}
	if status == model.JobError || status == model.JobTimeout {
		next := cloneCursor(last)
		next.CurrentAsyncJob = &model.AsyncJobState{ID: jobID, Status: status}
		return &Result{NextState: next}, nil
	}
	return h.finish(last, resp), nil
}

// finish maps a completed response onto a Result, advancing the cursor and
// clearing any job handle.
func (h *HTTPSearch) finish(last *model.CursorData, resp searchResponse) *Result {
	if resp.Exhausted {
		return &Result{Items: resp.Items}
	}
	next := cloneCursor(last)
	next.CurrentAsyncJob = nil
	if resp.NextID != "" {
		next.LatestProcessedID = resp.NextID
	} else if n := len(resp.Items); n > 0 {
		next.LatestProcessedID = resp.Items[n-1].ExternalID
	}
	return &Result{Items: resp.Items, NextState: next}
}

func (h *HTTPSearch) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return h.do(req, out)
}

func (h *HTTPSearch) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.baseURL+path, nil)
	if err != nil {
		return err
	}
	return h.do(req, out)
}

func (h *HTTPSearch) do(req *http.Request, out any) error {
	if h.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+h.apiKey)
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func cloneCursor(last *model.CursorData) *model.CursorData {
	if last == nil {
		return &model.CursorData{}
	}
	out := &model.CursorData{LatestProcessedID: last.LatestProcessedID}
	if len(last.Payload) > 0 {
		out.Payload = make(map[string]string, len(last.Payload))
		for k, v := range last.Payload {
			out.Payload[k] = v
		}
	}
	return out
}
