package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"github.com/mcbrumagin/yamf-sub000/internal/wire"
)

// PublishError describes one subscriber's failure to receive a publish.
type PublishError struct {
	Location string `json:"subId"`
	Error    string `json:"error"`
	Status   int    `json:"status"`
}

// PublishResult is the {results, errors} aggregate returned to a publisher
// (§4.1, §7): per-subscriber failure is intentionally non-fatal to the rest.
type PublishResult struct {
	Results []string       `json:"results"`
	Errors  []PublishError `json:"errors"`
}

// Publish fans channel's message out to every subscriber location in
// parallel and aggregates the outcome. A subscriber raising never prevents
// delivery to the others (§7, testable property #6).
func (r *Registry) Publish(ctx context.Context, channel string, message json.RawMessage) PublishResult {
	subs := r.state.Subscribers(channel)
	result := PublishResult{Results: []string{}, Errors: []PublishError{}}
	if len(subs) == 0 {
		return result
	}

	var mu sync.Mutex
	var combined *multierror.Error
	var g errgroup.Group
	for _, loc := range subs {
		loc := loc
		g.Go(func() error {
			results, errs := r.publishOne(ctx, loc, channel, message)
			mu.Lock()
			defer mu.Unlock()
			result.Results = append(result.Results, results...)
			result.Errors = append(result.Errors, errs...)
			for _, e := range errs {
				combined = multierror.Append(combined, fmt.Errorf("%s: %s", loc, e.Error))
			}
			// Never propagate the error to errgroup: one subscriber's
			// failure must not cancel or shortcut the others.
			return nil
		})
	}
	_ = g.Wait()
	if combined.ErrorOrNil() != nil {
		r.log.Warn("publish: some subscribers failed", "channel", channel, "error", combined.ErrorOrNil())
	}
	return result
}

// publishOne delivers message to a single subscriber location and returns
// its contribution to the combined aggregate. A subscriber answers
// pubsub-publish with the same plural {results, errors} dispatch shape the
// Service Runtime produces for its own local handlers (one location may run
// several subscription handlers for the channel), so the registry merges
// each location's aggregate into the overall one rather than expecting a
// single {result, error} pair per location.
func (r *Registry) publishOne(ctx context.Context, location, channel string, message json.RawMessage) ([]string, []PublishError) {
	dctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	body, err := json.Marshal(map[string]any{"channel": channel, "message": message})
	if err != nil {
		return nil, []PublishError{{Location: location, Error: err.Error(), Status: http.StatusInternalServerError}}
	}

	req, err := httpRequest(dctx, location, wire.CmdPubsubPublish, bytes.NewReader(body))
	if err != nil {
		return nil, []PublishError{{Location: location, Error: err.Error(), Status: http.StatusInternalServerError}}
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, []PublishError{{Location: location, Error: err.Error(), Status: http.StatusServiceUnavailable}}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(resp.Body)
		msg := strings.TrimSpace(string(raw))
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, []PublishError{{Location: location, Error: msg, Status: resp.StatusCode}}
	}

	var out PublishResult
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, []PublishError{{Location: location, Error: err.Error(), Status: http.StatusInternalServerError}}
	}
	return out.Results, out.Errors
}

const publishTimeout = 10 * time.Second
