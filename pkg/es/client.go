// Package es contains helpers around the olivere/elastic client.
package es

import (
	"context"
	"time"

	elastic "github.com/olivere/elastic/v7"
)

// DialRetry connects to Elasticsearch with an exponential backoff retrier,
// retrying the initial connection as well. elastic.DialContext() on its own
// fails immediately when no node answers, which matters for a tool that may
// start before its co-located Elasticsearch finishes booting.
//
// If max <= 0 the client is returned without any retrier and the dial is
// attempted only once. DialRetry doesn't retry non-connection errors.
func DialRetry(ctx context.Context, init, max time.Duration, options ...elastic.ClientOptionFunc) (*elastic.Client, error) {
	if max <= 0 {
		return elastic.DialContext(ctx, options...)
	}
	retrier := elastic.NewBackoffRetrier(elastic.NewExponentialBackoff(init, max))
	options = append(options, elastic.SetRetrier(retrier))
	for attempt := 0; ; attempt++ {
		client, err := elastic.DialContext(ctx, options...)
		if err == nil {
			return client, nil
		}
		if !elastic.IsConnErr(err) {
			return nil, err
		}
		wait, goahead, _ := retrier.Retry(ctx, attempt, nil, nil, err)
		if !goahead {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
}
