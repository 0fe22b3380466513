package es

import (
	"context"
	"net/http"
	"testing"
	"time"

	elastic "github.com/olivere/elastic/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gock "gopkg.in/h2non/gock.v1"
)

func TestDialRetry_Connects(t *testing.T) {
	defer gock.OffAll()
	defer gock.CleanUnmatchedRequest()

	// The startup healthcheck HEADs the root endpoint.
	gock.New(elastic.DefaultURL).
		Head("/").
		Persist().
		Reply(http.StatusOK)

	client, err := DialRetry(context.Background(), 0, 0,
		elastic.SetSniff(false),
	)
	require.NoError(t, err)
	client.Stop()
}

func TestDialRetry_GivesUp(t *testing.T) {
	defer gock.OffAll()
	defer gock.CleanUnmatchedRequest()

	// Activate interception without matching anything, so every dial
	// attempt fails as if the node were down.
	gock.New(elastic.DefaultURL).Get("/never-matched")

	start := time.Now()
	_, err := DialRetry(context.Background(), time.Millisecond, 4*time.Millisecond,
		elastic.SetSniff(false),
		elastic.SetHealthcheckTimeoutStartup(50*time.Millisecond),
	)
	assert.Error(t, err)
	assert.True(t, elastic.IsConnErr(err), "got: %v", err)
	assert.WithinDuration(t, start, time.Now(), 5*time.Second)
}
