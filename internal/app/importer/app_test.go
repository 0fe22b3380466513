package importer

import (
	"context"
	"errors"
	"io"
	"io/ioutil"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3"
	elastic "github.com/olivere/elastic/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	gock "gopkg.in/h2non/gock.v1"

	"github.com/kibtools/kibtools"
	"github.com/kibtools/kibtools/internal/app/importer/mocks"
	"github.com/kibtools/kibtools/pkg/bundle"
)

// writeBundle writes a bundle file with one dashboard and one
// visualization and returns its path.
func writeBundle(t *testing.T, dir string) string {
	b := bundle.New()
	err := b.Add(
		&kibtools.KibanaObject{ID: "d1", Type: kibtools.TypeDashboard, Payload: []byte(`{"title":"Traffic"}`)},
		&kibtools.KibanaObject{ID: "v1", Type: kibtools.TypeVisualization, Payload: []byte(`{"title":"Hits"}`)},
	)
	require.NoError(t, err)
	b.Sort()
	in := filepath.Join(dir, "bundle.ndjson")
	require.NoError(t, b.WriteFile(in))
	return in
}

// mockIndexed registers a mock for one successful index request.
func mockIndexed(url, docID string) {
	gock.New(url).
		Put("/.kibana/_doc/" + docID).
		Reply(http.StatusCreated).
		BodyString(`{"_index":".kibana","_type":"_doc","_id":"` + docID + `","_version":1,"result":"created","_shards":{"total":2,"successful":1,"failed":0},"_seq_no":0,"_primary_term":1}`)
}

// newTestApp returns an App with parsed flags and an injected
// Elasticsearch client.
func newTestApp(t *testing.T, args ...string) *App {
	app := NewApp()
	_, err := app.Parse(args)
	require.NoError(t, err)
	client, err := elastic.NewSimpleClient()
	require.NoError(t, err)
	app.clients.Elasticsearch = client
	return app
}

func TestNewApp_Name(t *testing.T) {
	assert.Equal(t, Name, NewApp().Name)
}

func TestApp_Run(t *testing.T) {
	url, teardown := setup(t)
	defer teardown()
	defer gock.CleanUnmatchedRequest()

	dir, err := ioutil.TempDir("", "kibimport-test")
	require.NoError(t, err)
	defer os.RemoveAll(dir)
	in := writeBundle(t, dir)

	app := newTestApp(t, "--in", in)
	mockIndexed(url, "dashboard:d1")
	mockIndexed(url, "visualization:v1")

	require.NoError(t, app.Run(context.Background()))
	assert.Condition(t, gock.IsDone)
}

func TestApp_Run_TypeFilter(t *testing.T) {
	url, teardown := setup(t)
	defer teardown()
	defer gock.CleanUnmatchedRequest()

	dir, err := ioutil.TempDir("", "kibimport-test")
	require.NoError(t, err)
	defer os.RemoveAll(dir)
	in := writeBundle(t, dir)

	// Only the dashboard may be pushed; the visualization is skipped.
	app := newTestApp(t, "--in", in, "--type", "dashboard")
	mockIndexed(url, "dashboard:d1")

	require.NoError(t, app.Run(context.Background()))
	assert.Condition(t, gock.IsDone)
}

func TestApp_Run_FromS3(t *testing.T) {
	url, teardown := setup(t)
	defer teardown()
	defer gock.CleanUnmatchedRequest()

	dir, err := ioutil.TempDir("", "kibimport-test")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	// Build bundle bytes to serve from the mocked downloader.
	src := writeBundle(t, dir)
	data, err := ioutil.ReadFile(src)
	require.NoError(t, err)

	in := filepath.Join(dir, "downloaded.ndjson")
	app := newTestApp(t, "--in", in, "--from-s3", "--s3.bucket", "backups", "--s3.key", "kibana/bundle.ndjson")

	downloader := new(mocks.Downloader)
	downloader.On("DownloadWithContext", mock.Anything, mock.MatchedBy(func(input *s3.GetObjectInput) bool {
		return aws.StringValue(input.Bucket) == "backups" &&
			aws.StringValue(input.Key) == "kibana/bundle.ndjson"
	})).Run(func(args mock.Arguments) {
		w := args.Get(0).(io.WriterAt)
		_, err := w.WriteAt(data, 0)
		require.NoError(t, err)
	}).Return(int64(len(data)), nil)
	app.clients.S3 = downloader

	mockIndexed(url, "dashboard:d1")
	mockIndexed(url, "visualization:v1")

	require.NoError(t, app.Run(context.Background()))
	downloader.AssertExpectations(t)
	assert.Condition(t, gock.IsDone)
}

func TestApp_Run_DownloadError(t *testing.T) {
	_, teardown := setup(t)
	defer teardown()

	dir, err := ioutil.TempDir("", "kibimport-test")
	require.NoError(t, err)
	defer os.RemoveAll(dir)
	in := filepath.Join(dir, "downloaded.ndjson")

	app := newTestApp(t, "--in", in, "--from-s3", "--s3.bucket", "backups", "--s3.key", "missing.ndjson")

	downloader := new(mocks.Downloader)
	downloader.On("DownloadWithContext", mock.Anything, mock.Anything).
		Return(int64(0), errors.New("NoSuchKey: The specified key does not exist"))
	app.clients.S3 = downloader

	err = app.Run(context.Background())
	assert.True(t, errors.Is(err, ErrDownload), "got: %v", err)
}

func TestApp_Run_BadBundle(t *testing.T) {
	_, teardown := setup(t)
	defer teardown()

	dir, err := ioutil.TempDir("", "kibimport-test")
	require.NoError(t, err)
	defer os.RemoveAll(dir)
	in := filepath.Join(dir, "bad.ndjson")
	require.NoError(t, ioutil.WriteFile(in, []byte("not json\n"), 0644))

	app := newTestApp(t, "--in", in)

	err = app.Run(context.Background())
	assert.True(t, errors.Is(err, ErrBundle), "got: %v", err)
}

func TestApp_Run_MissingFile(t *testing.T) {
	_, teardown := setup(t)
	defer teardown()

	dir, err := ioutil.TempDir("", "kibimport-test")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	app := newTestApp(t, "--in", filepath.Join(dir, "nope.ndjson"))

	err = app.Run(context.Background())
	assert.True(t, errors.Is(err, ErrBundle), "got: %v", err)
}

func TestFlags_Validate(t *testing.T) {
	app := NewApp()
	_, err := app.Parse([]string{"--from-s3"})
	require.NoError(t, err)
	assert.Error(t, app.flags.Validate())

	app = NewApp()
	_, err = app.Parse([]string{"--from-s3", "--s3.bucket", "backups", "--s3.key", "k.ndjson"})
	require.NoError(t, err)
	assert.NoError(t, app.flags.Validate())
}
