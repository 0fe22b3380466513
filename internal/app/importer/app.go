// Package importer implements the kibimport application: it reads an
// NDJSON bundle of Kibana saved objects, written by kibexport, from a
// local file or S3 and pushes the objects into an Elasticsearch index.
package importer

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/aws/aws-sdk-go/service/s3/s3manager/s3manageriface"
	"github.com/google/uuid"
	elastic "github.com/olivere/elastic/v7"
	"go.uber.org/zap"
	kingpin "gopkg.in/alecthomas/kingpin.v2"

	"github.com/kibtools/kibtools"
	"github.com/kibtools/kibtools/internal/pkg/cmd"
	"github.com/kibtools/kibtools/pkg/bundle"
	"github.com/kibtools/kibtools/pkg/str"
)

const (
	Name  = "kibimport"
	Usage = "Import Kibana saved objects from an NDJSON bundle file (local or in S3) into Elasticsearch."
)

// ErrDownload indicates the bundle could not be downloaded from S3.
var ErrDownload = errors.New("could not download bundle from S3")

// ErrBundle indicates the bundle file could not be read or parsed.
var ErrBundle = errors.New("could not read bundle")

// App holds application state.
type App struct {
	*kingpin.Application

	flags *Flags // Command line flags

	// API clients. Left nil until Run, so tests can inject their own.
	clients struct {
		Elasticsearch *elastic.Client
		S3            s3manageriface.DownloaderAPI
	}
}

// NewApp returns a new App.
func NewApp() *App {
	app := &App{
		Application: kingpin.New(Name, Usage),
	}
	app.flags = NewFlags(app.Application)
	return app
}

// Main is the main method of App and should be called
// in main.main() after flag parsing.
func (app *App) Main(ctx context.Context) {
	logger := app.flags.NewLogger().With(zap.String("run_id", uuid.New().String()))
	defer func() { _ = logger.Sync() }()
	defer cmd.SetGlobalLogger(logger)()

	if err := app.Run(ctx); err != nil {
		logger.Fatal("import failed", zap.Error(err))
	}
}

// Run performs one import and returns the first error encountered.
func (app *App) Run(ctx context.Context) error {
	types, err := app.flags.Types()
	if err != nil {
		return err
	}
	if err := app.flags.Validate(); err != nil {
		return err
	}
	if err := app.setupClients(ctx); err != nil {
		return err
	}

	if app.flags.FromS3 {
		if err := app.download(ctx); err != nil {
			return fmt.Errorf("%w: %s", ErrDownload, err)
		}
	}

	b, err := bundle.ReadFile(app.flags.InputPath)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrBundle, err)
	}

	typeNames := make([]string, len(types))
	for i, t := range types {
		typeNames[i] = string(t)
	}

	svc := kibtools.NewKibanaService(app.clients.Elasticsearch, app.flags.Index)
	counts := make(map[kibtools.ObjectType]int, len(types))
	skipped := 0
	for _, obj := range b.Objects() {
		if !str.In(string(obj.Type), typeNames...) {
			skipped++
			continue
		}
		if err := svc.Push(ctx, obj); err != nil {
			return err
		}
		counts[obj.Type]++
	}

	zap.L().Info("imported saved objects",
		zap.String("path", app.flags.InputPath),
		zap.Int("dashboards", counts[kibtools.TypeDashboard]),
		zap.Int("visualizations", counts[kibtools.TypeVisualization]),
		zap.Int("searches", counts[kibtools.TypeSearch]),
		zap.Int("skipped", skipped),
	)
	return nil
}

// setupClients creates the Elasticsearch client and, if the bundle comes
// from S3, the S3 downloader. Clients already set are left alone.
func (app *App) setupClients(ctx context.Context) error {
	if app.clients.Elasticsearch == nil {
		client, err := app.flags.NewElasticsearchClient(ctx)
		if err != nil {
			return fmt.Errorf("%w: %s", kibtools.ErrConnection, err)
		}
		app.clients.Elasticsearch = client
	}
	if app.flags.FromS3 && app.clients.S3 == nil {
		app.clients.S3 = s3manager.NewDownloader(app.flags.AWSSession())
	}
	return nil
}

// download fetches the bundle object from S3 to the input path.
func (app *App) download(ctx context.Context) error {
	f, err := os.Create(app.flags.InputPath)
	if err != nil {
		return err
	}
	n, err := app.clients.S3.DownloadWithContext(ctx, f, &s3.GetObjectInput{
		Bucket: aws.String(app.flags.S3.Bucket),
		Key:    aws.String(app.flags.S3.Key),
	})
	if err != nil {
		_ = f.Close()
		return err
	}
	zap.L().Info("downloaded bundle",
		zap.String("bucket", app.flags.S3.Bucket),
		zap.String("key", app.flags.S3.Key),
		zap.Int64("bytes", n),
	)
	return f.Close()
}
