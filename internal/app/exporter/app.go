// Package exporter implements the kibexport application: it exports
// Kibana saved objects from an Elasticsearch index to a local NDJSON
// bundle file, optionally uploading the file to S3.
package exporter

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/aws/aws-sdk-go/service/s3/s3manager/s3manageriface"
	"github.com/google/uuid"
	elastic "github.com/olivere/elastic/v7"
	"go.uber.org/zap"
	kingpin "gopkg.in/alecthomas/kingpin.v2"

	"github.com/kibtools/kibtools"
	"github.com/kibtools/kibtools/internal/pkg/cmd"
	"github.com/kibtools/kibtools/pkg/bundle"
)

const (
	Name  = "kibexport"
	Usage = "Export Kibana saved objects (dashboards, visualizations, saved searches) from Elasticsearch to an NDJSON bundle file, optionally uploading it to S3."
)

// ErrWrite indicates the bundle file could not be written.
var ErrWrite = errors.New("could not write export bundle")

// ErrUpload indicates the S3 upload failed. The local bundle file has
// already been written by then and is kept.
var ErrUpload = errors.New("could not upload export bundle to S3")

// App holds application state.
type App struct {
	*kingpin.Application

	flags *Flags // Command line flags

	// API clients. Left nil until Run, so tests can inject their own.
	clients struct {
		Elasticsearch *elastic.Client
		S3            s3manageriface.UploaderAPI
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
		logger.Fatal("export failed", zap.Error(err))
	}
}

// Run performs one export and returns the first error encountered.
// Nothing is written until all queries have succeeded, so a connection
// or query failure leaves the output path untouched.
func (app *App) Run(ctx context.Context) error {
	types, err := app.flags.Types()
	if err != nil {
		return err
	}
	if err := app.setupClients(ctx); err != nil {
		return err
	}

	svc := kibtools.NewKibanaService(app.clients.Elasticsearch, app.flags.Index)
	objs, err := svc.SavedObjects(ctx, types...)
	if err != nil {
		return err
	}

	if app.flags.ResolveReferences {
		extra, err := kibtools.NewReferenceResolver(svc).Resolve(ctx, objs)
		if err != nil {
			return err
		}
		objs = append(objs, extra...)
	}

	b := bundle.New()
	if err := b.Add(objs...); err != nil {
		return err
	}
	b.Sort()
	if err := b.WriteFile(app.flags.OutputPath); err != nil {
		return fmt.Errorf("%w: %s", ErrWrite, err)
	}
	zap.L().Info("wrote export bundle",
		zap.String("path", app.flags.OutputPath),
		zap.Int("objects", b.Len()),
		zap.Int64("payload_bytes", b.Manifest().PayloadBytes),
	)

	if app.flags.S3Enabled() {
		if err := app.upload(ctx); err != nil {
			return fmt.Errorf("%w: %s", ErrUpload, err)
		}
	}
	return nil
}

// setupClients creates the Elasticsearch client and, if an S3 upload is
// requested, the S3 uploader. Clients already set are left alone.
func (app *App) setupClients(ctx context.Context) error {
	if app.clients.Elasticsearch == nil {
		client, err := app.flags.NewElasticsearchClient(ctx)
		if err != nil {
			return fmt.Errorf("%w: %s", kibtools.ErrConnection, err)
		}
		app.clients.Elasticsearch = client
	}
	if app.flags.S3Enabled() && app.clients.S3 == nil {
		app.clients.S3 = s3manager.NewUploader(app.flags.AWSSession())
	}
	return nil
}

// upload pushes the written bundle file to S3.
func (app *App) upload(ctx context.Context) error {
	f, err := os.Open(app.flags.OutputPath)
	if err != nil {
		return err
	}
	defer f.Close()

	key := app.flags.S3ObjectKey()
	out, err := app.clients.S3.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(app.flags.S3.Bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String("application/x-ndjson"),
	})
	if err != nil {
		return err
	}
	zap.L().Info("uploaded export bundle",
		zap.String("bucket", app.flags.S3.Bucket),
		zap.String("key", key),
		zap.String("location", out.Location),
	)
	return nil
}
