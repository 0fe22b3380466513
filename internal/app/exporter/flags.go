package exporter

import (
	"path"
	"path/filepath"
	"time"

	kingpin "gopkg.in/alecthomas/kingpin.v2" // Command line flag parsing.

	"github.com/kibtools/kibtools/internal/pkg/cmd" // Common command line app tools.
)

const (
	defaultIndex      = ".kibana"
	defaultOutputPath = "kibana-export.ndjson"
	defaultLogLevel   = "INFO"

	defaultElasticsearchRetryInit = 150 * time.Millisecond
	defaultElasticsearchRetryMax  = 1200 * time.Millisecond
	defaultAWSMaxRetries          = 3
)

// Flags holds command line flags for the exporter App.
type Flags struct {
	// Path of the bundle file to write.
	OutputPath string

	// Also export the objects referenced by the requested ones.
	ResolveReferences bool

	// Optional S3 destination for the bundle file.
	S3 struct {
		Bucket string
		Prefix string
		Key    string
	}

	*cmd.KibanaFlags
	*cmd.ElasticsearchFlags
	*cmd.AWSFlags
	*cmd.LoggingFlags
}

// NewFlags returns a new Flags.
func NewFlags(app *kingpin.Application) *Flags {
	var f Flags

	app.Flag("out", "Path of the export bundle file to write.").
		Short('o').
		Default(defaultOutputPath).
		StringVar(&f.OutputPath)

	app.Flag("resolve-references", "Also export the visualizations referenced by exported dashboards, and the saved searches referenced by those visualizations.").
		BoolVar(&f.ResolveReferences)

	app.Flag("s3.bucket", "If set, upload the bundle file to this S3 bucket after writing it.").
		PlaceHolder("BUCKET_NAME").
		StringVar(&f.S3.Bucket)

	app.Flag("s3.prefix", "Key prefix for the uploaded bundle object.").
		PlaceHolder("PREFIX").
		StringVar(&f.S3.Prefix)

	app.Flag("s3.key", "Full key for the uploaded bundle object. Overrides --s3.prefix.").
		PlaceHolder("KEY").
		StringVar(&f.S3.Key)

	f.KibanaFlags = cmd.NewKibanaFlags(app, defaultIndex)
	f.ElasticsearchFlags = cmd.NewElasticsearchFlags(app, defaultElasticsearchRetryInit, defaultElasticsearchRetryMax)
	f.AWSFlags = cmd.NewAWSFlags(app, defaultAWSMaxRetries)
	f.LoggingFlags = cmd.NewLoggingFlags(app, defaultLogLevel)

	return &f
}

// S3Enabled returns true if the bundle should be uploaded to S3.
func (f *Flags) S3Enabled() bool {
	return f.S3.Bucket != ""
}

// S3ObjectKey returns the key to upload the bundle under:
// --s3.key if set, else the bundle filename under --s3.prefix.
func (f *Flags) S3ObjectKey() string {
	if f.S3.Key != "" {
		return f.S3.Key
	}
	return path.Join(f.S3.Prefix, filepath.Base(f.OutputPath))
}
