package importer

import (
	"errors"
	"time"

	kingpin "gopkg.in/alecthomas/kingpin.v2" // Command line flag parsing.

	"github.com/kibtools/kibtools/internal/pkg/cmd" // Common command line app tools.
)

const (
	defaultIndex     = ".kibana"
	defaultInputPath = "kibana-export.ndjson"
	defaultLogLevel  = "INFO"

	defaultElasticsearchRetryInit = 150 * time.Millisecond
	defaultElasticsearchRetryMax  = 1200 * time.Millisecond
	defaultAWSMaxRetries          = 3
)

// Flags holds command line flags for the importer App.
type Flags struct {
	// Path of the bundle file to read (and, with --from-s3,
	// to download to first).
	InputPath string

	// Download the bundle from S3 before importing.
	FromS3 bool

	// S3 source of the bundle file.
	S3 struct {
		Bucket string
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

	app.Flag("in", "Path of the export bundle file to read.").
		Short('i').
		Default(defaultInputPath).
		StringVar(&f.InputPath)

	app.Flag("from-s3", "Download the bundle from S3 (see --s3.bucket and --s3.key) to --in before importing.").
		BoolVar(&f.FromS3)

	app.Flag("s3.bucket", "S3 bucket to download the bundle from.").
		PlaceHolder("BUCKET_NAME").
		StringVar(&f.S3.Bucket)

	app.Flag("s3.key", "Key of the bundle object in the S3 bucket.").
		PlaceHolder("KEY").
		StringVar(&f.S3.Key)

	f.KibanaFlags = cmd.NewKibanaFlags(app, defaultIndex)
	f.ElasticsearchFlags = cmd.NewElasticsearchFlags(app, defaultElasticsearchRetryInit, defaultElasticsearchRetryMax)
	f.AWSFlags = cmd.NewAWSFlags(app, defaultAWSMaxRetries)
	f.LoggingFlags = cmd.NewLoggingFlags(app, defaultLogLevel)

	return &f
}

// Validate checks flag combinations that kingpin can't express.
func (f *Flags) Validate() error {
	if f.FromS3 && (f.S3.Bucket == "" || f.S3.Key == "") {
		return errors.New("--from-s3 requires --s3.bucket and --s3.key")
	}
	return nil
}
