package cmd

import (
	"strconv"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/ec2metadata"
	"github.com/aws/aws-sdk-go/aws/session"
)

// AWSFlags represents a set of flags for connecting to AWS.
//
// No credential flags on purpose: the session resolves credentials from
// the ambient environment (instance role, shared config, env vars).
type AWSFlags struct {
	// Name of AWS region to use.
	Region string

	// Name of a shared AWS credentials profile to use.
	Profile string

	// Max number of retries to attempt on connection error.
	MaxRetries int
}

// NewAWSFlags returns a new AWSFlags.
func NewAWSFlags(app Flagger, maxRetries int) *AWSFlags {
	var f AWSFlags

	app.Flag("aws.region", "Name of AWS region to use.").
		PlaceHolder("REGION_NAME").
		StringVar(&f.Region)

	app.Flag("aws.profile", "Name of AWS credentials profile to use.").
		PlaceHolder("PROFILE_NAME").
		StringVar(&f.Profile)

	app.Flag("aws.max-retries", "Max number of retries to attempt on connection failure.").
		Hidden().
		Default(strconv.Itoa(maxRetries)).
		IntVar(&f.MaxRetries)

	return &f
}

// AWSSession returns an AWS session configured from these flags,
// falling back to the EC2 instance metadata service for the region.
func (f *AWSFlags) AWSSession() *session.Session {
	conf := aws.NewConfig().WithMaxRetries(f.MaxRetries)
	if f.Region != "" {
		conf = conf.WithRegion(f.Region)
	}

	opts := session.Options{
		Config:            *conf,
		Profile:           f.Profile,
		SharedConfigState: session.SharedConfigEnable,
	}
	sess := session.Must(session.NewSessionWithOptions(opts))

	if aws.StringValue(sess.Config.Region) == "" {
		// Try setting region from EC2 metadata.
		if region, err := ec2metadata.New(sess).Region(); err == nil {
			sess.Config.Region = aws.String(region)
		}
	}

	return sess
}
