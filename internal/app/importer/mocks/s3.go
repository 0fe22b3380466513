// Package mocks contains mock AWS clients for importer tests.
package mocks

import (
	"io"

	"github.com/stretchr/testify/mock" // Mocking for tests.

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/aws/aws-sdk-go/service/s3/s3manager/s3manageriface"
)

// Downloader mocks s3manageriface.DownloaderAPI.
type Downloader struct {
	mock.Mock
	s3manageriface.DownloaderAPI
}

func (m *Downloader) DownloadWithContext(ctx aws.Context, w io.WriterAt, input *s3.GetObjectInput, opts ...func(*s3manager.Downloader)) (int64, error) {
	ret := m.Called(w, input)
	return ret.Get(0).(int64), ret.Error(1)
}
