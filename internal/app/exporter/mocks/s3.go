// Package mocks contains mock AWS clients for exporter tests.
package mocks

import (
	"github.com/stretchr/testify/mock" // Mocking for tests.

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/aws/aws-sdk-go/service/s3/s3manager/s3manageriface"
)

// Uploader mocks s3manageriface.UploaderAPI.
type Uploader struct {
	mock.Mock
	s3manageriface.UploaderAPI
}

func (m *Uploader) UploadWithContext(ctx aws.Context, input *s3manager.UploadInput, opts ...func(*s3manager.Uploader)) (*s3manager.UploadOutput, error) {
	ret := m.Called(input)
	var out *s3manager.UploadOutput
	if v := ret.Get(0); v != nil {
		out = v.(*s3manager.UploadOutput)
	}
	return out, ret.Error(1)
}
