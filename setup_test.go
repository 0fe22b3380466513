package kibtools

import (
	"testing"

	elastic "github.com/olivere/elastic/v7"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	gock "gopkg.in/h2non/gock.v1"
)

// setup sets up zap test logging. It returns the URL mock endpoints
// should target and a teardown function.
func setup(t *testing.T) (string, func()) {
	logger := zaptest.NewLogger(t)
	f1 := zap.ReplaceGlobals(logger)
	f2 := zap.RedirectStdLog(logger)
	teardown := func() {
		gock.OffAll()
		f2()
		f1()
		_ = logger.Sync()
	}
	return elastic.DefaultURL, teardown
}
