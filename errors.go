package kibtools

import (
	"errors"
	"fmt"

	elastic "github.com/olivere/elastic/v7"
)

// ErrConnection indicates Elasticsearch could not be reached at all.
var ErrConnection = errors.New("elasticsearch unreachable")

// ErrQuery indicates Elasticsearch rejected a request,
// e.g. because the index doesn't exist.
var ErrQuery = errors.New("elasticsearch rejected the request")

// ErrNoTypes indicates an operation was asked to cover
// zero saved object types.
var ErrNoTypes = errors.New("no saved object types requested")

// WrapElasticError classifies an error from the elastic client as either
// ErrConnection or ErrQuery so callers can test with errors.Is.
func WrapElasticError(err error) error {
	if elastic.IsConnErr(err) {
		return fmt.Errorf("%w: %s", ErrConnection, err)
	}
	return fmt.Errorf("%w: %s", ErrQuery, err)
}
