package kibtools

import (
	"context"
	"io"

	elastic "github.com/olivere/elastic/v7" // Elasticsearch client
	"go.uber.org/zap"                       // Logging
	tomb "gopkg.in/tomb.v2"                 // Error group
)

// scrollSize is how many saved objects each scroll page asks for.
const scrollSize = 500

// KibanaService queries and writes Kibana saved objects stored in an
// Elasticsearch index (`.kibana` by convention). It works with the
// documents directly rather than going through the Kibana API, so it only
// needs network access to Elasticsearch itself.
type KibanaService struct {
	client *elastic.Client
	logger *zap.Logger
	index  string
}

// NewKibanaService returns a new KibanaService reading saved objects
// from the given index.
func NewKibanaService(client *elastic.Client, index string) *KibanaService {
	return &KibanaService{
		client: client,
		logger: zap.L().Named("KibanaService"),
		index:  index,
	}
}

// SavedObjects returns all saved objects of the given types.
// The per-type queries run concurrently; the result is grouped by type in
// the order the types were passed, each type in index (scroll) order.
func (s *KibanaService) SavedObjects(ctx context.Context, types ...ObjectType) ([]*KibanaObject, error) {
	if len(types) == 0 {
		return nil, ErrNoTypes
	}

	t, ctx := tomb.WithContext(ctx)
	results := make([][]*KibanaObject, len(types))
	for i, ot := range types {
		i, ot := i, ot
		t.Go(func() error {
			objs, err := s.savedObjectsOfType(ctx, ot)
			if err != nil {
				return err
			}
			results[i] = objs
			return nil
		})
	}
	if err := t.Wait(); err != nil {
		return nil, err
	}

	var objs []*KibanaObject
	for i, typeObjs := range results {
		s.logger.Debug("fetched saved objects",
			zap.String("type", string(types[i])),
			zap.Int("count", len(typeObjs)),
		)
		objs = append(objs, typeObjs...)
	}
	return objs, nil
}

// savedObjectsOfType scrolls the index for every saved object of one type.
func (s *KibanaService) savedObjectsOfType(ctx context.Context, t ObjectType) ([]*KibanaObject, error) {
	scroll := s.client.Scroll(s.index).
		Query(elastic.NewTermQuery("type", string(t))).
		Size(scrollSize)
	defer func() {
		if err := scroll.Clear(context.Background()); err != nil {
			s.logger.Debug("error clearing scroll", zap.Error(err))
		}
	}()

	var objs []*KibanaObject
	for {
		resp, err := scroll.Do(ctx)
		if err == io.EOF {
			return objs, nil
		}
		if err != nil {
			return nil, WrapElasticError(err)
		}
		for _, hit := range resp.Hits.Hits {
			obj, err := parseSavedObject(hit.Id, hit.Source)
			if err != nil {
				return nil, err
			}
			objs = append(objs, obj)
		}
	}
}

// SavedObject fetches a single saved object by type and ID.
// Returns nil without error if the object doesn't exist.
func (s *KibanaService) SavedObject(ctx context.Context, t ObjectType, id string) (*KibanaObject, error) {
	docID := string(t) + ":" + id
	resp, err := s.client.Get().Index(s.index).Id(docID).Do(ctx)
	if elastic.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, WrapElasticError(err)
	}
	return parseSavedObject(resp.Id, resp.Source)
}

// Push writes a saved object into the index, creating or overwriting
// the document at `<type>:<id>`.
func (s *KibanaService) Push(ctx context.Context, obj *KibanaObject) error {
	_, err := s.client.Index().
		Index(s.index).
		Id(obj.DocID()).
		BodyJson(obj.DocBody()).
		Do(ctx)
	if err != nil {
		return WrapElasticError(err)
	}
	s.logger.Debug("pushed saved object",
		zap.String("type", string(obj.Type)),
		zap.String("id", obj.ID),
	)
	return nil
}
