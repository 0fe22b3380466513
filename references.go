package kibtools

import (
	"context"
	"time"

	cache "github.com/patrickmn/go-cache" // TTL cache
	"go.uber.org/zap"                     // Logging
)

// Reference lookups are memoized so dashboards sharing a visualization
// only fetch it once.
const (
	refCacheExpiration = 5 * time.Minute
	refCacheCleanup    = 10 * time.Minute
)

// ReferenceResolver follows the references between saved objects:
// a dashboard's panelsJSON names the visualizations placed on it, and a
// visualization's savedSearchId names the saved search it is built on.
// Kibana doesn't enforce these references, so a dangling one is logged
// and skipped rather than treated as an error.
type ReferenceResolver struct {
	svc    *KibanaService
	cache  *cache.Cache
	logger *zap.Logger
}

// NewReferenceResolver returns a new ReferenceResolver fetching
// referenced objects through svc.
func NewReferenceResolver(svc *KibanaService) *ReferenceResolver {
	return &ReferenceResolver{
		svc:    svc,
		cache:  cache.New(refCacheExpiration, refCacheCleanup),
		logger: zap.L().Named("ReferenceResolver"),
	}
}

// Resolve returns the saved objects referenced by objs that aren't
// already in objs: the visualizations on each dashboard, and the saved
// searches behind each visualization (whether passed in or just fetched).
func (r *ReferenceResolver) Resolve(ctx context.Context, objs []*KibanaObject) ([]*KibanaObject, error) {
	seen := make(map[string]struct{}, len(objs))
	visualizations := make([]*KibanaObject, 0)
	for _, o := range objs {
		seen[o.DocID()] = struct{}{}
		if o.Type == TypeVisualization {
			visualizations = append(visualizations, o)
		}
	}

	var extra []*KibanaObject
	add := func(o *KibanaObject) bool {
		if _, ok := seen[o.DocID()]; ok {
			return false
		}
		seen[o.DocID()] = struct{}{}
		extra = append(extra, o)
		return true
	}

	for _, o := range objs {
		if o.Type != TypeDashboard {
			continue
		}
		for _, id := range o.PanelIDs() {
			viz, err := r.lookup(ctx, TypeVisualization, id)
			if err != nil {
				return nil, err
			}
			if viz == nil {
				r.logger.Warn("dashboard references missing visualization",
					zap.String("dashboard", o.ID),
					zap.String("visualization", id),
				)
				continue
			}
			if add(viz) {
				visualizations = append(visualizations, viz)
			}
		}
	}

	for _, viz := range visualizations {
		id := viz.SavedSearchID()
		if id == "" {
			continue
		}
		search, err := r.lookup(ctx, TypeSearch, id)
		if err != nil {
			return nil, err
		}
		if search == nil {
			r.logger.Warn("visualization references missing saved search",
				zap.String("visualization", viz.ID),
				zap.String("search", id),
			)
			continue
		}
		add(search)
	}

	return extra, nil
}

// lookup fetches a saved object by type and ID, memoizing both hits and
// misses for the lifetime of the resolver.
func (r *ReferenceResolver) lookup(ctx context.Context, t ObjectType, id string) (*KibanaObject, error) {
	key := string(t) + ":" + id
	if v, ok := r.cache.Get(key); ok {
		obj, _ := v.(*KibanaObject)
		return obj, nil
	}
	obj, err := r.svc.SavedObject(ctx, t, id)
	if err != nil {
		return nil, err
	}
	r.cache.SetDefault(key, obj)
	return obj, nil
}
