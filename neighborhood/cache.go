/*
Copyright © 2020 the icens authors.
This file is part of icens.

icens is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

icens is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with icens.  If not, see <http://www.gnu.org/licenses/>.
*/

package neighborhood

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/ctessum/requestcache"
	"github.com/rpmanser/large-ic-ensembles/internal/observability"
	"github.com/sirupsen/logrus"
)

// QueryCache builds neighborhood queries and keeps them for reuse. Queries
// are keyed by the identities of the candidate and analysis point sets and
// the search radius. It is safe for concurrent use, and concurrent
// requests for the same query build it only once.
type QueryCache struct {
	cache *requestcache.Cache

	// Log receives a message each time a query is built.
	Log logrus.FieldLogger

	// Metrics, if not nil, records query builds.
	Metrics *observability.Metrics
}

type queryRequest struct {
	candidates, analysis *PointSet
	radius               float64
}

// NewQueryCache returns a new cache that holds up to maxEntries queries
// in memory.
func NewQueryCache(maxEntries int) *QueryCache {
	qc := &QueryCache{Log: logrus.StandardLogger()}
	qc.cache = requestcache.NewCache(func(ctx context.Context, request interface{}) (interface{}, error) {
		r := request.(queryRequest)
		start := time.Now()
		q, err := BuildQuery(r.candidates, r.analysis, r.radius)
		if err != nil {
			return nil, err
		}
		qc.Log.WithFields(logrus.Fields{
			"candidates": r.candidates.ID(),
			"analysis":   r.analysis.ID(),
			"radius":     r.radius,
			"duration":   time.Since(start),
		}).Debug("built neighborhood query")
		qc.Metrics.QueryBuilt(time.Since(start))
		return q, nil
	}, runtime.GOMAXPROCS(-1), requestcache.Deduplicate(), requestcache.Memory(maxEntries))
	return qc
}

// Get returns the query for the given point sets and radius, building it
// if it is not already in the cache. The returned query is shared and
// must not be modified.
func (qc *QueryCache) Get(ctx context.Context, candidates, analysis *PointSet, radius float64) (*Query, error) {
	key := fmt.Sprintf("%s|%s|%g", candidates.ID(), analysis.ID(), radius)
	req := qc.cache.NewRequest(ctx, queryRequest{candidates: candidates, analysis: analysis, radius: radius}, key)
	result, err := req.Result()
	if err != nil {
		return nil, err
	}
	return result.(*Query), nil
}
