package hotspot

import (
	"github.com/sells-group/hotspot-cli/internal/model"
)

// Dropped counts records discarded while joining results back onto units.
type Dropped struct {
	// Units had no matching result.
	Units int
	// Results referenced an id absent from the unit collection.
	Results int
}

// Assemble joins statistic results back onto the unit collection by id,
// preserving unit order. Unmatched records in either direction are dropped
// and counted rather than failing, since downstream consumers tolerate
// partial coverage.
func Assemble(units []model.Unit, results []model.Result) ([]model.Result, Dropped) {
	byID := make(map[string]model.Result, len(results))
	for _, r := range results {
		byID[r.ID] = r
	}

	var dropped Dropped
	assembled := make([]model.Result, 0, len(units))
	matched := make(map[string]struct{}, len(units))
	for _, u := range units {
		r, ok := byID[u.ID]
		if !ok {
			dropped.Units++
			continue
		}
		matched[u.ID] = struct{}{}
		assembled = append(assembled, r)
	}

	for _, r := range results {
		if _, ok := matched[r.ID]; !ok {
			dropped.Results++
		}
	}

	return assembled, dropped
}
