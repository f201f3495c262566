package gistar

import "github.com/sells-group/hotspot-cli/internal/model"

// Classification thresholds matching the two-tailed ~95% confidence
// convention. They are defaults, not hardcoded: callers may override both.
const (
	DefaultHighThreshold = 2.0
	DefaultLowThreshold  = -2.0
)

// Classify maps a Gi* z-score to a cluster category. A nil z-score means the
// statistic was undefined for the unit.
func Classify(z *float64, high, low float64) string {
	if z == nil {
		return model.CategoryUndefined
	}
	switch {
	case *z >= high:
		return model.CategoryHighCluster
	case *z <= low:
		return model.CategoryLowCluster
	default:
		return model.CategoryNone
	}
}
