package hotspot

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/hotspot-cli/internal/model"
)

func TestAssemble_JoinPreservesUnitOrder(t *testing.T) {
	units := []model.Unit{{ID: "b"}, {ID: "a"}, {ID: "c"}}
	results := []model.Result{
		{ID: "a", Category: model.CategoryNone},
		{ID: "c", Category: model.CategoryHighCluster},
		{ID: "b", Category: model.CategoryLowCluster},
	}

	assembled, dropped := Assemble(units, results)

	assert.Equal(t, Dropped{}, dropped)
	assert.Equal(t, []string{"b", "a", "c"}, []string{assembled[0].ID, assembled[1].ID, assembled[2].ID})
}

func TestAssemble_DropsUnmatchedBothDirections(t *testing.T) {
	units := []model.Unit{{ID: "a"}, {ID: "orphan-unit"}}
	results := []model.Result{
		{ID: "a", Category: model.CategoryNone},
		{ID: "orphan-result", Category: model.CategoryNone},
	}

	assembled, dropped := Assemble(units, results)

	assert.Len(t, assembled, 1)
	assert.Equal(t, "a", assembled[0].ID)
	assert.Equal(t, 1, dropped.Units)
	assert.Equal(t, 1, dropped.Results)
}

func TestAssemble_Empty(t *testing.T) {
	assembled, dropped := Assemble(nil, nil)
	assert.Empty(t, assembled)
	assert.Equal(t, Dropped{}, dropped)
}
