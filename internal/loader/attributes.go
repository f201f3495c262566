package loader

import (
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/hotspot-cli/internal/model"
)

// LoadAttributes reads a unit_id -> value mapping from a CSV file with a
// header row. Empty or non-numeric value cells become missing values rather
// than zeros.
func LoadAttributes(path, idColumn, valueColumn string) (map[string]*float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "loader: open attributes %s", path)
	}
	defer func() { _ = f.Close() }()

	return ReadAttributes(f, idColumn, valueColumn)
}

// ReadAttributes parses CSV attribute rows from a reader.
func ReadAttributes(r io.Reader, idColumn, valueColumn string) (map[string]*float64, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, eris.Wrap(err, "loader: read attribute header")
	}

	idIdx, valueIdx := -1, -1
	for i, col := range header {
		switch {
		case strings.EqualFold(strings.TrimSpace(col), idColumn):
			idIdx = i
		case strings.EqualFold(strings.TrimSpace(col), valueColumn):
			valueIdx = i
		}
	}
	if idIdx < 0 {
		return nil, eris.Errorf("loader: id column %q not found", idColumn)
	}
	if valueIdx < 0 {
		return nil, eris.Errorf("loader: value column %q not found", valueColumn)
	}

	values := make(map[string]*float64)
	var skipped int
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "loader: read attribute row")
		}
		if idIdx >= len(record) {
			skipped++
			continue
		}
		id := strings.TrimSpace(record[idIdx])
		if id == "" {
			skipped++
			continue
		}
		if valueIdx >= len(record) {
			values[id] = nil
			continue
		}
		values[id] = parseValue(record[valueIdx])
	}

	if skipped > 0 {
		zap.L().Warn("loader: skipped attribute rows", zap.Int("skipped", skipped))
	}
	return values, nil
}

// ApplyAttributes overwrites unit values from the mapping, matching by id.
// Units absent from the mapping keep their current value. Returns the number
// of units matched.
func ApplyAttributes(units []model.Unit, values map[string]*float64) int {
	var matched int
	for i := range units {
		if v, ok := values[units[i].ID]; ok {
			units[i].Value = v
			matched++
		}
	}
	return matched
}
