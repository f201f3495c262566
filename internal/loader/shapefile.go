// Package loader turns shapefiles and attribute tables into the unit
// collections the analysis pipeline consumes.
package loader

import (
	"strconv"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/sells-group/hotspot-cli/internal/model"
)

// LoadShapefile reads areal units from a shapefile. idField names the
// attribute column holding the unit id; valueField names the numeric
// attribute column and may be empty when values come from a separate table.
// Records with an empty id or an unconvertible geometry are skipped with a
// warning.
func LoadShapefile(path, idField, valueField string) ([]model.Unit, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "loader: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	idIdx := fieldIndex(reader, idField)
	if idIdx < 0 {
		return nil, eris.Errorf("loader: id field %q not found in %s", idField, path)
	}
	valueIdx := -1
	if valueField != "" {
		valueIdx = fieldIndex(reader, valueField)
		if valueIdx < 0 {
			return nil, eris.Errorf("loader: value field %q not found in %s", valueField, path)
		}
	}

	var units []model.Unit
	var skipped int
	for reader.Next() {
		_, shape := reader.Shape()

		id := strings.TrimSpace(strings.TrimRight(reader.Attribute(idIdx), "\x00"))
		if id == "" {
			skipped++
			continue
		}

		g := shapeToMultiPolygon(shape)
		if g == nil {
			skipped++
			continue
		}

		u := model.Unit{ID: id, Geom: g}
		if valueIdx >= 0 {
			u.Value = parseValue(reader.Attribute(valueIdx))
		}
		units = append(units, u)
	}

	if skipped > 0 {
		zap.L().Warn("loader: skipped shapefile records",
			zap.String("path", path),
			zap.Int("skipped", skipped),
		)
	}
	if len(units) == 0 {
		return nil, eris.Errorf("loader: no usable records in %s", path)
	}

	zap.L().Info("loader: shapefile loaded",
		zap.String("path", path),
		zap.Int("units", len(units)),
	)
	return units, nil
}

// shapeToMultiPolygon converts a shapefile polygon to a geom.MultiPolygon.
// Returns nil for nil, empty, or non-polygon shapes.
func shapeToMultiPolygon(s shp.Shape) *geom.MultiPolygon {
	p, ok := s.(*shp.Polygon)
	if !ok || p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	mp := geom.NewMultiPolygon(geom.XY)
	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		end := int32(len(p.Points))
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		}

		flat := make([]float64, 0, (end-start)*2)
		for j := start; j < end; j++ {
			flat = append(flat, p.Points[j].X, p.Points[j].Y)
		}

		ring := geom.NewLinearRingFlat(geom.XY, flat)
		poly := geom.NewPolygon(geom.XY)
		if err := poly.Push(ring); err != nil {
			zap.L().Debug("loader: skipping malformed ring", zap.Int32("part", i), zap.Error(err))
			continue
		}
		if err := mp.Push(poly); err != nil {
			zap.L().Debug("loader: skipping malformed part", zap.Int32("part", i), zap.Error(err))
			continue
		}
	}

	if mp.NumPolygons() == 0 {
		return nil
	}
	return mp
}

// parseValue converts a shapefile attribute to a float. Empty or
// unparsable values map to missing, not zero.
func parseValue(raw string) *float64 {
	cleaned := strings.TrimSpace(strings.TrimRight(raw, "\x00"))
	if cleaned == "" {
		return nil
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return nil
	}
	return &v
}

// fieldIndex returns the index of a named field in the shapefile, or -1.
func fieldIndex(reader *shp.Reader, name string) int {
	for i, f := range reader.Fields() {
		if strings.EqualFold(strings.TrimRight(f.String(), "\x00"), name) {
			return i
		}
	}
	return -1
}
