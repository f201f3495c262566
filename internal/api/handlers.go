package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"
	geom "github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/sells-group/hotspot-cli/internal/hotspot"
	"github.com/sells-group/hotspot-cli/internal/model"
	"github.com/sells-group/hotspot-cli/internal/store"
)

// maxDetectBody caps detection request bodies at 32 MiB.
const maxDetectBody = 32 << 20

type unitPayload struct {
	ID    string   `json:"id"`
	Value *float64 `json:"value"`
	// Polygons nests polygon -> ring -> [x, y]. The first ring of each
	// polygon is the exterior.
	Polygons [][][][2]float64 `json:"polygons"`
}

type paramsPayload struct {
	VertexTolerance *float64 `json:"vertex_tolerance"`
	HighThreshold   *float64 `json:"high_threshold"`
	LowThreshold    *float64 `json:"low_threshold"`
}

type detectRequest struct {
	Units  []unitPayload  `json:"units"`
	Params *paramsPayload `json:"params"`
}

type detectResponse struct {
	RunID       string            `json:"run_id,omitempty"`
	Results     []model.Result    `json:"results"`
	Diagnostics model.Diagnostics `json:"diagnostics"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleDetect(w http.ResponseWriter, r *http.Request) {
	var req detectRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxDetectBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Units) == 0 {
		writeError(w, http.StatusBadRequest, "units is required")
		return
	}

	units, err := decodeUnits(req.Units)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	opts := s.detect
	if p := req.Params; p != nil {
		if p.VertexTolerance != nil {
			opts.VertexTolerance = *p.VertexTolerance
		}
		if p.HighThreshold != nil {
			opts.HighThreshold = p.HighThreshold
		}
		if p.LowThreshold != nil {
			opts.LowThreshold = p.LowThreshold
		}
	}

	var run *model.Run
	if s.store != nil {
		run, err = s.store.CreateRun(r.Context(), "api", opts.Params())
		if err != nil {
			zap.L().Error("create run", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "persistence failure")
			return
		}
	}

	analysis, err := hotspot.Detect(r.Context(), units, opts)
	if err != nil {
		if run != nil {
			if ferr := s.store.FailRun(r.Context(), run.ID, err.Error()); ferr != nil {
				zap.L().Error("fail run", zap.String("run_id", run.ID), zap.Error(ferr))
			}
		}
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	resp := detectResponse{
		Results:     analysis.Results,
		Diagnostics: analysis.Diagnostics,
	}
	if run != nil {
		if err := s.store.CompleteRun(r.Context(), run.ID, analysis.Diagnostics, analysis.Results); err != nil {
			zap.L().Error("complete run", zap.String("run_id", run.ID), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "persistence failure")
			return
		}
		resp.RunID = run.ID
	}

	writeJSON(w, http.StatusOK, resp)
}

// decodeUnits validates the payload and converts nested coordinate arrays
// into multipolygon geometries.
func decodeUnits(payload []unitPayload) ([]model.Unit, error) {
	units := make([]model.Unit, 0, len(payload))
	for i, u := range payload {
		if u.ID == "" {
			return nil, eris.Errorf("unit %d: id is required", i)
		}
		if len(u.Polygons) == 0 {
			return nil, eris.Errorf("unit %q: polygons is required", u.ID)
		}
		coords := make([][][]geom.Coord, len(u.Polygons))
		for pi, poly := range u.Polygons {
			if len(poly) == 0 {
				return nil, eris.Errorf("unit %q: polygon %d has no rings", u.ID, pi)
			}
			rings := make([][]geom.Coord, len(poly))
			for ri, ring := range poly {
				pts := make([]geom.Coord, len(ring))
				for ci, c := range ring {
					pts[ci] = geom.Coord{c[0], c[1]}
				}
				rings[ri] = pts
			}
			coords[pi] = rings
		}
		mp, err := geom.NewMultiPolygon(geom.XY).SetCoords(coords)
		if err != nil {
			return nil, eris.Wrapf(err, "unit %q: invalid coordinates", u.ID)
		}
		units = append(units, model.Unit{ID: u.ID, Geom: mp, Value: u.Value})
	}
	return units, nil
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "no store configured")
		return
	}

	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	runs, err := s.store.ListRuns(r.Context(), limit, offset)
	if err != nil {
		zap.L().Error("list runs", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "persistence failure")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "no store configured")
		return
	}

	run, err := s.store.GetRun(r.Context(), chi.URLParam(r, "runID"))
	if err != nil {
		if eris.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "run not found")
			return
		}
		zap.L().Error("get run", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "persistence failure")
		return
	}

	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleGetResults(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "no store configured")
		return
	}

	runID := chi.URLParam(r, "runID")
	if _, err := s.store.GetRun(r.Context(), runID); err != nil {
		if eris.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "run not found")
			return
		}
		zap.L().Error("get run", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "persistence failure")
		return
	}

	results, err := s.store.GetResults(r.Context(), runID)
	if err != nil {
		zap.L().Error("get results", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "persistence failure")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return def
	}
	return v
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("write response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
