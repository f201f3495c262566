package model

import "time"

// Cluster categories assigned to each unit by the Gi* classifier.
const (
	CategoryHighCluster = "HIGH_CLUSTER"
	CategoryLowCluster  = "LOW_CLUSTER"
	CategoryNone        = "NONE"
	CategoryUndefined   = "UNDEFINED"
)

// Result is the per-unit outcome of a hotspot analysis. ZScore is nil when
// the statistic could not be computed, in which case Category is UNDEFINED.
type Result struct {
	ID       string   `json:"id"`
	ZScore   *float64 `json:"z_score"`
	Category string   `json:"category"`
}

// Diagnostics counts the non-fatal anomalies observed during one analysis.
type Diagnostics struct {
	InvalidGeometries int `json:"invalid_geometries"`
	Islands           int `json:"islands"`
	DroppedUnits      int `json:"dropped_units"`
	DroppedResults    int `json:"dropped_results"`
}

// Analysis is the assembled output of one pipeline invocation: one result per
// surviving input unit, in input order, plus diagnostics.
type Analysis struct {
	Results     []Result    `json:"results"`
	Diagnostics Diagnostics `json:"diagnostics"`
}

// Params records the tuning knobs an analysis ran with, for persistence.
type Params struct {
	VertexTolerance float64 `json:"vertex_tolerance"`
	HighThreshold   float64 `json:"high_threshold"`
	LowThreshold    float64 `json:"low_threshold"`
}

// RunStatus represents the current state of a stored analysis run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run is a persisted analysis run.
type Run struct {
	ID          string      `json:"id"`
	Source      string      `json:"source"`
	Params      Params      `json:"params"`
	Status      RunStatus   `json:"status"`
	Diagnostics Diagnostics `json:"diagnostics"`
	Error       string      `json:"error,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}
