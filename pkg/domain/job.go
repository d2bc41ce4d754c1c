package domain

import "time"

// JobKind names the pipeline stage that produced a job.
type JobKind string

const (
	KindResegment JobKind = "resegment"
	KindReproject JobKind = "reproject"
	KindUnproject JobKind = "unproject"
	KindRefine    JobKind = "refine"
	KindMesh      JobKind = "mesh"  // forward or inverse mesh transform
	KindLayer     JobKind = "layer" // bent layer surface preview
	KindCheck     JobKind = "check"
)

// JobStatus defines whether a job produced output.
type JobStatus string

const (
	StatusSucceeded JobStatus = "succeeded"
	StatusFailed    JobStatus = "failed"
)

// Stats aggregates the counters reported by the pipeline stages. Fields that do not
// apply to a job kind stay zero.
type Stats struct {
	Lines    int `json:"lines,omitempty"`
	Motion   int `json:"motion,omitempty"`
	Selected int `json:"selected,omitempty"`
	Changed  int `json:"changed,omitempty"`
	Emitted  int `json:"emitted,omitempty"`

	Triangles int `json:"triangles,omitempty"`
	Splits    int `json:"splits,omitempty"`

	Samples  int     `json:"samples,omitempty"`
	MaxError float64 `json:"max_error,omitempty"`
}

// Job is the record of one pipeline run.
type Job struct {
	ID        string         `json:"id"`
	Kind      JobKind        `json:"kind"`
	Status    JobStatus      `json:"status"`
	Transform string         `json:"transform,omitempty"`
	Params    map[string]any `json:"params,omitempty"`
	Stats     Stats          `json:"stats"`

	// Output holds G-code text for motion jobs.
	Output string `json:"output,omitempty"`
	// Mesh holds the vertex buffer for mesh jobs.
	Mesh []float64 `json:"mesh,omitempty"`

	Error     string        `json:"error,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	Duration  time.Duration `json:"duration"`
}

// NewJob creates a job of the given kind with empty params.
func NewJob(id string, kind JobKind) *Job {
	return &Job{
		ID:        id,
		Kind:      kind,
		Status:    StatusSucceeded,
		Params:    make(map[string]any),
		CreatedAt: time.Now().UTC(),
	}
}

// Fail marks the job as failed with err.
func (j *Job) Fail(err error) {
	j.Status = StatusFailed
	j.Error = err.Error()
}

// Clone returns a copy that shares no maps or slices with j.
func (j *Job) Clone() *Job {
	c := *j
	if j.Params != nil {
		c.Params = make(map[string]any, len(j.Params))
		for k, v := range j.Params {
			c.Params[k] = v
		}
	}
	if j.Mesh != nil {
		c.Mesh = append([]float64(nil), j.Mesh...)
	}
	return &c
}
