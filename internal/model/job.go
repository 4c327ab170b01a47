package model

import "errors"

// Job is a relay job request: one launch of the remote job API.
type Job struct {
	ID          string            `json:"id,omitempty"`
	Endpoint    string            `json:"endpoint"`
	Inputs      map[string]string `json:"inputs,omitempty"`
	OutputPaths map[string]string `json:"output_paths,omitempty"`
	Properties  map[string]any    `json:"properties,omitempty"`
	DownloadDir string            `json:"download_dir,omitempty"`
}

// JobState is the lifecycle state of a relay job.
type JobState string

const (
	StateQueued    JobState = "queued"
	StateLaunched  JobState = "launched"
	StateCompleted JobState = "completed"
	StateFailed    JobState = "failed"
)

// OutputFile identifies a downloadable result artifact on the remote API.
type OutputFile struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// JobStatus is the per-job record kept while a relay job moves through its
// lifecycle.
type JobStatus struct {
	ID          string       `json:"id"`
	State       JobState     `json:"state"`
	Token       string       `json:"token,omitempty"`
	ElapsedSecs float64      `json:"elapsed_seconds,omitempty"`
	OutputFiles []OutputFile `json:"output_files,omitempty"`
	Error       string       `json:"error,omitempty"`
}

// Validate checks that a submitted job can be launched at all.
func (j *Job) Validate() error {
	if j.Endpoint == "" {
		return errors.New("job endpoint is required")
	}
	return nil
}
