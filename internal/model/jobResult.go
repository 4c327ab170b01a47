package model

type JobResult struct {
	Job         `json:"job,omitempty"`
	Token       string       `json:"token,omitempty"`
	ElapsedSecs float64      `json:"elapsed_seconds,omitempty"`
	OutputFiles []OutputFile `json:"output_files,omitempty"`
	Error       string       `json:"error,omitempty"`
}
