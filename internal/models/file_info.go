package models

import "time"

// FileInfo represents metadata about an uploaded dataset file.
type FileInfo struct {
	Partition    string    `json:"partition"`
	Name         string    `json:"name"` // original file name as uploaded
	RawPath      string    `json:"rawPath"`
	ReviewedPath string    `json:"reviewedPath,omitempty"`
	Size         int64     `json:"size"`
	UploadedAt   time.Time `json:"uploadedAt"`
}
