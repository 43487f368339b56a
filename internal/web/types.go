package web

import (
	"time"

	"spotload/pkg/models"
)

type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// DownloadRequest names either a catalog link or a free-text query.
type DownloadRequest struct {
	Link    string `json:"link,omitempty"`
	Query   string `json:"query,omitempty"`
	Quality string `json:"quality,omitempty"`
	Folder  string `json:"folder,omitempty"`
}

type DownloadResponse struct {
	RunID       string         `json:"run_id"`
	Kind        string         `json:"kind"`
	Name        string         `json:"name"`
	Destination string         `json:"destination"`
	Summary     models.Summary `json:"summary"`
}

type StatusResponse struct {
	Busy    bool     `json:"busy"`
	Current *RunInfo `json:"current,omitempty"`
	Last    *RunInfo `json:"last,omitempty"`
}

// RunInfo is the live or final state of one run.
type RunInfo struct {
	ID          string         `json:"id"`
	Input       string         `json:"input"`
	StartedAt   time.Time      `json:"started_at"`
	FinishedAt  *time.Time     `json:"finished_at,omitempty"`
	Track       string         `json:"track,omitempty"`
	Index       int            `json:"index"`
	Total       int            `json:"total"`
	Destination string         `json:"destination,omitempty"`
	Summary     models.Summary `json:"summary"`
	Error       string         `json:"error,omitempty"`
}

func NewSuccessResponse(data interface{}) APIResponse {
	return APIResponse{
		Success: true,
		Data:    data,
	}
}

func NewErrorResponse(err string) APIResponse {
	return APIResponse{
		Success: false,
		Error:   err,
	}
}
