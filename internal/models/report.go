package models

import "time"

// Report is one rendered research report on disk.
type Report struct {
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	Digest    string    `json:"digest"`
	CreatedAt time.Time `json:"created_at"`
}

// PipelineRun summarizes one end-to-end pipeline execution.
type PipelineRun struct {
	StartedAt      time.Time      `json:"started_at"`
	FinishedAt     time.Time      `json:"finished_at"`
	ArticleCount   int            `json:"article_count"`
	ExtractedCount int            `json:"extracted_count"`
	DegradedCount  int            `json:"degraded_count"`
	SavedCount     int            `json:"saved_count"`
	SymbolCount    int            `json:"symbol_count"`
	ReportPath     string         `json:"report_path,omitempty"`
	Notified       bool           `json:"notified"`
	Failures       []FetchFailure `json:"failures,omitempty"`
}
