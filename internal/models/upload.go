package models

import (
	"encoding/json"
	"io"
)

// ArtifactKind distinguishes the two kinds of staged uploads
type ArtifactKind string

const (
	ArtifactDocument ArtifactKind = "document"
	ArtifactImage    ArtifactKind = "image"
)

// Upload is one payload received from a client, not yet validated
type Upload struct {
	Reader    io.Reader
	Size      int64
	MediaType string
	FileName  string
}

// TempArtifact is an upload persisted under the temporary namespace
type TempArtifact struct {
	Path         string       `json:"tempPath"`
	OriginalName string       `json:"fileName"`
	Kind         ArtifactKind `json:"kind"`
	Size         int64        `json:"size"`
}

// PreviewResult is returned after a staged document was converted
type PreviewResult struct {
	TempPath    string `json:"tempPath"`
	HTMLContent string `json:"htmlContent"`
	FileName    string `json:"fileName"`
}

// ConfirmRequest carries the caller's decision to publish a previewed upload
type ConfirmRequest struct {
	TempPath    string      `json:"tempPath" form:"tempPath"`
	Title       string      `json:"title" form:"title"`
	FileName    string      `json:"fileName" form:"fileName"`
	Category    string      `json:"category" form:"category"`
	ReadingTime json.Number `json:"reading_time" form:"reading_time"`
}

// CancelRequest discards a previewed upload
type CancelRequest struct {
	TempPath string `json:"tempPath" form:"tempPath"`
}
