package models

type FileResponse struct {
	Path         string  `json:"path"`
	Name         string  `json:"name"`
	Size         int64   `json:"size"`
	LastModified float64 `json:"last_modified"`
}

type FileManagerAttributes struct {
	Files []FileResponse `json:"files"`
	Size  int64          `json:"size"`
}

type AllowedMimeTypesOutput struct {
	Allowed []string `json:"allowed"`
}

// UploadOptions are the optional form fields of rabbit hole uploads.
type UploadOptions struct {
	ChunkSize    int
	ChunkOverlap int
	Metadata     map[string]any
}

// WebInput is the body of a rabbit hole URL ingestion.
type WebInput struct {
	URL          string         `json:"url"`
	ChunkSize    int            `json:"chunk_size,omitempty"`
	ChunkOverlap int            `json:"chunk_overlap,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}
