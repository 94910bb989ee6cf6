package archive

import "time"

// ScanRecord is the JSON document archived next to each label image.
type ScanRecord struct {
	Version       string            `json:"version"` // "1.0"
	ImageSHA256   string            `json:"image_sha256"`
	ImageFormat   string            `json:"image_format"`
	ImageKey      string            `json:"image_key,omitempty"`
	ArchivedAt    time.Time         `json:"archived_at"`
	ExtractedText string            `json:"extracted_text"` // PII-scrubbed
	Fields        map[string]string `json:"fields"`
	Fallback      bool              `json:"fallback"` // fields are error sentinels
}

// ManifestEntry is one JSONL line in the monthly manifest file.
type ManifestEntry struct {
	ImageSHA256 string `json:"image_sha256"`
	S3Key       string `json:"s3_key"`
	ImageKey    string `json:"image_key"`
	Fallback    bool   `json:"fallback"`
	ArchivedAt  string `json:"archived_at"`
}
