package models

import (
	"time"

	"github.com/google/uuid"
)

type Document struct {
	ID            uuid.UUID `json:"id" db:"id"`
	FileName      string    `json:"file_name" db:"file_name"`
	FilePath      string    `json:"file_path,omitempty" db:"file_path"`
	FileExtension string    `json:"file_extension" db:"file_extension"`
	MimeType      string    `json:"mime_type" db:"mime_type"`
	FileSizeBytes int64     `json:"file_size_bytes" db:"file_size_bytes"`
	Category      string    `json:"category,omitempty" db:"category"`
	Description   string    `json:"description,omitempty" db:"description"`
	Views         int       `json:"views" db:"views"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}
