package entities

import (
	"time"

	"github.com/leafsii/leafsii-cms/internal/db/interfaces"
)

// Media is the metadata of an uploaded file
type Media struct {
	ID               string    `json:"id" db:"id"`
	Filename         string    `json:"filename" db:"filename"`
	OriginalFilename string    `json:"original_filename" db:"original_filename"`
	FileType         string    `json:"file_type" db:"file_type"`
	FileSize         int64     `json:"file_size" db:"file_size"`
	UploadedBy       *string   `json:"uploaded_by,omitempty" db:"uploaded_by"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time `json:"updated_at" db:"updated_at"`
}

// MediaSchema defines the database schema for media
var MediaSchema = &interfaces.Schema{
	TableName: "media",
	Fields: withTimestamps(map[string]interfaces.FieldSchema{
		"filename": {
			Type:   "string",
			Unique: true,
		},
		"original_filename": {
			Type: "string",
		},
		"file_type": {
			Type:         "string",
			DefaultValue: "",
		},
		"file_size": {
			Type:         "int64",
			DefaultValue: int64(0),
		},
		"uploaded_by": {
			Type:     "string",
			Nullable: true,
			ForeignKey: &interfaces.ForeignKey{
				Table:    "users",
				Column:   "id",
				OnDelete: interfaces.OnDeleteSetNull,
			},
		},
	}),
	Indexes: []interfaces.Index{
		{
			Name:    "idx_media_filename",
			Columns: []string{"filename"},
			Unique:  true,
		},
	},
}

// MediaFromRecord maps a media row.
func MediaFromRecord(r interfaces.Record) *Media {
	return &Media{
		ID:               getString(r, "id"),
		Filename:         getString(r, "filename"),
		OriginalFilename: getString(r, "original_filename"),
		FileType:         getString(r, "file_type"),
		FileSize:         getInt64(r, "file_size"),
		UploadedBy:       getStringPtr(r, "uploaded_by"),
		CreatedAt:        getTime(r, "created_at"),
		UpdatedAt:        getTime(r, "updated_at"),
	}
}

// Record returns the writable columns of the media row.
func (m *Media) Record() interfaces.Record {
	return interfaces.Record{
		"filename":          m.Filename,
		"original_filename": m.OriginalFilename,
		"file_type":         m.FileType,
		"file_size":         m.FileSize,
		"uploaded_by":       nullable(m.UploadedBy),
	}
}
