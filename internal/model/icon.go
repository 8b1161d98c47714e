// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data — plain values with no behaviour
// beyond a few small helpers. Go favours composition over inheritance.
package model

import "time"

// Icon file types accepted by the gallery.
//
// SVG is a vector format the browser can render directly, so it doubles as
// its own preview. ICNS is Apple's icon container — browsers can't display
// it, which is why an uploaded preview image is mandatory for it.
const (
	FileTypeSVG  = "svg"
	FileTypeICNS = "icns"
)

// Size labels an icon may carry. "vector" is for resolution-independent SVGs.
var ValidSizes = []string{"512", "1024", "2048", "vector"}

// Icon represents an uploaded icon and its stored files.
//
// Slug is the public identifier: globally unique, derived from Name at
// upload time, and immutable afterwards. Public routes address icons by
// slug, never by ID.
//
// FilePath and PreviewPath are paths relative to the content store root
// (see internal/storage). PreviewPath is empty for SVG icons uploaded
// without a preview — the SVG itself is previewable.
type Icon struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category"` // category slug, not ID
	Size        string    `json:"size,omitempty"`
	Tags        string    `json:"tags,omitempty"`
	FilePath    string    `json:"-"` // internal storage path, not exposed
	PreviewPath string    `json:"-"`
	FileType    string    `json:"fileType"` // "svg" or "icns"
	FileSize    int64     `json:"fileSize"` // bytes
	Downloads   int64     `json:"downloads"`
	IsApproved  bool      `json:"isApproved"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// DownloadName is the filename suggested to the browser when the icon is
// downloaded: the slug plus the file type extension, e.g. "safari-2024.svg".
// The stored filename is never exposed.
func (i *Icon) DownloadName() string {
	return i.Slug + "." + i.FileType
}

// HasPreview reports whether the icon has a dedicated preview image.
func (i *Icon) HasPreview() bool {
	return i.PreviewPath != ""
}
