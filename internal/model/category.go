package model

import "time"

// Category is a named taxonomy entry icons are filed under.
//
// Icons reference categories by slug (a stable, URL-safe string), not by ID,
// so renaming a category's display name never touches the icons table.
// A category cannot be deleted while any icon still references its slug.
type Category struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	IconCount int64     `json:"iconCount,omitempty"` // filled by list queries, not stored
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
