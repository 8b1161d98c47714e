package model

import "time"

// Setting is a row in the generic key/value settings store.
//
// Values are stored as strings; structured values are JSON-encoded and
// decoded on read by the setting service. Used for runtime configuration
// that admins can change without a restart, such as the Google auth
// provider credentials.
type Setting struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
