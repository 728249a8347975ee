package domain

import "errors"

// ErrEmptyResourceName is returned when a resource is added without a name.
var ErrEmptyResourceName = errors.New("resource name must not be empty")

// Resource is one learning resource attached to a session. UploadID, when set,
// references an uploaded file record that lives only in the volatile upload
// store; it is not guaranteed to resolve after a process restart.
type Resource struct {
	Name     string `json:"name"`
	Type     string `json:"type,omitempty"`
	Link     string `json:"link,omitempty"`
	UploadID string `json:"upload_id,omitempty"`
}

// HasUpload reports whether the resource references an uploaded file.
func (r *Resource) HasUpload() bool {
	return r.UploadID != ""
}
