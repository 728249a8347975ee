package domain

import (
	"fmt"
	"time"
)

// UploadedFile is the raw payload of a file attached to a resource. Records
// live only in the volatile upload store for the lifetime of the process.
type UploadedFile struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	MIME string `json:"mime"`
	Size int64  `json:"size"`
	Data []byte `json:"-"`
}

// NewUploadID derives an upload id from the upload time and the original
// filename. Uniqueness is only as strong as filename plus second granularity:
// two uploads of the same name within the same second collide. Acceptable here
// because the upload store is not durability-critical.
func NewUploadID(t time.Time, filename string) string {
	return fmt.Sprintf("%d_%s", t.Unix(), filename)
}
