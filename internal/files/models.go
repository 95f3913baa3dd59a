// Package files manages uploaded file blobs and their metadata. Blobs live on
// disk under the configured upload directory; metadata lives in the store.
package files

import "time"

// MaxUploadSize caps a single upload at 10 MiB.
const MaxUploadSize = 10 << 20

// File is the metadata of one stored blob.
type File struct {
	ID               string
	StoredFilename   string
	OriginalFilename string
	Path             string
	Size             int64
	MimeType         string
	Owner            string
	Public           bool
	CreatedAt        time.Time
}
