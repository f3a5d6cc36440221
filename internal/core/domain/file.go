package domain

import "time"

// File is a registered upload. Upload and byte storage are owned by an
// external collaborator; this record carries the identity the pipeline
// needs to locate and describe the bytes.
type File struct {
	// ID is the unique file identifier.
	ID string

	// Name is the original file name.
	Name string

	// MIMEType is the declared content type, used by the extractor and
	// as a search filter.
	MIMEType string

	// Path is the location of the stored bytes.
	Path string

	// Size is the byte length at registration time.
	Size int64

	// CreatedAt is when the file was registered.
	CreatedAt time.Time
}
