package domain

import "io"

// Asset is a file stored on the media host. ID is the handle used to delete it.
type Asset struct {
	URL string
	ID  string
}

// UploadFile is an avatar received from a client.
type UploadFile struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}
