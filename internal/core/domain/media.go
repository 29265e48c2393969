package domain

import "io"

// MediaKind selects how the media store files an object.
type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaVideo MediaKind = "video"
)

// MediaRef points at an object held by the external media store.
type MediaRef struct {
	PublicID string `json:"public_id" bson:"public_id"`
	URL      string `json:"url" bson:"url"`
}

func (m MediaRef) IsZero() bool {
	return m.PublicID == ""
}

// Upload is a file received from a client and headed for the media store.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}
