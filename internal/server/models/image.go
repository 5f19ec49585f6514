package models

import "time"

// WriteHandle is a one-time upload destination. The client PUTs raw image
// bytes to URL and then refers to the blob by StorageRef.
type WriteHandle struct {
	URL        string    `json:"uploadUrl"`
	StorageRef string    `json:"storageRef"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

// ImageFile is an image supplied together with a form submission.
type ImageFile struct {
	Name        string
	ContentType string
	Data        []byte
}
