package models

import "strings"

// Attachment is a single binary part carried by a notification.
type Attachment struct {
	Data         []byte
	MediaSubtype string // e.g. "png", sent as image/<subtype>
	Filename     string
}

// ContentType returns the MIME type the attachment is tagged with. The
// unregistered "jpg" subtype is sent as image/jpeg.
func (a Attachment) ContentType() string {
	subtype := strings.ToLower(a.MediaSubtype)
	if subtype == "jpg" {
		subtype = "jpeg"
	}
	return "image/" + subtype
}

// Notification is the recipient-agnostic message handed to the dispatcher.
type Notification struct {
	Subject    string
	Body       string
	Attachment *Attachment
}

// Email is a notification addressed to its recipient, as seen by a transport.
type Email struct {
	To         string
	Subject    string
	Body       string
	Attachment *Attachment
}
