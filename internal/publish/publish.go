// Package publish defines the session contract used to post the progress
// image. Sessions are authenticated once at startup and passed to the poster.
package publish

import "context"

// Media is an uploaded image handle. ID is platform specific.
type Media struct {
	ID string
	// Data keeps the bytes for platforms that upload and post in one call.
	Data []byte
}

// Session is an authenticated connection to a social platform.
type Session interface {
	Upload(ctx context.Context, image []byte) (Media, error)
	Post(ctx context.Context, text string, m Media) error
}
