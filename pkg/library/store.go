// Package library talks to the PDF library backend: saving generated
// documents with their metadata, listing, fetching, updating and deleting
// them, and logging in to obtain a token.
package library

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrUnauthorized is returned for 401 responses or a missing token
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotFound is returned when a record does not exist
	ErrNotFound = errors.New("pdf not found")
)

// StatusError is returned for any other non-2xx response
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned status %d", e.Code)
	}
	return fmt.Sprintf("server returned status %d: %s", e.Code, e.Message)
}

// Metadata accompanies a saved PDF
type Metadata struct {
	Filename  string
	PageCount int
	FileSize  int
	// Thumbnail is an optional JPEG of the first page
	Thumbnail []byte
}

// Record is a stored PDF as the backend returns it
type Record struct {
	ID           string    `json:"_id"`
	UserID       string    `json:"userId,omitempty"`
	Filename     string    `json:"filename"`
	FileURL      string    `json:"fileUrl"`
	FileSize     int       `json:"fileSize"`
	PageCount    int       `json:"pageCount"`
	ThumbnailURL string    `json:"thumbnailUrl,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// User is the profile returned on login
type User struct {
	ID              string `json:"id"`
	Username        string `json:"username"`
	Email           string `json:"email"`
	Profession      string `json:"profession,omitempty"`
	ProfilePhotoURL string `json:"profilePhotoUrl,omitempty"`
}

// Store persists generated PDFs
type Store interface {
	Save(ctx context.Context, pdf []byte, meta Metadata) (*Record, error)
	List(ctx context.Context) ([]Record, error)
	Get(ctx context.Context, id string) (*Record, error)
	Update(ctx context.Context, id string, pdf []byte, meta Metadata) (*Record, error)
	Delete(ctx context.Context, id string) error
}

// Authenticator exchanges credentials for a bearer token
type Authenticator interface {
	Login(ctx context.Context, email, password string) (string, *User, error)
}
