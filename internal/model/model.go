// Package model defines the data structures used throughout the application.
//
// Every persisted resource embeds Base, which carries the store-assigned id
// and timestamps. The repository and service layers are generic over
// Entity, so one implementation serves all eight resource collections.
package model

import "time"

// Base holds the fields the store owns. Handlers never let a client
// overwrite them (see Patch.Without).
type Base struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Meta exposes the embedded Base through a pointer so generic code can set
// ids and timestamps on any resource.
func (b *Base) Meta() *Base { return b }

// Entity is satisfied by *T for every resource type T that embeds Base.
type Entity[T any] interface {
	*T
	Meta() *Base
}

// Sluggable resources get a slug derived from their title on create.
type Sluggable interface {
	SlugSource() string
	CurrentSlug() string
	SetSlug(string)
}

// Identity is what a verified session token resolves to. Handlers read it
// from the request context; it never includes the password hash.
type Identity struct {
	AccountID string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
}
