package domain

import "time"

// Identity is a user identity verified by the identity provider.
// It is produced once per request and passed explicitly to the services.
type Identity struct {
	Subject         string `json:"sub"`
	Email           string `json:"email"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	ProfileImageURL string `json:"profile_image_url"`
}

// User is the locally stored profile of an authenticated identity.
type User struct {
	ID              string
	Email           string
	FirstName       string
	LastName        string
	ProfileImageURL string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// UserFromIdentity builds the upsert payload for an identity.
func UserFromIdentity(id Identity) User {
	return User{
		ID:              id.Subject,
		Email:           id.Email,
		FirstName:       id.FirstName,
		LastName:        id.LastName,
		ProfileImageURL: id.ProfileImageURL,
	}
}
