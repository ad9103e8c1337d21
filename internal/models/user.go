package models

import "time"

// DefaultPhotoURL is served when a user has not uploaded a photo.
const DefaultPhotoURL = "/static/ui/user.png"

type User struct {
	ID       int    `gorm:"primaryKey" json:"id"`
	Username string `gorm:"unique;not null" json:"username"`
	Email    string `gorm:"unique;not null" json:"-"`
	Password string `gorm:"not null" json:"-"`
	Phone    string `json:"-"` // notification target, E.164

	// Set by the media service after upload and thumbnailing.
	Photo string `json:"-"`
	Thumb string `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"-"`
}

// PhotoURL returns the full-size avatar, or the default one.
func (u User) PhotoURL() string {
	if u.Photo != "" {
		return u.Photo
	}
	return DefaultPhotoURL
}

// ThumbURL returns the avatar thumbnail, falling back to PhotoURL.
func (u User) ThumbURL() string {
	if u.Thumb != "" {
		return u.Thumb
	}
	return u.PhotoURL()
}

// UserSummary is the public representation embedded in questions, answers and votes.
type UserSummary struct {
	ID            int    `json:"id"`
	Username      string `json:"username"`
	PhotoBigURL   string `json:"photo_big_url"`
	PhotoSmallURL string `json:"photo_small_url"`
}

func (u User) Summary() UserSummary {
	return UserSummary{
		ID:            u.ID,
		Username:      u.Username,
		PhotoBigURL:   u.PhotoURL(),
		PhotoSmallURL: u.ThumbURL(),
	}
}

type RegisterRequest struct {
	Username string `json:"username" binding:"required,max=150"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Phone    string `json:"phone"`
	Photo    string `json:"photo"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type UpdateProfileRequest struct {
	Email *string `json:"email" binding:"omitempty,email"`
	Phone *string `json:"phone"`
	Photo *string `json:"photo"`
	Thumb *string `json:"thumb"`
}

type AuthResponse struct {
	Token   string      `json:"token"`
	User    UserSummary `json:"user"`
	Message string      `json:"message,omitempty"`
}
