package domain

import "time"

type UserID string

type UserRole string

const (
	RoleUser  UserRole = "user"
	RoleAdmin UserRole = "admin"
)

// Toggle flips between the two roles an account can hold.
func (r UserRole) Toggle() UserRole {
	if r == RoleUser {
		return RoleAdmin
	}
	return RoleUser
}

const SubscriptionStatusActive = "active"

type Subscription struct {
	ID     string `json:"id,omitempty" bson:"id,omitempty"`
	Status string `json:"status,omitempty" bson:"status,omitempty"`
}

func (s Subscription) IsActive() bool {
	return s.Status == SubscriptionStatusActive
}

type PlaylistItem struct {
	Course CourseID `json:"course" bson:"course"`
	Poster string   `json:"poster" bson:"poster"`
}

type User struct {
	ID           UserID         `json:"_id" bson:"_id"`
	Name         string         `json:"name" bson:"name"`
	Email        string         `json:"email" bson:"email"`
	PasswordHash string         `json:"-" bson:"password"`
	Role         UserRole       `json:"role" bson:"role"`
	Avatar       MediaRef       `json:"avatar" bson:"avatar"`
	Subscription Subscription   `json:"subscription" bson:"subscription"`
	Playlist     []PlaylistItem `json:"playlist" bson:"playlist"`

	ResetPasswordToken  string     `json:"-" bson:"reset_password_token,omitempty"`
	ResetPasswordExpire *time.Time `json:"-" bson:"reset_password_expire,omitempty"`

	CreatedAt time.Time `json:"createdAt" bson:"created_at"`
	Version   int64     `json:"-" bson:"version"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// HasPlaylistCourse reports whether the course is already in the playlist.
func (u *User) HasPlaylistCourse(id CourseID) bool {
	for _, item := range u.Playlist {
		if item.Course == id {
			return true
		}
	}
	return false
}

// WithoutPlaylistCourse returns a copy of the playlist with the course filtered out.
func (u *User) WithoutPlaylistCourse(id CourseID) []PlaylistItem {
	filtered := make([]PlaylistItem, 0, len(u.Playlist))
	for _, item := range u.Playlist {
		if item.Course != id {
			filtered = append(filtered, item)
		}
	}
	return filtered
}

// Clone returns a deep copy so repository transforms never alias stored state.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	if u.Playlist != nil {
		c.Playlist = append([]PlaylistItem(nil), u.Playlist...)
	}
	if u.ResetPasswordExpire != nil {
		t := *u.ResetPasswordExpire
		c.ResetPasswordExpire = &t
	}
	return &c
}
