package models

import "time"

// User is a profile keyed by the identity provider's subject id.
type User struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	ExternalID string    `gorm:"size:191;not null;uniqueIndex" json:"external_id"`
	Name       string    `gorm:"not null" json:"name"`
	Email      string    `json:"email,omitempty"`
	Avatar     string    `json:"avatar,omitempty"`
	Bio        string    `gorm:"type:text" json:"bio,omitempty"`
	Twitter    string    `json:"twitter,omitempty"`
	GitHub     string    `gorm:"column:github" json:"github,omitempty"`
	Website    string    `json:"website,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (User) TableName() string {
	return "users"
}

// Author is the display projection of a user attached to comments and posts.
type Author struct {
	ExternalID string `json:"external_id"`
	Name       string `json:"name"`
	Avatar     string `json:"avatar,omitempty"`
}

// AuthorOf projects u for display. A nil user yields a placeholder keyed by id.
func AuthorOf(id string, u *User) Author {
	if u == nil {
		return Author{ExternalID: id, Name: "Unknown"}
	}
	return Author{ExternalID: u.ExternalID, Name: u.Name, Avatar: u.Avatar}
}
