package models

import "time"

type Tag struct {
	ID        int       `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:128;uniqueIndex;not null" json:"name"`
	AuthorID  int       `gorm:"not null" json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

func (Tag) TableName() string { return "tags" }
