package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Group is an oshi group owned by a single user. Name is unique per owner.
type Group struct {
	ID          uuid.UUID `json:"id" gorm:"type:char(36);primaryKey"`
	UserID      uuid.UUID `json:"userId" gorm:"type:char(36);not null;uniqueIndex:idx_oshi_groups_user_name,priority:1"`
	Name        string    `json:"groupName" gorm:"size:100;not null;uniqueIndex:idx_oshi_groups_user_name,priority:2"`
	Company     string    `json:"company" gorm:"size:100;not null;default:'';index"`
	Description *string   `json:"description,omitempty" gorm:"size:1000"`
	Version     int64     `json:"-" gorm:"not null;default:1"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`

	// Relations
	User *User `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

// TableName overrides the default table name.
func (Group) TableName() string {
	return "oshi_groups"
}

// BeforeCreate sets UUID before creating the record.
func (g *Group) BeforeCreate(tx *gorm.DB) error {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	return nil
}
