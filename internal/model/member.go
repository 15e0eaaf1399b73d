package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Gender is the binary category flag stored for a member.
type Gender uint8

const (
	GenderMale   Gender = 0
	GenderFemale Gender = 1
)

// Valid reports whether g is one of the two known values.
func (g Gender) Valid() bool {
	return g == GenderMale || g == GenderFemale
}

// Member belongs to one Group of the same owner. Name is unique per (owner, group).
type Member struct {
	ID        uuid.UUID `json:"id" gorm:"type:char(36);primaryKey"`
	UserID    uuid.UUID `json:"userId" gorm:"type:char(36);not null;uniqueIndex:idx_oshi_members_user_group_name,priority:1"`
	GroupID   uuid.UUID `json:"groupId" gorm:"type:char(36);not null;uniqueIndex:idx_oshi_members_user_group_name,priority:2"`
	Name      string    `json:"memberName" gorm:"size:100;not null;uniqueIndex:idx_oshi_members_user_group_name,priority:3"`
	NameKana  string    `json:"memberNameKana" gorm:"size:100;not null;default:''"`
	Gender    Gender    `json:"gender" gorm:"not null;default:0"`
	BirthDay  time.Time `json:"birthDay" gorm:"type:date"`
	Version   int64     `json:"-" gorm:"not null;default:1"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// Relations
	User  *User  `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Group *Group `json:"-" gorm:"foreignKey:GroupID;constraint:OnDelete:CASCADE"`
}

// TableName overrides the default table name.
func (Member) TableName() string {
	return "oshi_members"
}

// BeforeCreate sets UUID before creating the record.
func (m *Member) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
