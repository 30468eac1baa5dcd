package models

import (
	"time"

	"github.com/fatflowers/letterdesk/pkg/types"
)

// Profile carries the role and super-user flag of an identity. The identity
// itself lives with the auth provider; ID is its subject.
type Profile struct {
	ID          string     `gorm:"column:id;type:varchar(64);primary_key" json:"id"`
	Email       string     `gorm:"column:email;type:varchar(255);index" json:"email"`
	FullName    string     `gorm:"column:full_name;type:varchar(255)" json:"full_name"`
	Role        types.Role `gorm:"column:role;type:varchar(32);not null;default:subscriber" json:"role"`
	IsSuperUser bool       `gorm:"column:is_super_user;not null;default:false;index" json:"is_super_user"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (Profile) TableName() string {
	return "profile"
}

func (p *Profile) Actor() *types.Actor {
	if p == nil {
		return nil
	}
	return &types.Actor{UserID: p.ID, Role: p.Role, IsSuperUser: p.IsSuperUser}
}
