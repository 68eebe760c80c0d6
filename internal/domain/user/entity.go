// internal/domain/user/entity.go
package user

import (
	"strings"
	"time"

	"github.com/your-org/backoffice-backend/internal/pkg/actor"
	"gorm.io/gorm"
)

// Organization is a tenant. Every domain row carries its id and every query
// filters by it.
type Organization struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"not null;size:255" json:"name"`
	IsActive  bool      `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// User represents the user entity
type User struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	OrganizationID uint       `gorm:"not null;index" json:"organization_id"`
	Email          string     `gorm:"uniqueIndex;not null;size:255" json:"email"`
	Password       string     `gorm:"not null;size:255" json:"-"` // Don't return in JSON
	FirstName      string     `gorm:"size:100" json:"first_name"`
	LastName       string     `gorm:"size:100" json:"last_name"`
	Role           actor.Role `gorm:"not null;size:20;default:'staff'" json:"role"`
	IsActive       bool       `gorm:"default:true" json:"is_active"`
	LastLoginAt    *time.Time `json:"last_login_at"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// TableName overrides
func (Organization) TableName() string { return "organizations" }
func (User) TableName() string         { return "users" }

// BeforeCreate hook to handle business logic before user creation
func (u *User) BeforeCreate(tx *gorm.DB) error {
	// Email should be lowercase
	u.Email = strings.ToLower(u.Email)
	return nil
}

// GetFullName returns the user's full name
func (u *User) GetFullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// Actor builds the explicit caller identity passed into core services.
func (u *User) Actor(requestID string) actor.Actor {
	return actor.Actor{
		OrganizationID: u.OrganizationID,
		UserID:         u.ID,
		Role:           u.Role,
		RequestID:      requestID,
	}
}
