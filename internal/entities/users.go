package entities

import "time"

type UserRole string

const (
	UserRoleAdmin     UserRole = "admin"
	UserRoleLibrarian UserRole = "librarian"
	UserRoleMember    UserRole = "member"
)

func (r UserRole) Valid() bool {
	switch r {
	case UserRoleAdmin, UserRoleLibrarian, UserRoleMember:
		return true
	}
	return false
}

// Permission is a named capability that can be granted to a user.
type Permission string

const (
	// PermissionCanMarkReturned gates staff operations: renewals, the
	// all-borrowed listing and the author/book lifecycle.
	PermissionCanMarkReturned Permission = "catalog.can_mark_returned"
)

var permissionNames = map[Permission]string{
	PermissionCanMarkReturned: "Set book as returned",
}

func (p Permission) Valid() bool {
	_, ok := permissionNames[p]
	return ok
}

// Name is the human readable label of the permission.
func (p Permission) Name() string {
	return permissionNames[p]
}

type User struct {
	ID               uint             `gorm:"primaryKey" json:"id"`
	Username         string           `gorm:"uniqueIndex;size:100;not null" json:"username"`
	Email            string           `gorm:"uniqueIndex;size:255;not null" json:"email"`
	PasswordHash     string           `gorm:"size:255" json:"-"`
	Role             UserRole         `gorm:"size:20;not null;default:member" json:"role"`
	Permissions      []UserPermission `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"permissions,omitempty"`
	FailedLoginCount int              `gorm:"not null;default:0" json:"-"`
	LockedUntil      *time.Time       `json:"-"`
	LastLoginAt      *time.Time       `json:"last_login_at,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// HasPermission reports whether the user holds p. Admins hold every permission.
// Permissions must be preloaded for non-admin users.
func (u *User) HasPermission(p Permission) bool {
	if u == nil {
		return false
	}
	if u.Role == UserRoleAdmin {
		return true
	}
	for _, up := range u.Permissions {
		if up.Codename == p {
			return true
		}
	}
	return false
}

type UserPermission struct {
	ID        uint       `gorm:"primaryKey" json:"-"`
	UserID    uint       `gorm:"uniqueIndex:idx_user_permission;not null" json:"-"`
	Codename  Permission `gorm:"uniqueIndex:idx_user_permission;size:100;not null" json:"codename"`
	CreatedAt time.Time  `json:"-"`
}

func (UserPermission) TableName() string {
	return "user_permissions"
}
