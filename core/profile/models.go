package profile

import (
	"context"
	"errors"
	"time"

	"github.com/Shyamyemuka/goldenspire-learn/core"
)

// Role is the application role recorded on a Profile.
type Role string

// Roles
const (
	RoleStudent     Role = "student"
	RoleTeacher     Role = "teacher"
	RoleAdmin       Role = "admin"
	RoleMasterAdmin Role = "master_admin"
)

var (
	StaffRoles  = []Role{RoleTeacher, RoleAdmin, RoleMasterAdmin}
	AdminRoles  = []Role{RoleAdmin, RoleMasterAdmin}
	SignupRoles = []Role{RoleStudent, RoleTeacher}
	AllRoles    = []Role{RoleStudent, RoleTeacher, RoleAdmin, RoleMasterAdmin}

	rolePriorities = map[Role]int{
		RoleMasterAdmin: 30,
		RoleAdmin:       21,
		RoleTeacher:     11,
		RoleStudent:     1,
	}

	ErrNotFound = errors.New("profile not found")
)

func (r Role) Valid() bool {
	_, ok := rolePriorities[r]
	return ok
}

func (r Role) In(roles ...Role) bool {
	for _, role := range roles {
		if r == role {
			return true
		}
	}
	return false
}

func (r Role) IsStaff() bool   { return r.In(StaffRoles...) }
func (r Role) IsAdmin() bool   { return r.In(AdminRoles...) }
func (r Role) IsStudent() bool { return r == RoleStudent }

// Priority orders roles; a higher priority may act on lower ones.
func (r Role) Priority() int { return rolePriorities[r] }

type Profile struct {
	ID         string    `json:"id"`
	FullName   string    `json:"full_name"`
	Email      string    `json:"email"`
	Role       Role      `json:"role"`
	IsApproved bool      `json:"is_approved"`
	Expertise  string    `json:"expertise,omitempty"`
	CreatedAt  time.Time `json:"created_at"` // UTC
	UpdatedAt  time.Time `json:"updated_at"` // UTC
}

// Person returns the log identity of the profile.
func (p Profile) Person() core.Person {
	return core.Person{ID: p.ID, Name: p.FullName, Email: p.Email, Role: string(p.Role)}
}

type Repository interface {
	CreateProfile(ctx context.Context, p Profile, exec ...core.DBExecutor) (Profile, error)
	// GetProfile returns ErrNotFound when no profile has that id.
	GetProfile(ctx context.Context, id string, exec ...core.DBExecutor) (Profile, error)
	// SetApproved returns ErrNotFound when no row was updated.
	SetApproved(ctx context.Context, id string, approved bool, exec ...core.DBExecutor) error
}
