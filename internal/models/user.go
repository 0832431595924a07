package models

type UserRole string

const (
	RoleStudent UserRole = "student"
	RoleTeacher UserRole = "teacher"
	RoleProctor UserRole = "proctor"
	RoleAdmin   UserRole = "admin"
)

// User is the authenticated principal as read from the identity provider's token.
// The engine does not persist users.
type User struct {
	ID       string   `json:"id"`
	FullName string   `json:"full_name"`
	Email    string   `json:"email"`
	Role     UserRole `json:"role"`
}

// CanReviewAttempts reports whether the role may read other students' attempts.
func (r UserRole) CanReviewAttempts() bool {
	return r == RoleTeacher || r == RoleAdmin || r == RoleProctor
}
