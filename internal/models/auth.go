package models

import (
	"strconv"

	"github.com/golang-jwt/jwt/v5"
)

// UserRole is the role claim carried by access tokens.
type UserRole string

const (
	RoleAdmin   UserRole = "ADMIN"
	RoleTeacher UserRole = "TEACHER"
	RoleStudent UserRole = "STUDENT"
)

// JWTClaims is the access token payload issued by the account service.
// UserID is the teacher id for teachers and the student id for students.
type JWTClaims struct {
	UserID int      `json:"user_id"`
	Role   UserRole `json:"role"`
	jwt.RegisteredClaims
}

// IsStudent reports whether the token belongs to a student.
func (c *JWTClaims) IsStudent() bool {
	return c != nil && c.Role == RoleStudent
}

// Owns reports whether the claims identify the given teacher.
func (c *JWTClaims) Owns(teacherID string) bool {
	return c != nil && c.Role == RoleTeacher && strconv.Itoa(c.UserID) == teacherID
}
