package domain

import "time"

type User struct {
	UserID          string     `json:"id" dynamodbav:"user_id"`
	FirstName       string     `json:"first_name" dynamodbav:"first_name"`
	LastName        string     `json:"last_name" dynamodbav:"last_name"`
	Email           string     `json:"email" dynamodbav:"email"`
	Phone           *string    `json:"phone" dynamodbav:"phone"`
	PasswordHash    string     `json:"-" dynamodbav:"password_hash"`
	Role            string     `json:"role" dynamodbav:"role"`
	AvatarKey       string     `json:"-" dynamodbav:"avatar_key"`
	EmailVerifiedAt *time.Time `json:"email_verified_at" dynamodbav:"email_verified_at"`
	PhoneVerifiedAt *time.Time `json:"phone_verified_at" dynamodbav:"phone_verified_at"`
	Enable          bool       `json:"enable" dynamodbav:"enable"`
	DeletedAt       *time.Time `json:"deleted_at,omitempty" dynamodbav:"deleted_at"`
	CreatedAt       time.Time  `json:"created" dynamodbav:"created_at"`
	UpdatedAt       time.Time  `json:"updated" dynamodbav:"updated_at"`
}

// EmailVerified reports whether the account's email channel has been verified.
// A stored timestamp must be a genuine temporal value; a zero time that crept
// into storage counts as unverified.
func (u *User) EmailVerified() bool {
	return u.EmailVerifiedAt != nil && !u.EmailVerifiedAt.IsZero() && u.EmailVerifiedAt.Unix() > 0
}

// PhoneVerified reports whether the account's phone channel has been verified.
func (u *User) PhoneVerified() bool {
	return u.PhoneVerifiedAt != nil && !u.PhoneVerifiedAt.IsZero() && u.PhoneVerifiedAt.Unix() > 0
}

type UpdateUserRequest struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Email     *string `json:"email" validate:"omitempty,email"`
	Phone     *string `json:"phone"`
	Role      *string `json:"role"`
	Enable    *bool   `json:"enable"`
}
