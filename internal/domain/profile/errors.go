package profile

import "errors"

var (
	ErrUsernameRequired = errors.New("username is required")
	ErrUsernameTooLong  = errors.New("username must not exceed 64 characters")
	ErrPasswordRequired = errors.New("password is required")
	ErrPasswordTooLong  = errors.New("password must not exceed 72 bytes")
	ErrInvalidAge       = errors.New("age must be greater than 0")
	ErrInvalidSex       = errors.New("sex must be M or F")
	ErrInvalidWeight    = errors.New("weight must be greater than 0")
	ErrInvalidHeight    = errors.New("height must be greater than 0")
)
