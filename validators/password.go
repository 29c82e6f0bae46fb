package validators

import (
	"errors"
	"unicode/utf8"
)

var (
	ErrPasswordEmpty    = errors.New("no password provided")
	ErrPasswordTooShort = errors.New("password must be at least 8 characters long")
	ErrPasswordTooLong  = errors.New("password is too long")
)

func PasswordValidator(p string) error {
	if p == "" {
		return ErrPasswordEmpty
	}

	if utf8.RuneCountInString(p) < 8 {
		return ErrPasswordTooShort
	}

	if len(p) > 256 {
		return ErrPasswordTooLong
	}

	return nil
}
