package iam

import (
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/markgwharry/modiniapps/internal/auth"
)

// Input validation messages. They are shown to users verbatim.
const (
	MsgEmailRequired         = "Email is required"
	MsgCredentialsRequired   = "Email and password are required"
	MsgPasswordsDoNotMatch   = "Passwords do not match"
	MsgFullNameRequired      = "Full name is required"
	MsgFullNameTooShort      = "Full name must be at least 2 characters"
	MsgJobTitleTooLong       = "Job title must be 120 characters or fewer"
	MsgPhoneInvalid          = "Phone number must contain only digits and basic punctuation"
	MsgCurrentPasswordNeeded = "Current password is required"
	MsgNewPasswordNeeded     = "New password is required"
	MsgNewPasswordTooShort   = "New password must be at least 8 characters long"
	MsgNewPasswordTooLong    = "New password must be 72 bytes or fewer"
	MsgNewPasswordMismatch   = "New password and confirmation do not match"
)

const maxJobTitleLength = 120

var phonePattern = regexp.MustCompile(`^\+?[0-9 ()-]{7,20}$`)

// Profile holds trimmed profile fields.
type Profile struct {
	FullName string
	JobTitle string
	Phone    string
}

// ValidateProfile trims the fields and checks them. All problems are
// reported together in a *ValidationError.
func ValidateProfile(fullName, jobTitle, phone string) (Profile, error) {
	p := Profile{
		FullName: strings.TrimSpace(fullName),
		JobTitle: strings.TrimSpace(jobTitle),
		Phone:    strings.TrimSpace(phone),
	}

	var problems []string
	switch {
	case p.FullName == "":
		problems = append(problems, MsgFullNameRequired)
	case utf8.RuneCountInString(p.FullName) < 2:
		problems = append(problems, MsgFullNameTooShort)
	}
	if utf8.RuneCountInString(p.JobTitle) > maxJobTitleLength {
		problems = append(problems, MsgJobTitleTooLong)
	}
	if p.Phone != "" && !phonePattern.MatchString(p.Phone) {
		problems = append(problems, MsgPhoneInvalid)
	}

	if len(problems) > 0 {
		return p, &ValidationError{Problems: problems}
	}
	return p, nil
}

// ValidatePasswordChange checks the password change form.
func ValidatePasswordChange(current, next, confirm string) error {
	var problems []string
	if current == "" {
		problems = append(problems, MsgCurrentPasswordNeeded)
	}
	switch {
	case next == "":
		problems = append(problems, MsgNewPasswordNeeded)
	default:
		if err := checkNewPassword(next, MsgNewPasswordTooShort, MsgNewPasswordTooLong); err != nil {
			problems = append(problems, err.Error())
		}
	}
	if next != confirm {
		problems = append(problems, MsgNewPasswordMismatch)
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// ValidateRegistration checks the registration form.
func ValidateRegistration(email, password, confirm string) error {
	if strings.TrimSpace(email) == "" || password == "" {
		return &ValidationError{Problems: []string{MsgCredentialsRequired}}
	}
	if password != confirm {
		return &ValidationError{Problems: []string{MsgPasswordsDoNotMatch}}
	}
	if len(password) > auth.MaxPasswordBytes {
		return &ValidationError{Problems: []string{MsgPasswordTooLong}}
	}
	return nil
}

// checkNewPassword applies the auth length policy, reporting violations
// as *WeakPasswordError with the given messages.
func checkNewPassword(plain, tooShort, tooLong string) error {
	err := auth.CheckPasswordLength(plain)
	switch {
	case errors.Is(err, auth.ErrPasswordTooShort):
		return &WeakPasswordError{Message: tooShort}
	case errors.Is(err, auth.ErrPasswordTooLong):
		return &WeakPasswordError{Message: tooLong}
	}
	return nil
}
