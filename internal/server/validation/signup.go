package validation

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Signup validation messages, rendered to the user verbatim.
const (
	MsgInvalidFirstName = "Invalid first name."
	MsgInvalidLastName  = "Invalid last name."
	MsgInvalidEmail     = "Invalid email address."
	MsgInvalidUsername  = "Invalid username."
	MsgPasswordLength   = "Password must be between 6 and 255 characters."
	MsgTermsRequired    = "You must agree to the Terms & Conditions."
	MsgEmailExists      = "This email exists!"
	MsgUsernameExists   = "This username exists!"
)

const (
	maxNameLen     = 30
	maxEmailLen    = 100
	maxUsernameLen = 30
	minPasswordLen = 6
	maxPasswordLen = 255
)

var (
	emailRe    = regexp.MustCompile(`^[a-zA-Z0-9._-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,6}$`)
	usernameRe = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
)

// SignupForm is a signup submission as received from the client.
type SignupForm struct {
	FirstName string   `form:"first_name" json:"first_name"`
	LastName  string   `form:"last_name" json:"last_name"`
	Email     string   `form:"email" json:"email"`
	Username  string   `form:"username" json:"username"`
	Password  string   `form:"password" json:"password"`
	Terms     Checkbox `form:"terms" json:"terms"`
}

// Checkbox holds a checkbox value. JSON bodies may send it as a string,
// a boolean or a number; strings are sanitized as they are decoded.
type Checkbox string

func (c *Checkbox) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch t := SanitizeValue(v).(type) {
	case nil:
		*c = ""
	case string:
		*c = Checkbox(t)
	case bool:
		*c = Checkbox(strconv.FormatBool(t))
	case float64:
		*c = Checkbox(strconv.FormatFloat(t, 'f', -1, 64))
	default:
		return fmt.Errorf("checkbox: unexpected JSON value %s", b)
	}
	return nil
}

// Normalize returns a copy with names sanitized and email/username
// lower-cased, trimmed and sanitized. Password and terms are untouched.
func (f SignupForm) Normalize() SignupForm {
	f.FirstName = Sanitize(f.FirstName)
	f.LastName = Sanitize(f.LastName)
	f.Email = NormalizeIdentifier(f.Email)
	f.Username = NormalizeIdentifier(f.Username)
	return f
}

// TermsAccepted reports whether the terms checkbox was ticked.
func (f SignupForm) TermsAccepted() bool {
	switch strings.ToLower(strings.TrimSpace(string(f.Terms))) {
	case "on", "true", "1":
		return true
	}
	return false
}

// ErrorList is an ordered list of user-facing validation messages.
type ErrorList []string

func (l ErrorList) Empty() bool { return len(l) == 0 }

func (l ErrorList) Error() string { return strings.Join(l, " ") }

func (l *ErrorList) Add(msg string) { *l = append(*l, msg) }

// ValidateSignup runs every structural check on an already normalized form
// and returns all failures in a fixed order.
func ValidateSignup(f SignupForm) ErrorList {
	var errs ErrorList

	if n := utf8.RuneCountInString(f.FirstName); n == 0 || n > maxNameLen {
		errs.Add(MsgInvalidFirstName)
	}
	if n := utf8.RuneCountInString(f.LastName); n == 0 || n > maxNameLen {
		errs.Add(MsgInvalidLastName)
	}
	if n := utf8.RuneCountInString(f.Email); n == 0 || n > maxEmailLen || !emailRe.MatchString(f.Email) {
		errs.Add(MsgInvalidEmail)
	}
	if n := utf8.RuneCountInString(f.Username); n == 0 || n > maxUsernameLen || !usernameRe.MatchString(f.Username) {
		errs.Add(MsgInvalidUsername)
	}
	if n := utf8.RuneCountInString(f.Password); n < minPasswordLen || n > maxPasswordLen {
		errs.Add(MsgPasswordLength)
	}
	if !f.TermsAccepted() {
		errs.Add(MsgTermsRequired)
	}

	return errs
}
