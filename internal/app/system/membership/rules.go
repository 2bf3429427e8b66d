package membership

import (
	"strings"

	"github.com/badoux/checkmail"
	"github.com/dalemusser/supportdesk/internal/app/system/normalize"
	"github.com/dalemusser/supportdesk/internal/domain/models"
)

var allowedTLDs = map[string]bool{"com": true, "co": true, "org": true, "net": true}

// ValidateEmail checks syntax and restricts the top-level domain.
func ValidateEmail(email string) error {
	email = normalize.Email(email)
	if err := checkmail.ValidateFormat(email); err != nil {
		return ErrInvalidDomain
	}
	i := strings.LastIndex(email, ".")
	if i < 0 || !allowedTLDs[email[i+1:]] {
		return ErrInvalidDomain
	}
	return nil
}

// CanonicalRole maps the coarse user type and the free-form role selection
// from the member form to a Role.
func CanonicalRole(ut models.UserType, selection string) (models.Role, error) {
	sel := strings.ToLower(selection)
	switch ut {
	case models.UserTypeClient:
		if strings.Contains(sel, "head") {
			return models.RoleClientHead, nil
		}
		return models.RoleClient, nil
	case models.UserTypeEmployee:
		if strings.Contains(sel, "manager") {
			return models.RoleProjectManager, nil
		}
		return models.RoleEmployee, nil
	}
	return "", ErrInvalidUserType
}

const (
	passwordSuffix = "1234"
	passwordPad    = "123456"
	minPassword    = 6
)

// DerivePassword returns the temporary password of a new member: the local
// part of the email, then "1234", padded with the digits of "123456" up to
// six characters.
func DerivePassword(email string) string {
	pw := normalize.LocalPart(normalize.Email(email)) + passwordSuffix
	for i := 0; len(pw) < minPassword; i++ {
		pw += string(passwordPad[i%len(passwordPad)])
	}
	return pw
}
