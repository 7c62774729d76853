package booking

import (
	"strings"
	"unicode"
)

// Requester is who a booking is being made for: a signed-in user or an
// anonymous guest identified by name and phone.
type Requester interface {
	requester()
}

type UserRequester struct {
	UserID uint64
}

type GuestRequester struct {
	Name  string
	Phone string
}

func (UserRequester) requester()  {}
func (GuestRequester) requester() {}

// NormalizePhone strips formatting from a phone number. A leading "+" is
// kept; any other non-digit besides spaces, dots, dashes and parentheses
// makes the number invalid.
func NormalizePhone(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	var b strings.Builder
	for i, r := range raw {
		switch {
		case unicode.IsDigit(r):
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '.' || r == '(' || r == ')':
		default:
			return "", invalid("phone", "contains unexpected characters")
		}
	}
	digits := strings.TrimPrefix(b.String(), "+")
	if len(digits) < 8 || len(digits) > 15 {
		return "", invalid("phone", "must have 8 to 15 digits")
	}
	return b.String(), nil
}

func validateRequester(r Requester) (Requester, error) {
	switch v := r.(type) {
	case UserRequester:
		if v.UserID == 0 {
			return nil, invalid("requester", "user id is required")
		}
		return v, nil
	case GuestRequester:
		name := strings.TrimSpace(v.Name)
		if name == "" {
			return nil, invalid("name", "is required")
		}
		if len(name) > 255 {
			return nil, invalid("name", "is too long")
		}
		phone, err := NormalizePhone(v.Phone)
		if err != nil {
			return nil, err
		}
		return GuestRequester{Name: name, Phone: phone}, nil
	default:
		return nil, invalid("requester", "is required")
	}
}
