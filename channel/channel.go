package channel

import (
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/nyaruka/phonenumbers"
)

// ErrInvalid is returned when a raw identifier is neither a well-formed
// email address nor a dialable mobile number.
var ErrInvalid = errors.New("invalid channel")

// Kind tells email and mobile channels apart.
type Kind int

const (
	KindEmail Kind = iota + 1
	KindMobile
)

func (k Kind) String() string {
	switch k {
	case KindEmail:
		return "email"
	case KindMobile:
		return "mobile"
	default:
		return "unknown"
	}
}

// Channel is a normalized delivery address: a lowercased email or an
// E.164 mobile number.
type Channel struct {
	Kind  Kind
	Value string
}

func (c Channel) String() string {
	return c.Value
}

// IsEmail reports whether c is an email channel.
func (c Channel) IsEmail() bool {
	return c.Kind == KindEmail
}

// Normalizer turns user input into canonical channels. Numbers without a
// leading + are parsed in DefaultRegion.
type Normalizer struct {
	DefaultRegion string
}

// New returns a Normalizer; an empty region selects "IN".
func New(defaultRegion string) *Normalizer {
	if defaultRegion == "" {
		defaultRegion = "IN"
	}
	return &Normalizer{DefaultRegion: strings.ToUpper(defaultRegion)}
}

// Normalize classifies raw by the presence of "@" and canonicalizes it.
func (n *Normalizer) Normalize(raw string) (Channel, error) {
	raw = strings.TrimSpace(raw)
	if strings.Contains(raw, "@") {
		email, err := n.Email(raw)
		if err != nil {
			return Channel{}, err
		}
		return Channel{Kind: KindEmail, Value: email}, nil
	}

	mobile, err := n.Mobile(raw)
	if err != nil {
		return Channel{}, err
	}
	return Channel{Kind: KindMobile, Value: mobile}, nil
}

// Email trims and lowercases raw and checks its format.
func (n *Normalizer) Email(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if err := validation.Validate(email, validation.Required, is.EmailFormat); err != nil {
		return "", ErrInvalid
	}
	return email, nil
}

// Mobile parses raw and formats it as E.164.
func (n *Normalizer) Mobile(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrInvalid
	}
	num, err := phonenumbers.Parse(raw, n.DefaultRegion)
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return "", ErrInvalid
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}
