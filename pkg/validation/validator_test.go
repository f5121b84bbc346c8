package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type signUp struct {
	Email                string `json:"email" validate:"required,email_format"`
	Password             string `json:"password" validate:"required,min=6"`
	PasswordConfirmation string `json:"password_confirmation" validate:"omitempty,eqfield=Password"`
	ParkingSpaces        *int   `json:"parking_spaces" validate:"omitempty,gte=0"`
}

func TestMessages(t *testing.T) {
	negative := -2
	msgs := Struct(signUp{
		Email:                "nope",
		Password:             "abc",
		PasswordConfirmation: "abd",
		ParkingSpaces:        &negative,
	})

	assert.ElementsMatch(t, []string{
		"Email is invalid",
		"Password is too short (minimum is 6 characters)",
		"Password confirmation doesn't match Password",
		"Parking spaces must be greater than or equal to 0",
	}, msgs)
}

func TestMessagesValid(t *testing.T) {
	assert.Empty(t, Struct(signUp{Email: "agent@properlia.test", Password: "secret1"}))
}

func TestValidateImplementsEcho(t *testing.T) {
	v := New()
	err := v.Validate(signUp{})
	var errs Errors
	assert.ErrorAs(t, err, &errs)
	assert.Contains(t, errs, "Email can't be blank")
	assert.NoError(t, v.Validate(signUp{Email: "a@b.co", Password: "secret1"}))
}

func TestIsEmail(t *testing.T) {
	for in, want := range map[string]bool{
		"agent@properlia.test":   true,
		"first.last+tag@mail.mx": true,
		"no-at-sign":             false,
		"two@@signs.com":         false,
		"trailing@dot.":          false,
		"":                       false,
	} {
		assert.Equal(t, want, IsEmail(in), in)
	}
}

func TestHumanize(t *testing.T) {
	assert.Equal(t, "Property type", Humanize("property_type_id"))
	assert.Equal(t, "Email to", Humanize("email_to"))
	assert.Equal(t, "", Humanize(""))
}
