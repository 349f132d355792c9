package library

import (
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

// reservedChars may not appear in any persisted free-text field.
const reservedChars = FieldSeparator + "\r\n"

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Registration only fails for an empty tag or a nil func.
	_ = v.RegisterValidation("nodelim", func(fl validator.FieldLevel) bool {
		return !strings.ContainsAny(fl.Field().String(), reservedChars)
	})
	// token: a key without reserved characters or whitespace.
	_ = v.RegisterValidation("token", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return !strings.ContainsAny(s, reservedChars) && !strings.ContainsFunc(s, unicode.IsSpace)
	})
	return v
}

type bookInput struct {
	Title  string `validate:"required,nodelim"`
	Author string `validate:"required,nodelim"`
	ISBN   string `validate:"required,token"`
}

type accountInput struct {
	Username string `validate:"required,token"`
	Password string `validate:"required"`
}

type borrowerInput struct {
	Username string `validate:"required,token"`
}

func validateInput(in any) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return errors.Wrapf(ErrInvalidInput, "%s fails %q", strings.ToLower(fe.Field()), fe.Tag())
	}
	return errors.Wrap(ErrInvalidInput, err.Error())
}
