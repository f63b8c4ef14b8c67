package user

import (
	"fmt"
	"unicode"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/kazi/core"
)

var (
	// password policy
	pwdMinLen     = 8
	pwdMinLenTag  = "pwdminlen"
	pwdMinLenText = fmt.Sprintf("password must contain at least %d characters", pwdMinLen)

	pwdNoSpaceTag  = "pwdnospace"
	pwdNoSpaceText = "password must not contain whitespace"

	pwdNotAllNumTag  = "pwdnotallnum"
	pwdNotAllNumText = "password cannot be entirely numeric"

	pwdComplexityTag  = "pwdcplx"
	pwdComplexityText = "password must contain at least 1 uppercase character, 1 lowercase character and 1 digit"
)

// InitValidators registers this package's validators; call once at startup.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	validate.RegisterStructValidation(instructorStructValidation, NewInstructor{})
	validate.RegisterStructValidation(changePasswordStructValidation, ChangePassword{})

	core.RegisterCustomTranslation(validate, translator, pwdMinLenTag, pwdMinLenText)
	core.RegisterCustomTranslation(validate, translator, pwdNoSpaceTag, pwdNoSpaceText)
	core.RegisterCustomTranslation(validate, translator, pwdNotAllNumTag, pwdNotAllNumText)
	core.RegisterCustomTranslation(validate, translator, pwdComplexityTag, pwdComplexityText)
}

// instructorStructValidation applies the password policy when provisioning.
func instructorStructValidation(sl validator.StructLevel) {
	if ni, ok := sl.Current().Interface().(NewInstructor); ok {
		validatePassword(ni.Password, "password", "Password", sl)
	}
}

// changePasswordStructValidation applies the password policy when a user
// rotates their own password.
func changePasswordStructValidation(sl validator.StructLevel) {
	if cp, ok := sl.Current().Interface().(ChangePassword); ok {
		validatePassword(cp.NewPassword, "new_password", "NewPassword", sl)
	}
}

// validatePassword applies the password policy:
// - minLen: 8
// - no whitespace
// - not all numeric
// - complexity: 1 upper, 1 lower, 1 digit
func validatePassword(pwd, field, structField string, sl validator.StructLevel) {
	reportErr := func(tag string) {
		sl.ReportError(pwd, field, structField, tag, "")
	}

	pwdLen := len(pwd)
	if pwdLen < pwdMinLen {
		reportErr(pwdMinLenTag)
		return
	}

	var (
		digitCount         int
		hasUpper, hasLower bool
	)
	for _, char := range []rune(pwd) {
		if unicode.IsSpace(char) {
			reportErr(pwdNoSpaceTag)
			return
		}
		if unicode.IsDigit(char) {
			digitCount++
		}
		if !hasUpper && unicode.IsUpper(char) {
			hasUpper = true
		}
		if !hasLower && unicode.IsLower(char) {
			hasLower = true
		}
	}

	if digitCount == pwdLen {
		reportErr(pwdNotAllNumTag)
		return
	}

	if !(hasUpper && hasLower && digitCount > 0) {
		reportErr(pwdComplexityTag)
	}
}
