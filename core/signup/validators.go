package signup

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/Shyamyemuka/goldenspire-learn/core"
	"github.com/Shyamyemuka/goldenspire-learn/core/profile"
)

var (
	signupRoleTag  = "signuprole"
	signupRoleText = "role must be one of student or teacher"

	expertiseTag  = "expertise"
	expertiseText = "expertise is required for teachers"

	pwdMatchTag  = "pwdmatch"
	pwdMatchText = "passwords do not match"

	// password policy
	pwdMinLen     = 8
	pwdMinLenTag  = "pwdminlen"
	pwdMinLenText = fmt.Sprintf("password must contain at least %d characters", pwdMinLen)

	pwdNoSpaceTag  = "pwdnospace"
	pwdNoSpaceText = "password must not contain whitespace"

	pwdNotAllNumTag  = "pwdnotallnum"
	pwdNotAllNumText = "password cannot be entirely numeric"

	pwdComplexityTag  = "pwdcplx"
	pwdComplexityText = "password must contain at least 1 uppercase character, 1 lowercase character, 1 digit and 1 special character"
	specialRegex      = regexp.MustCompile("[^A-Za-z0-9]")

	pwdMaxSim      = .7
	pwdAttrSimTag  = "pwdtoosim"
	pwdAttrSimText = "password cannot be similar to your name or email"
)

// InitValidators registers the signup tags and translations on validate.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(signupRoleTag, signupRoleValidation)
	core.RegisterCustomTranslation(validate, translator, signupRoleTag, signupRoleText)

	validate.RegisterStructValidation(signupStructValidation, NewSignup{})
	core.RegisterCustomTranslation(validate, translator, expertiseTag, expertiseText)
	core.RegisterCustomTranslation(validate, translator, pwdMatchTag, pwdMatchText)
	core.RegisterCustomTranslation(validate, translator, pwdMinLenTag, pwdMinLenText)
	core.RegisterCustomTranslation(validate, translator, pwdNoSpaceTag, pwdNoSpaceText)
	core.RegisterCustomTranslation(validate, translator, pwdNotAllNumTag, pwdNotAllNumText)
	core.RegisterCustomTranslation(validate, translator, pwdComplexityTag, pwdComplexityText)
	core.RegisterCustomTranslation(validate, translator, pwdAttrSimTag, pwdAttrSimText)
}

// Custom Validators

func signupRoleValidation(fl validator.FieldLevel) bool {
	return profile.Role(fl.Field().String()).In(profile.SignupRoles...)
}

func signupStructValidation(sl validator.StructLevel) {
	ns, ok := sl.Current().Interface().(NewSignup)
	if !ok {
		return
	}
	if profile.Role(ns.Role) == profile.RoleTeacher && strings.TrimSpace(ns.Expertise) == "" {
		sl.ReportError(ns.Expertise, "expertise", "Expertise", expertiseTag, "")
	}
	if ns.PasswordConfirm != ns.Password {
		sl.ReportError(ns.PasswordConfirm, "password_confirm", "PasswordConfirm", pwdMatchTag, "")
	}
	validatePassword(ns.Password, ns.FullName, ns.Email, sl)
}

// validatePassword applies the password policy:
// - minLen: 8
// - no whitespace
// - no all numeric
// - complexity: 1 upper, 1 lower, 1 digit, 1 special
// - no name or email similarity
func validatePassword(pwd, name, email string, sl validator.StructLevel) {
	reportErr := func(tag string) {
		sl.ReportError(pwd, "password", "Password", tag, "")
	}

	var (
		digitCount         int
		hasUpper, hasLower bool
	)

	runes := []rune(pwd)
	if len(runes) < pwdMinLen {
		reportErr(pwdMinLenTag)
		return
	}
	for _, char := range runes {
		if unicode.IsSpace(char) {
			reportErr(pwdNoSpaceTag)
			return
		}
		if unicode.IsDigit(char) {
			digitCount++
		}
		if unicode.IsUpper(char) {
			hasUpper = true
		}
		if unicode.IsLower(char) {
			hasLower = true
		}
	}

	if digitCount == len(runes) {
		reportErr(pwdNotAllNumTag)
		return
	}

	if !(hasUpper && hasLower && digitCount > 0 && specialRegex.MatchString(pwd)) {
		reportErr(pwdComplexityTag)
		return
	}

	getRatio := func(pass, attr string) float64 {
		if attr == "" {
			return 0
		}
		return difflib.NewMatcher(strings.Split(strings.ToLower(pass), ""), strings.Split(strings.ToLower(attr), "")).QuickRatio()
	}
	if getRatio(pwd, name) >= pwdMaxSim || getRatio(pwd, email) >= pwdMaxSim {
		reportErr(pwdAttrSimTag)
	}
}
