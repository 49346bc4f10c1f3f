package core

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/pkg/errors"
)

var (
	Validate   *validator.Validate
	Translator ut.Translator

	// custom validation tags & texts
	notBlankTag  = "notblank"
	notBlankText = "this field cannot be blank"

	emailTag   = "emailaddr"
	emailText  = "invalid email format"
	emailRegex = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)

	nameTag   = "personname"
	nameText  = "only letters, spaces, hyphens, apostrophes and periods are allowed"
	nameRegex = regexp.MustCompile(`^\p{L}+(?:(?:[ '\-]|\. ?)\p{L}+)*\.?$`)

	idTag   = "recordid"
	idText  = "only letters, digits, hyphens and underscores are allowed"
	idRegex = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

	requiredTag  = "required"
	requiredText = "this field is required"

	errInvalidInput = errors.New("invalid input")
)

// Instantiate the validator for use.
func init() {
	Validate = validator.New()

	// Register the english error messages for validation errors.
	_en := en.New()
	uni := ut.New(_en, _en)
	Translator, _ = uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(Validate, Translator)

	// Use JSON tag names for errors instead of Go struct names.
	Validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// register custom validators
	_ = Validate.RegisterValidation(notBlankTag, stringValidation(IsNonEmpty))
	_ = Validate.RegisterValidation(emailTag, stringValidation(IsValidEmail))
	_ = Validate.RegisterValidation(nameTag, stringValidation(IsValidName))
	_ = Validate.RegisterValidation(idTag, stringValidation(IsValidID))

	RegisterCustomTranslation(notBlankTag, notBlankText)
	RegisterCustomTranslation(emailTag, emailText)
	RegisterCustomTranslation(nameTag, nameText)
	RegisterCustomTranslation(idTag, idText)
	RegisterCustomTranslation(requiredTag, requiredText, true)
}

// RegisterCustomTranslation registers a custom translation for the specified validation tag.
func RegisterCustomTranslation(tag, text string, override ...bool) {
	var ovrd bool
	if len(override) > 0 {
		ovrd = override[0]
	}
	_ = Validate.RegisterTranslation(
		tag, Translator,
		func(t ut.Translator) error { return t.Add(tag, text, ovrd) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

// ValidateStruct runs the struct validations on s and
// converts failures into a *ValidationError with one FieldError per field.
func ValidateStruct(s interface{}) error {
	err := Validate.Struct(s)
	if err == nil {
		return nil
	}
	vErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	flds := make([]FieldError, 0, len(vErrs))
	for _, vErr := range vErrs {
		flds = append(flds, FieldError{Field: vErr.Field(), Error: vErr.Translate(Translator)})
	}
	return NewValidationError(errInvalidInput, flds...)
}

func stringValidation(pred func(string) bool) validator.Func {
	return func(fl validator.FieldLevel) bool {
		if s, ok := fl.Field().Interface().(string); ok {
			return pred(s)
		}
		return false
	}
}

// Predicates

// IsValidEmail reports whether s looks like an email address.
func IsValidEmail(s string) bool {
	return emailRegex.MatchString(s)
}

// IsNonEmpty reports whether s holds anything but whitespace.
func IsNonEmpty(s string) bool {
	return strings.TrimSpace(s) != ""
}

// IsValidName accepts letters, with one separator (space, hyphen, apostrophe, period or period and space)
// between words.
func IsValidName(s string) bool {
	return nameRegex.MatchString(s)
}

func IsValidID(s string) bool {
	return idRegex.MatchString(s)
}

// IsUniqueID reports whether id is absent from ids. Any id in exclude is ignored (used on edit).
func IsUniqueID(id string, ids []string, exclude ...string) bool {
	id = CleanString(id)
outer:
	for _, other := range ids {
		other = CleanString(other)
		for _, ex := range exclude {
			if other == CleanString(ex) {
				continue outer
			}
		}
		if other == id {
			return false
		}
	}
	return true
}
