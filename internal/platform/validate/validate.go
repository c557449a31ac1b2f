// Package validate wraps a singleton go-playground validator with english
// messages and maps failures to project errors
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	perr "cverelease/internal/platform/errors"
	"cverelease/internal/platform/logger"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

// FieldLevel aliases validator.FieldLevel
type FieldLevel = validator.FieldLevel

// Svc holds a singleton validator and translator
type Svc struct {
	Validator  *validator.Validate
	Translator ut.Translator
}

var (
	vOnce sync.Once
	vSvc  *Svc
)

// Get returns the validator singleton, initializing on first use.
// Field names in messages come from the `flag` tag so errors read like the CLI:
// `flag:"xz-preset"` reads as --xz-preset, an upper-case tag such as
// `flag:"PATH"` names a positional argument and is used as is
func Get() *Svc {
	vOnce.Do(func() {
		enLoc := en.New()
		uni := ut.New(enLoc, enLoc)
		trans, _ := uni.GetTranslator("en")

		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			tag := fld.Tag.Get("flag")
			switch {
			case tag == "-" || tag == "":
				return fld.Name
			case tag == strings.ToUpper(tag):
				return tag
			}
			return "--" + tag
		})

		_ = en_translations.RegisterDefaultTranslations(v, trans)
		registerShort(v, trans, "min", "{0} must be at least {1}")
		registerShort(v, trans, "max", "{0} must be at most {1}")

		vSvc = &Svc{Validator: v, Translator: trans}
	})
	return vSvc
}

// RegisterValidation registers a custom tag together with its message.
// msg may reference the field name as {0} and the offending value as {1},
// in either order
func RegisterValidation(tag string, fn validator.Func, msg string) error {
	s := Get()
	if err := s.Validator.RegisterValidation(tag, fn); err != nil {
		return err
	}
	// ut substitutes placeholders positionally and needs them in ascending
	// order, so the value is filled in here instead
	text := strings.ReplaceAll(msg, "{1}", valueMarker)
	return s.Validator.RegisterTranslation(tag, s.Translator,
		func(t ut.Translator) error { return t.Add(tag, text, true) },
		func(t ut.Translator, fe validator.FieldError) string {
			out, err := t.T(tag, fe.Field())
			if err != nil {
				return fe.Error()
			}
			return strings.ReplaceAll(out, valueMarker, valueString(fe.Value()))
		},
	)
}

const valueMarker = "\x00value\x00"

// Struct validates v and returns a perr validation error carrying the first
// failing field and its translated message
func Struct(v any) error {
	err := Get().Validator.Struct(v)
	if err == nil {
		return nil
	}
	var inv *validator.InvalidValidationError
	if errors.As(err, &inv) {
		logger.Get().Error().Err(inv).Msg("validator internal error")
		return perr.Wrap(inv, perr.ErrorCodeValidation, "validation error")
	}
	field, msg := FieldAndMessage(err)
	return perr.WithField(perr.New(perr.ErrorCodeValidation, msg), field)
}

// FieldAndMessage returns the first field and translated message
func FieldAndMessage(err error) (field, message string) {
	if err == nil {
		return "", ""
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			return fe.Field(), fe.Translate(Get().Translator)
		}
	}
	return "", err.Error()
}

func registerShort(v *validator.Validate, trans ut.Translator, tag, text string) {
	_ = v.RegisterTranslation(tag, trans,
		func(t ut.Translator) error { return t.Add(tag, text, true) },
		func(t ut.Translator, fe validator.FieldError) string {
			msg, _ := t.T(tag, fe.Field(), fe.Param())
			return msg
		},
	)
}

func valueString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case *string:
		if x == nil {
			return ""
		}
		return *x
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}
