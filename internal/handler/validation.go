package handler

import (
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/es"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	es_translations "github.com/go-playground/validator/v10/translations/es"
	"github.com/pkg/errors"
)

const notBlankTag = "notblank"

var (
	translator     ut.Translator
	validatorOnce  sync.Once
	validatorSetup error
)

// initValidator teaches gin's validator the notblank tag and Spanish messages.
func initValidator() (ut.Translator, error) {
	validatorOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			validatorSetup = errors.New("handler: unexpected validator engine")
			return
		}
		locale := es.New()
		uni := ut.New(locale, locale)
		translator, _ = uni.GetTranslator("es")

		if err := es_translations.RegisterDefaultTranslations(v, translator); err != nil {
			validatorSetup = errors.Wrap(err, "handler: translations")
			return
		}
		// Report JSON names instead of Go field names.
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		if err := v.RegisterValidation(notBlankTag, validators.NotBlank); err != nil {
			validatorSetup = errors.Wrap(err, "handler: notblank")
			return
		}
		validatorSetup = v.RegisterTranslation(notBlankTag, translator,
			func(t ut.Translator) error { return t.Add(notBlankTag, "{0} no puede estar vacío", true) },
			func(t ut.Translator, fe validator.FieldError) string {
				s, _ := t.T(notBlankTag, fe.Field())
				return s
			},
		)
	})
	return translator, validatorSetup
}

func translateValidation(verrs validator.ValidationErrors, trans ut.Translator) map[string]string {
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		out[fe.Field()] = fe.Translate(trans)
	}
	return out
}
