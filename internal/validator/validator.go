package validator

import (
	"errors"
	"io"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	govalidator "github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

// trans translates request binding errors.
var trans ut.Translator

// Setup configures Gin's binding engine to report fields by their JSON name
// in English. Call once during startup.
func Setup() {
	if v, ok := binding.Validator.Engine().(*govalidator.Validate); ok {
		trans = useEnglishJSONNames(v)
	}
}

// useEnglishJSONNames names fields by their json tag and registers the
// default English messages on v.
func useEnglishJSONNames(v *govalidator.Validate) ut.Translator {
	v.RegisterTagNameFunc(jsonFieldName)
	enLocale := en.New()
	t, _ := ut.New(enLocale, enLocale).GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(v, t)
	return t
}

func jsonFieldName(fld reflect.StructField) string {
	name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	return name
}

// TranslateErrors maps each invalid field to a readable message. Errors that
// are not validation failures, such as malformed JSON, land under "detail".
func TranslateErrors(err error) map[string]string {
	var ve govalidator.ValidationErrors
	if !errors.As(err, &ve) {
		return map[string]string{"detail": err.Error()}
	}
	fields := make(map[string]string, len(ve))
	for _, fe := range ve {
		if trans == nil {
			fields[fe.Field()] = fe.Error()
			continue
		}
		fields[fe.Field()] = fe.Translate(trans)
	}
	return fields
}

// Bind decodes and validates the JSON body into dst. It returns nil on
// success or the field errors to report.
func Bind(c *gin.Context, dst any) map[string]string {
	if err := c.ShouldBindJSON(dst); err != nil {
		return TranslateErrors(err)
	}
	return nil
}

// BindOptional is Bind for endpoints whose body may be omitted. An empty body
// leaves dst untouched.
func BindOptional(c *gin.Context, dst any) map[string]string {
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		return TranslateErrors(err)
	}
	return nil
}
