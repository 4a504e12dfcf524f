package validator

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	ut "github.com/go-playground/universal-translator"
	govalidator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/stemsi/smartexam/internal/model"
)

var (
	examOnce     sync.Once
	examValidate *govalidator.Validate
	examTrans    ut.Translator
)

func examValidator() (*govalidator.Validate, ut.Translator) {
	examOnce.Do(func() {
		v := govalidator.New(govalidator.WithRequiredStructEnabled())
		v.RegisterStructValidation(questionStructLevel, model.Question{})
		examTrans = useEnglishJSONNames(v)
		_ = v.RegisterTranslation("option_order", examTrans,
			func(ut ut.Translator) error {
				return ut.Add("option_order", "{0} must be labeled A, B, C, D and optionally E, in order", true)
			},
			func(ut ut.Translator, fe govalidator.FieldError) string {
				t, _ := ut.T("option_order", fe.Field())
				return t
			})
		_ = v.RegisterTranslation("known_label", examTrans,
			func(ut ut.Translator) error {
				return ut.Add("known_label", "{0} must be one of the question's option labels", true)
			},
			func(ut ut.Translator, fe govalidator.FieldError) string {
				t, _ := ut.T("known_label", fe.Field())
				return t
			})
		examValidate = v
	})
	return examValidate, examTrans
}

// questionStructLevel enforces the option alphabet and that the answer key
// points at an option that exists.
func questionStructLevel(sl govalidator.StructLevel) {
	q := sl.Current().Interface().(model.Question)

	for i, o := range q.Options {
		if i >= len(model.OptionAlphabet) || o.Label != model.OptionAlphabet[i] {
			sl.ReportError(q.Options, "options", "Options", "option_order", "")
			break
		}
	}
	if q.CorrectAnswer != "" && !q.HasLabel(q.CorrectAnswer) {
		sl.ReportError(q.CorrectAnswer, "correct_answer", "CorrectAnswer", "known_label", "")
	}
}

// ExamError lists every invalid field of an exam definition.
type ExamError struct {
	Fields map[string]string
}

func (e *ExamError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "invalid exam: " + strings.Join(parts, "; ")
}

// ValidateExam checks an exam and its questions against the catalog rules.
// Field keys of the returned *ExamError are prefixed with "exam." or
// "questions[i]." so a batch import can point at the offending entry.
func ValidateExam(exam *model.ExamDefinition, questions []model.Question) error {
	v, trans := examValidator()
	fields := make(map[string]string)

	collect := func(prefix string, err error) {
		ve, ok := err.(govalidator.ValidationErrors)
		if !ok {
			fields[prefix+"detail"] = err.Error()
			return
		}
		for _, fe := range ve {
			fields[prefix+stripRoot(fe.Namespace())] = fe.Translate(trans)
		}
	}

	if err := v.Struct(exam); err != nil {
		collect("exam.", err)
	}

	seen := make(map[uuid.UUID]int, len(questions))
	for i := range questions {
		prefix := fmt.Sprintf("questions[%d].", i)
		if err := v.Struct(&questions[i]); err != nil {
			collect(prefix, err)
		}
		if id := questions[i].ID; id != uuid.Nil {
			if j, dup := seen[id]; dup {
				fields[prefix+"id"] = fmt.Sprintf("duplicates questions[%d]", j)
			}
			seen[id] = i
		}
	}

	if len(fields) > 0 {
		return &ExamError{Fields: fields}
	}
	return nil
}

// stripRoot drops the leading struct name from a validator namespace.
func stripRoot(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}
