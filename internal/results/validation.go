package results

import (
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/sma-results-api/internal/models"
)

var academicYearPattern = regexp.MustCompile(`^(\d{4})/(\d{4})$`)

// NewValidator returns a validator with the result-specific tags registered:
// "term" accepts the three term labels and "academic_year" accepts "YYYY/YYYY"
// sessions whose second year follows the first.
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("term", func(fl validator.FieldLevel) bool {
		return models.Term(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("academic_year", func(fl validator.FieldLevel) bool {
		return ValidAcademicYear(fl.Field().String())
	})
	return v
}

// ValidAcademicYear reports whether raw is a "YYYY/YYYY" label of consecutive years.
func ValidAcademicYear(raw string) bool {
	m := academicYearPattern.FindStringSubmatch(raw)
	if m == nil {
		return false
	}
	start, _ := strconv.Atoi(m[1])
	end, _ := strconv.Atoi(m[2])
	return end == start+1
}
