package api

import (
	"reflect" // Struct tag lookup
	"regexp"  // Regular expressions
	"strconv" // Year formatting
	"strings" // String manipulation
	"sync"    // One-time validator setup
	"time"    // Current year

	"yamdb/internal/domain" // Importing domain models

	"github.com/gin-gonic/gin/binding"       // Gin request binding
	"github.com/go-playground/validator/v10" // Struct validation
)

var (
	slugPattern     = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`) // URL-safe slug
	usernamePattern = regexp.MustCompile(`^[\w.@+-]+$`)      // Letters, digits and @/./+/-/_

	registerOnce sync.Once
)

// registerValidators adds the custom binding tags to gin's validator engine
func registerValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		// Report fields by their JSON name
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
		_ = v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
			return slugPattern.MatchString(fl.Field().String())
		})
		_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
			return usernamePattern.MatchString(fl.Field().String())
		})
		_ = v.RegisterValidation("notme", func(fl validator.FieldLevel) bool {
			return fl.Field().String() != domain.ReservedUsername
		})
	})
}

// translateValidation renders validator errors keyed by JSON field name
func translateValidation(errs validator.ValidationErrors) FieldErrors {
	fields := FieldErrors{}
	for _, fe := range errs {
		name := fe.Field()
		if i := strings.IndexByte(name, '['); i >= 0 {
			name = name[:i] // genre[1] -> genre
		}
		if _, seen := fields[name]; seen {
			continue
		}
		fields[name] = validationMessage(fe)
	}
	return fields
}

func validationMessage(fe validator.FieldError) string {
	isString := fe.Kind() == reflect.String
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "max":
		if isString {
			return "Ensure this field has no more than " + fe.Param() + " characters."
		}
		return "Ensure this value is less than or equal to " + fe.Param() + "."
	case "min":
		if isString {
			return "Ensure this field has at least " + fe.Param() + " characters."
		}
		return "Ensure this value is greater than or equal to " + fe.Param() + "."
	case "email":
		return "Enter a valid email address."
	case "slug":
		return "Enter a valid slug consisting of letters, numbers, underscores or hyphens."
	case "username":
		return "Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters."
	case "notme":
		return `Username "me" is not allowed.`
	case "oneof":
		return "Must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ") + "."
	}
	return "Invalid value."
}

// validateYear checks MinTitleYear < year <= current year and returns a message on failure
func validateYear(year int, now time.Time) string {
	if year <= domain.MinTitleYear {
		return "Year must be greater than " + strconv.Itoa(domain.MinTitleYear) + "."
	}
	if year > now.Year() {
		return "Year cannot be later than the current year (" + strconv.Itoa(now.Year()) + ")."
	}
	return ""
}
