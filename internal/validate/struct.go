package validate

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var structs = validator.New(validator.WithRequiredStructEnabled())

// Struct checks v against its `validate` tags and reports the first failure
// in a readable form.
func Struct(v any) error {
	err := structs.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	for _, e := range verrs {
		switch e.Tag() {
		case "required":
			return fmt.Errorf("%s: field is required", e.Field())
		case "oneof":
			return fmt.Errorf("%s: must be one of [%s]", e.Field(), e.Param())
		case "min":
			return fmt.Errorf("%s: must be at least %s", e.Field(), e.Param())
		case "max":
			return fmt.Errorf("%s: must not exceed %s", e.Field(), e.Param())
		default:
			return fmt.Errorf("%s: validation failed (%s)", e.Field(), e.Tag())
		}
	}
	return err
}
