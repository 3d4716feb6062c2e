// Package validation holds the shared validator instance with the
// bitcoin-specific rules registered.
package validation

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

var Validate *validator.Validate

var (
	xfpRe  = regexp.MustCompile(`^[0-9a-fA-F]{8}$`)
	pathRe = regexp.MustCompile(`^m(/[0-9]+[h']?)*$`)
)

func init() {
	Validate = validator.New()

	_ = Validate.RegisterValidation("xfp", func(fl validator.FieldLevel) bool {
		return xfpRe.MatchString(fl.Field().String())
	})

	_ = Validate.RegisterValidation("derivation_path", func(fl validator.FieldLevel) bool {
		return pathRe.MatchString(fl.Field().String())
	})
}
