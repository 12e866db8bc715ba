package email

import "github.com/go-playground/validator/v10"

var validate = validator.New()

func IsEmailValid(address string) bool {
	return validate.Var(address, "required,email") == nil
}
