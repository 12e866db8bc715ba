package validator

import (
	"log"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var pinPattern = regexp.MustCompile(`^[A-Za-z0-9]{1,32}$`)

func RegisterGinValidator() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		err := v.RegisterValidation("pin", pinValidator)
		if err != nil {
			log.Fatal("register pin validator failed")
		}
		err = v.RegisterValidation("maxbytes", maxBytesValidator)
		if err != nil {
			log.Fatal("register maxbytes validator failed")
		}
	}
}

// pinValidator accepts a national identification number: latin letters and digits only.
var pinValidator validator.Func = func(fl validator.FieldLevel) bool {
	return pinPattern.MatchString(fl.Field().String())
}

// maxBytesValidator limits the encoded length of a string, unlike max which counts runes.
var maxBytesValidator validator.Func = func(fl validator.FieldLevel) bool {
	limit, err := strconv.Atoi(fl.Param())
	if err != nil {
		return false
	}
	return len(fl.Field().String()) <= limit
}
