package service

import (
	"errors"
	"net/http"
)

var (
	ErrCustomerExistsByEmail  = errors.New("customer exists by email")
	ErrCustomerExistsByPin    = errors.New("customer exists by pin")
	ErrTokenNotFound          = errors.New("confirmation token not found")
	ErrTokenExpired           = errors.New("confirmation token expired")
	ErrCustomerNotFound       = errors.New("customer not found")
	ErrPasswordTooLong        = errors.New("password is longer than 72 bytes")
	ErrRegistrationInProgress = errors.New("registration for this email is already in progress, retry later")
)

const internalErrorMessage = "internal server error"

var clientErrors = map[error]int{
	ErrCustomerExistsByEmail:  http.StatusBadRequest,
	ErrCustomerExistsByPin:    http.StatusBadRequest,
	ErrTokenNotFound:          http.StatusBadRequest,
	ErrTokenExpired:           http.StatusBadRequest,
	ErrCustomerNotFound:       http.StatusBadRequest,
	ErrPasswordTooLong:        http.StatusBadRequest,
	ErrRegistrationInProgress: http.StatusConflict,
}

// IsClientError reports whether err is caused by the caller's input rather than by the system.
func IsClientError(err error) bool {
	_, ok := clientStatus(err)
	return ok
}

func clientStatus(err error) (int, bool) {
	for target, code := range clientErrors {
		if errors.Is(err, target) {
			return code, true
		}
	}
	return 0, false
}
