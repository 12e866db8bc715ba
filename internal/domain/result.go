package domain

// Result is the envelope returned by the registration and confirmation flows.
// Data is set only on success.
type Result[T any] struct {
	Data    *T     `json:"data"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func Success[T any](data T, code int, message string) Result[T] {
	return Result[T]{
		Data:    &data,
		Code:    code,
		Message: message,
	}
}

func Failure[T any](code int, message string) Result[T] {
	return Result[T]{
		Code:    code,
		Message: message,
	}
}

func (r Result[T]) OK() bool {
	return r.Data != nil
}
