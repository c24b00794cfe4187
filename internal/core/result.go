package core

// Result is the outcome of a validate-then-write use case. It is either a
// Success carrying the affected id or a Failure carrying every violated
// rule in declared field order. Callers switch on the concrete type.
type Result[E FieldError] interface {
	isResult(E)
}

type Success[E FieldError] struct {
	ID int64
}

type Failure[E FieldError] struct {
	Errors []E
}

func (Success[E]) isResult(E) {}
func (Failure[E]) isResult(E) {}

// Succeed wraps id in a Success.
func Succeed[E FieldError](id int64) Result[E] {
	return Success[E]{ID: id}
}

// Fail wraps errs in a Failure. errs must not be empty.
func Fail[E FieldError](errs ...E) Result[E] {
	return Failure[E]{Errors: errs}
}

// Collect returns a Failure when errs is non-empty and nil otherwise.
func Collect[E FieldError](errs []E) Result[E] {
	if len(errs) == 0 {
		return nil
	}
	return Failure[E]{Errors: errs}
}

// ErrorsOf returns the errors of a Failure, or nil for a Success.
func ErrorsOf[E FieldError](r Result[E]) []E {
	if f, ok := r.(Failure[E]); ok {
		return f.Errors
	}
	return nil
}

// IDOf returns the id of a Success.
func IDOf[E FieldError](r Result[E]) (int64, bool) {
	if s, ok := r.(Success[E]); ok {
		return s.ID, true
	}
	return 0, false
}
