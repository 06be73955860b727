package helpers

// Result carries either a value or the error that prevented producing it,
// so that both can travel over a single channel.
type Result[T any] struct {
	value T
	err   error
}

func NewResult[T any](value T, err error) Result[T] {
	return Result[T]{
		value: value,
		err:   err,
	}
}

func NewValueResult[T any](value T) Result[T] {
	return Result[T]{
		value: value,
	}
}

func NewErrorResult[T any](err error) Result[T] {
	return Result[T]{
		err: err,
	}
}

func (r Result[T]) Value() (T, error) {
	return r.value, r.err
}

func (r Result[T]) Error() error {
	return r.err
}

func (r Result[T]) Ok() bool {
	return r.err == nil
}

func (r Result[T]) Unwrap() T {
	if r.err != nil {
		panic(r.err)
	}
	return r.value
}

// SliceChannel returns a closed, buffered channel holding vs in order.
func SliceChannel[T any](vs ...T) <-chan Result[T] {
	c := make(chan Result[T], len(vs))
	for _, v := range vs {
		c <- NewValueResult(v)
	}
	close(c)
	return c
}
