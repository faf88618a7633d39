// Package dedupe tracks canonical content keys that were already submitted.
package dedupe

type options struct {
	sizeHint int
}

// Option applies a configuration option to the InMemoryDeduper.
type Option func(*options)

// WithSizeHint preallocates room for n keys. It is not a limit.
func WithSizeHint(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.sizeHint = n
		}
	}
}
