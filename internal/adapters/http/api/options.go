package api

// Throttle defaults.
const (
	DefaultThrottleRPS   = 5.0
	DefaultThrottleBurst = 10
)

type options struct {
	adminToken    string
	throttleRPS   float64
	throttleBurst int
}

func defaultOptions() options {
	return options{
		throttleRPS:   DefaultThrottleRPS,
		throttleBurst: DefaultThrottleBurst,
	}
}

// Option configures the Server.
type Option func(*options)

// WithAdminToken sets the shared secret for administrative endpoints. An
// empty token disables them.
func WithAdminToken(token string) Option {
	return func(o *options) {
		o.adminToken = token
	}
}

// WithThrottle sets the per-address request rate and burst.
func WithThrottle(rps float64, burst int) Option {
	return func(o *options) {
		if rps > 0 {
			o.throttleRPS = rps
		}
		if burst > 0 {
			o.throttleBurst = burst
		}
	}
}
