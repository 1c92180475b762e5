package ratelimiter

// Logger is the interface used for observability inside the rate limiter.
// The limiter reports store failures through it; middleware uses it for
// per-request diagnostics.
//
// Implement this interface to plug in your own logging backend, or use one
// of the bundled adapters for the standard log package, zap, zerolog, or
// logrus.
type Logger interface {
	Debugf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// nopLogger discards all messages. It is the default when no logger is
// provided, avoiding nil checks at call sites.
type nopLogger struct{}

func (l nopLogger) Debugf(format string, args ...interface{}) {}
func (l nopLogger) Errorf(format string, args ...interface{}) {}

// NopLogger returns a Logger that discards all messages.
func NopLogger() Logger {
	return nopLogger{}
}
