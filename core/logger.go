package core

// Logger is any service that can log leveled application events.
// Extra args may carry structured context; implementations decide what to do
// with a user.User arg (e.g. reporting the acting user to an error tracker).
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
