package core

// Logger is any leveled logger. args may hold an error, a map of extras and the Profile on whose
// behalf the work was done.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

// Person identifies the user a log entry is about.
type Person struct {
	ID    string
	Name  string
	Email string
	Role  string
}
