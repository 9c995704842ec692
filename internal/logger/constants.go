package logger

// Default configuration values.
const (
	// DefaultLevel is the default logging level.
	DefaultLevel = InfoLevel
	// DefaultEncoding is the default log encoding format.
	DefaultEncoding = "console"
	// DefaultMaxSize is the default rotated file size in megabytes.
	DefaultMaxSize = 5
	// DefaultMaxBackups is the default number of rotated files kept.
	DefaultMaxBackups = 3
	// DefaultMaxAge is the default retention of rotated files in days.
	DefaultMaxAge = 30
)

// DefaultOutputPaths is the default list of paths to write log output to.
var DefaultOutputPaths = []string{"stdout"}
