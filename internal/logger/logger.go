package logger

import (
	"log"
	"os"
)

// Log defaults to stderr so packages can log before Init runs (and in tests).
var Log = log.New(os.Stderr, "", log.LstdFlags)

// Init opens (or creates) the log file and points the package logger at it.
// On failure the logger falls back to stderr so callers never hold a nil logger.
func Init(logFilePath string) error {
	file, err := os.OpenFile(logFilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
	if err != nil {
		Log = log.New(os.Stderr, "", log.LstdFlags)
		return err
	}

	Log = log.New(file, "", log.LstdFlags)
	Log.Println("Logger initialized.")
	return nil
}
