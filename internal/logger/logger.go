package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"time"
)

var (
	debugMode bool
	logger    *log.Logger
)

// Logs go to stderr; stdout belongs to the progress display.
func init() {
	logger = log.New(os.Stderr, "", log.LstdFlags)
}

func SetOutput(w io.Writer) {
	logger.SetOutput(w)
}

func SetDebugMode(debug bool) {
	debugMode = debug
	if debug {
		logger.SetFlags(log.LstdFlags | log.Lshortfile)
		Info("Debug mode enabled - detailed logging activated")
	} else {
		logger.SetFlags(log.LstdFlags)
	}
}

func Debug(format string, v ...interface{}) {
	if debugMode {
		msg := fmt.Sprintf("[DEBUG] "+format, v...)
		logger.Output(2, msg)
	}
}

func Info(format string, v ...interface{}) {
	msg := fmt.Sprintf("[INFO] "+format, v...)
	logger.Output(2, msg)
}

func Warn(format string, v ...interface{}) {
	msg := fmt.Sprintf("[WARN] "+format, v...)
	logger.Output(2, msg)
}

func Error(format string, v ...interface{}) {
	msg := fmt.Sprintf("[ERROR] "+format, v...)
	logger.Output(2, msg)
}

func LogOperation(operation string, start time.Time, err error) {
	duration := time.Since(start)
	if err != nil {
		Error("Operation '%s' failed after %v: %v", operation, duration, err)
	} else {
		if debugMode {
			Debug("Operation '%s' completed in %v", operation, duration)
		} else {
			Info("Operation '%s' completed", operation)
		}
	}
}

func LogHTTPRequest(method, url string, statusCode int, duration time.Duration) {
	Debug("HTTP %s %s -> %d (%v)", method, url, statusCode, duration)
}

func LogContainerRun(image, containerID string, exitCode int64, err error) {
	if err != nil {
		Error("Container run of '%s' failed (%s): %v", image, shortID(containerID), err)
	} else {
		Debug("Container run of '%s' (%s) exited with %d", image, shortID(containerID), exitCode)
	}
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
