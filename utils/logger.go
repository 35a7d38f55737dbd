package utils

import (
	"io"
	"log"
	"os"

	fiberlog "github.com/gofiber/fiber/v2/log"
)

// SetupLogging sends both the stdlib logger and fiber's leveled logger to
// stdout and, when logFile is set, appends to that file as well. The returned
// closer releases the file.
func SetupLogging(logFile string, debug bool) (io.Closer, error) {
	var out io.Writer = os.Stdout
	var closer io.Closer = io.NopCloser(nil)

	if logFile != "" {
		file, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, err
		}
		out = io.MultiWriter(os.Stdout, file)
		closer = file
	}

	log.SetOutput(out)
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	fiberlog.SetOutput(out)
	if debug {
		fiberlog.SetLevel(fiberlog.LevelDebug)
	} else {
		fiberlog.SetLevel(fiberlog.LevelInfo)
	}

	return closer, nil
}
