package main

import (
	"fmt"
	"io"
)

// logWriter is the destination for log output, matching the teacher's
// writer-configurable Logf (game/logging.go): stdout unless redirected.
var logWriter io.Writer

func setLogWriter(w io.Writer) { logWriter = w }

func logf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if logWriter != nil {
		fmt.Fprintln(logWriter, msg)
	} else {
		fmt.Println(msg)
	}
}
