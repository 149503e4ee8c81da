// Copyright 2026 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package logging is the toolkit-wide logging front-end. All packages log
// through the printf-style helpers here rather than holding logger instances.
package logging

import (
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
)

var log = newLogger()

var (
	warnPrefix  = color.New(color.FgYellow).Sprint("WARNING:")
	errorPrefix = color.New(color.FgRed).Sprint("ERROR:")
)

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	if !isatty.IsTerminal(os.Stderr.Fd()) {
		color.NoColor = true
	}
	if os.Getenv("TOOLKIT_LOG_LEVEL") == "debug" {
		l.SetLevel(logrus.DebugLevel)
	}
	return l
}

// Debug logs a message only when TOOLKIT_LOG_LEVEL=debug is set.
func Debug(format string, args ...interface{}) {
	log.Debugf(format, args...)
}

// Info logs an informational message.
func Info(format string, args ...interface{}) {
	log.Infof(format, args...)
}

// Warn logs a non-fatal warning. Warnings never alter the job's exit status.
func Warn(format string, args ...interface{}) {
	log.Warnf(warnPrefix+" "+format, args...)
}

// Error logs an error without terminating the process.
func Error(format string, args ...interface{}) {
	log.Errorf(errorPrefix+" "+format, args...)
}

// Fatal logs an error and exits with a non-zero status. The container
// runtime reports the job as failed based on that exit code.
func Fatal(format string, args ...interface{}) {
	log.Fatalf(errorPrefix+" "+format, args...)
}
