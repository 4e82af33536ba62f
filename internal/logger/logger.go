// Copyright © 2025 Attestant Limited.
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package logger

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

var defaultLogger = newLogger()

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.InfoLevel)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return l
}

// SetLevel sets the minimum level by name (trace, debug, info, warn, error).
func SetLevel(level string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	defaultLogger.SetLevel(lvl)
	return nil
}

// SetDebugMode switches between debug and info logging
func SetDebugMode(enabled bool) {
	if enabled {
		defaultLogger.SetLevel(logrus.DebugLevel)
	} else {
		defaultLogger.SetLevel(logrus.InfoLevel)
	}
}

// IsDebugEnabled returns whether debug logging is enabled
func IsDebugEnabled() bool {
	return defaultLogger.IsLevelEnabled(logrus.DebugLevel)
}

func SetOutput(w io.Writer) {
	defaultLogger.SetOutput(w)
}

// Writer returns a writer that logs each line at the given level. The caller
// closes it.
func Writer(level logrus.Level) *io.PipeWriter {
	return defaultLogger.WriterLevel(level)
}

func Debug(format string, args ...interface{}) {
	defaultLogger.Debugf(format, args...)
}

func Info(format string, args ...interface{}) {
	defaultLogger.Infof(format, args...)
}

func Error(format string, args ...interface{}) {
	defaultLogger.Errorf(format, args...)
}

func Warn(format string, args ...interface{}) {
	defaultLogger.Warnf(format, args...)
}
