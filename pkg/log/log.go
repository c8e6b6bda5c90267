/*
Copyright © 2022-2026 SUSE LLC
SPDX-License-Identifier: Apache-2.0

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package log provides the structured logging interface used across
// pipe-o-matic. Components depend on the Logger interface, never on
// logrus directly, so tests can swap in a silent or buffering logger.
package log

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Logger is the structured logging contract every pipe-o-matic component
// accepts through its constructor options.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	SetLevel(level Level)
}

// Level selects the verbosity applied by SetLevel: InfoLevel or
// DebugLevel.
type Level int

const (
	InfoLevel Level = iota
	DebugLevel
)

type logrusLogger struct {
	entry *logrus.Logger
}

// New returns a Logger that writes formatted messages to stderr.
func New() Logger {
	return NewWithWriter(os.Stderr)
}

// NewWithWriter returns a Logger writing to an arbitrary writer, used by
// tests to capture output.
func NewWithWriter(w io.Writer) Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: false,
		FullTimestamp:    true,
	})
	l.SetLevel(logrus.InfoLevel)
	return &logrusLogger{entry: l}
}

func (l *logrusLogger) SetLevel(level Level) {
	if level == DebugLevel {
		l.entry.SetLevel(logrus.DebugLevel)
		return
	}
	l.entry.SetLevel(logrus.InfoLevel)
}

func (l *logrusLogger) Debug(msg string, args ...any) {
	l.entry.Debugf(msg, args...)
}

func (l *logrusLogger) Info(msg string, args ...any) {
	l.entry.Infof(msg, args...)
}

func (l *logrusLogger) Warn(msg string, args ...any) {
	l.entry.Warnf(msg, args...)
}

func (l *logrusLogger) Error(msg string, args ...any) {
	l.entry.Errorf(msg, args...)
}

// Discard returns a Logger that drops every message, used by components
// that are not given an explicit logger in tests.
func Discard() Logger {
	return NewWithWriter(io.Discard)
}
