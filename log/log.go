// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package log exports the leveled logging primitives used throughout
// imag. Its API is shaped like upspin.io/log (package-level Debug,
// Info and Error loggers, SetLevel/GetLevel, package-level Printf
// shorthand), but it is backed by a zap.SugaredLogger rather than a
// raw *log.Logger, since structured logging is the idiomatic choice
// for this kind of tool.
package log

import (
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level represents the level of logging.
type Level int

// Different levels of logging.
const (
	DebugLevel Level = iota
	InfoLevel
	ErrorLevel
	DisabledLevel
)

func (l Level) zapLevel() zapcore.Level {
	switch l {
	case DebugLevel:
		return zapcore.DebugLevel
	case InfoLevel:
		return zapcore.InfoLevel
	case ErrorLevel:
		return zapcore.ErrorLevel
	}
	return zapcore.FatalLevel + 1 // above Fatal: effectively disabled
}

func (l Level) String() string {
	switch l {
	case DebugLevel:
		return "debug"
	case InfoLevel:
		return "info"
	case ErrorLevel:
		return "error"
	case DisabledLevel:
		return "disabled"
	}
	return "unknown"
}

func parseLevel(s string) (Level, error) {
	switch s {
	case "debug":
		return DebugLevel, nil
	case "info":
		return InfoLevel, nil
	case "error":
		return ErrorLevel, nil
	case "disabled":
		return DisabledLevel, nil
	}
	return DisabledLevel, fmt.Errorf("log: invalid level %q", s)
}

var (
	mu           sync.Mutex
	currentLevel = InfoLevel
	atom         = zap.NewAtomicLevelAt(currentLevel.zapLevel())
	base         = newZapLogger(atom)

	// Debug, Info and Error are the package's three leveled loggers.
	// Calls below currentLevel are no-ops.
	Debug = &logger{level: DebugLevel}
	Info  = &logger{level: InfoLevel}
	Error = &logger{level: ErrorLevel}
)

func newZapLogger(level zap.AtomicLevel) *zap.SugaredLogger {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "t"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(cfg), zapcore.AddSync(os.Stderr), level)
	return zap.New(core).Sugar()
}

type logger struct {
	level Level
}

// Printf writes a formatted message at the logger's level.
func (l *logger) Printf(format string, v ...interface{}) {
	mu.Lock()
	b := base
	mu.Unlock()
	if b == nil {
		return
	}
	switch {
	case l.level <= DebugLevel:
		b.Debugf(format, v...)
	case l.level == InfoLevel:
		b.Infof(format, v...)
	default:
		b.Errorf(format, v...)
	}
}

// Print writes a message at the logger's level.
func (l *logger) Print(v ...interface{}) {
	l.Printf("%s", fmt.Sprint(v...))
}

// Println writes a line at the logger's level.
func (l *logger) Println(v ...interface{}) {
	l.Printf("%s", fmt.Sprintln(v...))
}

// Fatal writes a message and exits, regardless of the current level.
func (l *logger) Fatal(v ...interface{}) {
	mu.Lock()
	b := base
	mu.Unlock()
	if b != nil {
		b.Fatal(v...)
		return
	}
	os.Exit(1)
}

// Fatalf writes a formatted message and exits, regardless of the current level.
func (l *logger) Fatalf(format string, v ...interface{}) {
	mu.Lock()
	b := base
	mu.Unlock()
	if b != nil {
		b.Fatalf(format, v...)
		return
	}
	os.Exit(1)
}

// String returns the name of the logger's level.
func (l *logger) String() string { return l.level.String() }

// SetLevel sets the current level of logging.
func SetLevel(level string) error {
	l, err := parseLevel(level)
	if err != nil {
		return err
	}
	mu.Lock()
	currentLevel = l
	atom.SetLevel(l.zapLevel())
	mu.Unlock()
	return nil
}

// GetLevel returns the current logging level.
func GetLevel() string {
	mu.Lock()
	defer mu.Unlock()
	return currentLevel.String()
}

// At reports whether the named level will be logged currently.
func At(level string) bool {
	l, err := parseLevel(level)
	if err != nil {
		return false
	}
	mu.Lock()
	defer mu.Unlock()
	return currentLevel <= l
}

// Printf writes a formatted message at Info level.
func Printf(format string, v ...interface{}) { Info.Printf(format, v...) }

// Print writes a message at Info level.
func Print(v ...interface{}) { Info.Print(v...) }

// Println writes a line at Info level.
func Println(v ...interface{}) { Info.Println(v...) }

// Fatal writes a message and exits, regardless of the current level.
func Fatal(v ...interface{}) { Info.Fatal(v...) }

// Fatalf writes a formatted message and exits, regardless of the
// current level.
func Fatalf(format string, v ...interface{}) { Info.Fatalf(format, v...) }

// SetOutput is used by tests to silence or redirect logging.
func SetOutput(disabled bool) {
	mu.Lock()
	defer mu.Unlock()
	if disabled {
		base = nil
		return
	}
	base = newZapLogger(atom)
}
