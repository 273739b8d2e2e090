// SPDX-License-Identifier: MIT
// Copyright (c) 2026 go-dnp3 contributors.

package logdec

import "github.com/sirupsen/logrus"

// LogrusProvider adapts a logrus.FieldLogger to Provider, letting a caller
// get structured fields (association id, function code, sequence) attached
// to every line instead of the default plain log.Logger formatting.
type LogrusProvider struct {
	Entry logrus.FieldLogger
}

var _ Provider = LogrusProvider{}

// NewLogrusLogger builds a Logger backed by a logrus.FieldLogger, e.g.
// logrus.WithFields(logrus.Fields{"assoc": 10, "channel": "primary"}).
func NewLogrusLogger(entry logrus.FieldLogger, levels *DecodeLevel) Logger {
	l := Logger{provider: LogrusProvider{Entry: entry}, levels: levels}
	return l
}

func (p LogrusProvider) Critical(format string, v ...interface{}) { p.Entry.Errorf(format, v...) }
func (p LogrusProvider) Error(format string, v ...interface{})    { p.Entry.Errorf(format, v...) }
func (p LogrusProvider) Warn(format string, v ...interface{})     { p.Entry.Warnf(format, v...) }
func (p LogrusProvider) Debug(format string, v ...interface{})    { p.Entry.Debugf(format, v...) }
