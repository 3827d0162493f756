// Copyright (C) 2018 spdfg
//
// This file is part of Elektron.
//
// Elektron is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Elektron is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Elektron.  If not, see <http://www.gnu.org/licenses/>.
//

// Package bplog is the balancing core's structured logger: a
// logrus.Logger underneath a colorized console formatter, plus an
// optional CSV trace sink recording the per-tick surface spec.md
// section 6 defines (policy, step, and enforced limit per agent).
package bplog

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	logrus "github.com/sirupsen/logrus"
)

// Logger wraps a logrus.Logger with the config-driven sinks the
// balancing core uses.
type Logger struct {
	cfg   *Config
	base  *logrus.Logger
	trace *os.File
}

// New builds a Logger from cfg, creating the trace file under dir if
// tracing is enabled.
func New(cfg *Config, dir string) (*Logger, error) {
	base := logrus.New()
	base.SetFormatter(Formatter{TimestampFormat: time.RFC3339})

	level, err := logrus.ParseLevel(orDefault(cfg.Console.MinLogLevel, "info"))
	if err != nil {
		return nil, errors.Wrap(err, "parse console log level")
	}
	base.SetLevel(level)
	if !cfg.Console.Enabled {
		base.SetOutput(discard{})
	}

	l := &Logger{cfg: cfg, base: base}
	if cfg.Trace.Enabled {
		ext := orDefault(cfg.Trace.FilenameExtension, ".trace.csv")
		f, err := os.Create(fmt.Sprintf("%s/powerbalancer%s", orDefault(dir, "."), ext))
		if err != nil {
			return nil, errors.Wrap(err, "create trace file")
		}
		l.trace = f
		if _, err := fmt.Fprintln(f, "timestamp,agent_id,step_count,power_cap,max_epoch_runtime,power_slack,total_power_limit"); err != nil {
			return nil, err
		}
	}
	return l, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

func (l *Logger) Infof(format string, args ...interface{})  { l.base.Infof(format, args...) }
func (l *Logger) Warnf(format string, args ...interface{})  { l.base.Warnf(format, args...) }
func (l *Logger) Errorf(format string, args ...interface{}) { l.base.Errorf(format, args...) }
func (l *Logger) Fatalf(format string, args ...interface{}) { l.base.Fatalf(format, args...) }

// WithFields returns a logrus.Entry pre-populated with fields, for
// callers that want structured key/value context alongside a message.
func (l *Logger) WithFields(fields logrus.Fields) *logrus.Entry {
	return l.base.WithFields(fields)
}

// TraceTick appends one CSV row to the trace sink if tracing is
// enabled; a no-op otherwise.
func (l *Logger) TraceTick(agentID uuid.UUID, stepCount int, powerCap, maxEpochRuntime, powerSlack, totalPowerLimit float64) error {
	if l.trace == nil {
		return nil
	}
	_, err := fmt.Fprintf(l.trace, "%s,%s,%d,%.4f,%.4f,%.4f,%.4f\n",
		time.Now().UTC().Format(time.RFC3339Nano), agentID, stepCount, powerCap, maxEpochRuntime, powerSlack, totalPowerLimit)
	return err
}

// Close releases the trace file, if any.
func (l *Logger) Close() error {
	if l.trace == nil {
		return nil
	}
	return l.trace.Close()
}
