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

package bplog

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/fatih/color"
	logrus "github.com/sirupsen/logrus"
)

// Formatter colorizes the level tag on console output. Whether escape
// codes are emitted follows fatih/color's global terminal detection,
// which checks standard output rather than the writer the logger uses.
type Formatter struct {
	TimestampFormat string
}

func (f Formatter) levelColor(level logrus.Level) *color.Color {
	switch level {
	case logrus.InfoLevel:
		return color.New(color.FgGreen, color.Bold)
	case logrus.WarnLevel:
		return color.New(color.FgYellow, color.Bold)
	case logrus.ErrorLevel, logrus.FatalLevel:
		return color.New(color.FgRed, color.Bold)
	default:
		return color.New(color.FgWhite, color.Bold)
	}
}

func (f Formatter) Format(entry *logrus.Entry) ([]byte, error) {
	var b *bytes.Buffer
	if entry.Buffer != nil {
		b = entry.Buffer
	} else {
		b = &bytes.Buffer{}
	}

	tag := f.levelColor(entry.Level).Sprintf("[%s]", strings.ToUpper(entry.Level.String()))
	b.WriteString(strings.Join([]string{tag, entry.Time.Format(f.TimestampFormat), entry.Message}, " "))

	var fields []string
	for k, v := range entry.Data {
		fields = append(fields, k+"="+toString(v))
	}
	if len(fields) > 0 {
		b.WriteString(" ")
		b.WriteString(strings.Join(fields, ", "))
	}
	b.WriteByte('\n')
	return b.Bytes(), nil
}

func toString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
