// Copyright 2025 AI Redefined Inc. <dev+slipscan@ai-r.com>
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package utils

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// LoggerFormatter renders entries as
//
//	<time> [LEVE] [component>sub_component] message [field:value]...
//
// with the level and prefix colored by severity.
type LoggerFormatter struct {
	// PrefixFields - the fields that will appear in the prefix in this order
	PrefixFields []string
	// DisableColors - skip the ANSI escape sequences around the level and prefix
	DisableColors bool
}

// Format a log entry
func (f *LoggerFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	b := &bytes.Buffer{}

	// write time
	b.WriteString(entry.Time.Format(time.RFC3339))

	// write caller information
	if entry.HasCaller() {
		fmt.Fprintf(
			b,
			" (%s:%d %s)",
			entry.Caller.File,
			entry.Caller.Line,
			entry.Caller.Function,
		)
	}

	// write level and prefix fields
	level := strings.ToUpper(entry.Level.String())
	prefix := strings.Join(f.prefixValues(entry), ">")
	if f.DisableColors {
		fmt.Fprintf(b, " [%s] [%s] ", level[:4], prefix)
	} else {
		fmt.Fprintf(b, " \x1b[%dm[%s] [%s] \x1b[0m", levelColor(entry.Level), level[:4], prefix)
	}

	// write message
	b.WriteString(strings.TrimSpace(entry.Message))

	// write the remaining fields in a stable order
	for _, field := range f.otherFields(entry) {
		fmt.Fprintf(b, " [%s:%v]", field, entry.Data[field])
	}

	b.WriteByte('\n')

	return b.Bytes(), nil
}

func (f *LoggerFormatter) prefixValues(entry *logrus.Entry) []string {
	values := []string{}
	for _, field := range f.PrefixFields {
		if value, ok := entry.Data[field]; ok {
			values = append(values, fmt.Sprintf("%v", value))
		}
	}
	return values
}

func (f *LoggerFormatter) otherFields(entry *logrus.Entry) []string {
	isPrefixField := map[string]bool{}
	for _, field := range f.PrefixFields {
		isPrefixField[field] = true
	}
	fields := []string{}
	for field := range entry.Data {
		if !isPrefixField[field] {
			fields = append(fields, field)
		}
	}
	sort.Strings(fields)
	return fields
}

const (
	colorRed    = 31
	colorYellow = 33
	colorBlue   = 36
	colorGray   = 37
)

func levelColor(level logrus.Level) int {
	switch level {
	case logrus.DebugLevel, logrus.TraceLevel:
		return colorGray
	case logrus.WarnLevel:
		return colorYellow
	case logrus.ErrorLevel, logrus.FatalLevel, logrus.PanicLevel:
		return colorRed
	default:
		return colorBlue
	}
}
