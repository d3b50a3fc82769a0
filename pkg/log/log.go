/*
 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

     https://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

package log

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
)

type LogLevel int

const (
	LogPrefix     = "[go-pulser] "
	ErrorPrefix   = "[error] "
	WarningPrefix = "[warn] "
	InfoPrefix    = "[info] "
	DebugPrefix   = "[debug] "
	HelpLevels    = "Must be one of: error, warning, info, debug."
)

const (
	ErrorLevel LogLevel = iota
	WarningLevel
	InfoLevel
	DebugLevel
)

type Logger struct {
	level LogLevel
	*log.Logger
}

var logger = &Logger{
	level:  InfoLevel,
	Logger: log.New(os.Stderr, LogPrefix, log.LstdFlags),
}

func SetLevel(strLevel string) error {
	levelMapping := map[string]LogLevel{
		"error":   ErrorLevel,
		"warning": WarningLevel,
		"info":    InfoLevel,
		"debug":   DebugLevel,
	}
	level, ok := levelMapping[strLevel]
	if !ok {
		return errors.New("Wrong log level. " + HelpLevels)
	}
	logger.level = level
	return nil
}

func Init(out io.Writer, strLevel string) {
	logger.SetOutput(out)
	if err := SetLevel(strLevel); err != nil {
		panic(err)
	}
}

// Writer returns the destination of the log, for handlers that write
// their own lines.
func Writer() io.Writer {
	return logger.Writer()
}

func Error(format string, v ...interface{}) {
	if logger.level >= ErrorLevel {
		logger.Println(fmt.Sprintf(ErrorPrefix+format, v...))
	}
}

func Warning(format string, v ...interface{}) {
	if logger.level >= WarningLevel {
		logger.Println(fmt.Sprintf(WarningPrefix+format, v...))
	}
}

func Info(format string, v ...interface{}) {
	if logger.level >= InfoLevel {
		logger.Println(fmt.Sprintf(InfoPrefix+format, v...))
	}
}

func Debug(format string, v ...interface{}) {
	if logger.level >= DebugLevel {
		logger.Println(fmt.Sprintf(DebugPrefix+format, v...))
	}
}

// Limiter prints the first warning for a key in full and only counts
// the repetitions. Summary reports the counts.
type Limiter struct {
	counts map[string]int
}

func NewLimiter() *Limiter {
	return &Limiter{counts: make(map[string]int)}
}

// Warning logs the message only the first time key is seen.
// It returns true if the message was printed.
func (l *Limiter) Warning(key, format string, v ...interface{}) bool {
	l.counts[key]++
	if l.counts[key] > 1 {
		return false
	}
	Warning(format, v...)
	return true
}

// Count returns how many times key was reported.
func (l *Limiter) Count(key string) int {
	return l.counts[key]
}

// Summary logs one line per key that was hit more than once and resets the counters.
func (l *Limiter) Summary() {
	var keys []string
	for key := range l.counts {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if n := l.counts[key]; n > 1 {
			Warning("%s: %d occurrences in total", key, n)
		}
	}
	l.counts = make(map[string]int)
}
