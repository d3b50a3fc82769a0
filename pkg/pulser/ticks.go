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

package pulser

import (
	"fmt"
	"math"
)

// Ticks counts multiples of the configured time base.
type Ticks int64

// TimebaseClass selects the hardware word format.
type TimebaseClass int

const (
	Class16ns TimebaseClass = iota
	Class8ns
	Class4ns
)

// SubTicks is the number of ticks packed into one hardware word.
func (c TimebaseClass) SubTicks() int {
	switch c {
	case Class8ns:
		return 2
	case Class4ns:
		return 4
	}
	return 1
}

// UsableBits is the number of channels per field the class can drive.
func (c TimebaseClass) UsableBits() int {
	return BitsPerField / c.SubTicks()
}

func (c TimebaseClass) String() string {
	switch c {
	case Class8ns:
		return "8 ns"
	case Class4ns:
		return "4 ns"
	}
	return "16 ns"
}

// Timebase holds the tick length in seconds. The zero value is unset.
type Timebase struct {
	seconds float64
	ns      int64
	class   TimebaseClass
}

// NewTimebase accepts 4 ns, 8 ns and integer multiples of 16 ns.
func NewTimebase(seconds float64) (Timebase, error) {
	if seconds <= 0 || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return Timebase{}, newError(CodeConfig, "invalid time base %g s", seconds)
	}
	ns := seconds * 1e9
	rounded := math.Round(ns)
	if math.Abs(ns-rounded) > 1e-3 {
		return Timebase{}, newError(CodeConfig, "time base %g s is not a whole number of nanoseconds", seconds)
	}
	ins := int64(rounded)
	tb := Timebase{seconds: float64(ins) / 1e9, ns: ins}
	switch {
	case ins == 4:
		tb.class = Class4ns
		return tb, nil
	case ins == 8:
		tb.class = Class8ns
		return tb, nil
	case ins%16 == 0:
		tb.class = Class16ns
		return tb, nil
	}
	return Timebase{}, newError(CodeConfig, "time base %g ns not supported, use 4 ns, 8 ns or a multiple of 16 ns", rounded)
}

func (tb Timebase) IsSet() bool {
	return tb.seconds > 0
}

func (tb Timebase) Seconds() float64 {
	return tb.seconds
}

func (tb Timebase) Nanoseconds() int64 {
	return tb.ns
}

func (tb Timebase) Class() TimebaseClass {
	return tb.class
}

// ToTicks converts a time in seconds to ticks. The time has to be an integer
// multiple of the time base within 1% of a tick.
func (tb Timebase) ToTicks(t float64) (Ticks, error) {
	if !tb.IsSet() {
		return 0, invalidTime(t, "time base not set")
	}
	if math.IsNaN(t) || math.IsInf(t, 0) {
		return 0, invalidTime(t, "not a number")
	}
	exact := t / tb.seconds
	if math.Abs(exact) > MaxTicks {
		return 0, invalidTime(t, "out of range")
	}
	// math.Round rounds half away from zero
	rounded := math.Round(exact)
	if t != 0 && rounded == 0 {
		return 0, invalidTime(t, fmt.Sprintf("shorter than the time base of %s", FormatTime(tb.seconds)))
	}
	if math.Abs(rounded*tb.seconds-t) > 1e-2*tb.seconds {
		return 0, invalidTime(t, fmt.Sprintf("not an integer multiple of the time base of %s", FormatTime(tb.seconds)))
	}
	return Ticks(rounded), nil
}

// ToTime converts ticks back to seconds.
func (tb Timebase) ToTime(ticks Ticks) (float64, error) {
	if !tb.IsSet() {
		return 0, invalidTime(0, "time base not set")
	}
	// integer nanoseconds divided once, so whole multiples convert back exactly
	return float64(int64(ticks)*tb.ns) / 1e9, nil
}

// FormatTime prints a time with a readable unit.
func FormatTime(t float64) string {
	abs := math.Abs(t)
	switch {
	case abs == 0:
		return "0 s"
	case abs < 1e-6:
		return fmt.Sprintf("%g ns", t*1e9)
	case abs < 1e-3:
		return fmt.Sprintf("%g us", t*1e6)
	case abs < 1:
		return fmt.Sprintf("%g ms", t*1e3)
	}
	return fmt.Sprintf("%g s", t)
}
