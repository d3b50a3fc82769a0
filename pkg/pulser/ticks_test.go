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
	"math"
	"strings"
	"testing"
)

func TestNewTimebase(t *testing.T) {
	tests := []struct {
		seconds float64
		class   TimebaseClass
		ok      bool
	}{
		{4e-9, Class4ns, true},
		{8e-9, Class8ns, true},
		{16e-9, Class16ns, true},
		{48e-9, Class16ns, true},
		{12e-9, 0, false},
		{4.5e-9, 0, false},
		{0, 0, false},
		{-16e-9, 0, false},
	}
	for _, tc := range tests {
		tb, err := NewTimebase(tc.seconds)
		if tc.ok != (err == nil) {
			t.Errorf("NewTimebase(%g): unexpected result %v", tc.seconds, err)
			continue
		}
		if tc.ok && tb.Class() != tc.class {
			t.Errorf("NewTimebase(%g): expected class %s, got %s", tc.seconds, tc.class, tb.Class())
		}
	}
}

func TestToTicks(t *testing.T) {
	tb16, _ := NewTimebase(16e-9)
	tb4, _ := NewTimebase(4e-9)
	tests := []struct {
		name  string
		tb    Timebase
		t     float64
		ticks Ticks
		ok    bool
	}{
		{"zero", tb16, 0, 0, true},
		{"exact", tb16, 160e-9, 10, true},
		{"within tolerance", tb16, 16.1e-9, 1, true},
		{"negative", tb4, -8e-9, -2, true},
		{"40 ns at 4 ns", tb4, 40e-9, 10, true},
		{"shorter than a tick", tb16, 1e-9, 0, false},
		{"not a multiple", tb4, 10e-9, 0, false},
		{"nan", tb16, math.NaN(), 0, false},
		{"too long", tb4, 100, 0, false},
		{"no time base", Timebase{}, 16e-9, 0, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ticks, err := tc.tb.ToTicks(tc.t)
			if !tc.ok {
				if !HasCode(err, CodeInvalidTime) {
					t.Errorf("expected invalid time error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %s", err)
			}
			if ticks != tc.ticks {
				t.Errorf("expected %d ticks, got %d", tc.ticks, ticks)
			}
		})
	}
}

func TestTicksRoundTrip(t *testing.T) {
	for _, seconds := range []float64{4e-9, 8e-9, 16e-9, 32e-9} {
		tb, err := NewTimebase(seconds)
		must(t, err)
		for _, n := range []Ticks{0, 1, 3, 10, 999, 123457, -7, 1 << 20} {
			tm, err := tb.ToTime(n)
			must(t, err)
			back, err := tb.ToTicks(tm)
			must(t, err)
			if back != n {
				t.Errorf("%s: %d ticks -> %g s -> %d ticks", FormatTime(seconds), n, tm, back)
			}
			again, _ := tb.ToTime(back)
			if again != tm {
				t.Errorf("%s: time of %d ticks not stable: %g != %g", FormatTime(seconds), n, again, tm)
			}
		}
	}
}

func TestParseChannel(t *testing.T) {
	tests := []struct {
		name string
		id   ChannelID
		ok   bool
	}{
		{"A0", 0, true},
		{"b3", 19, true},
		{"D15", 63, true},
		{"17", 17, true},
		{"E1", 0, false},
		{"A16", 0, false},
		{"64", 0, false},
		{"", 0, false},
	}
	for _, tc := range tests {
		id, err := ParseChannel(tc.name)
		if tc.ok != (err == nil) {
			t.Errorf("ParseChannel(%q): unexpected result %v", tc.name, err)
			continue
		}
		if tc.ok && id != tc.id {
			t.Errorf("ParseChannel(%q): expected %d, got %d", tc.name, tc.id, id)
		}
		if tc.ok && tc.name != "17" && id.String() != strings.ToUpper(tc.name) {
			t.Errorf("channel %d: expected name %s, got %s", id, tc.name, id)
		}
	}
}
