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

// Entry is one line of the hardware table: a word per field, repeated Words
// times. In the 8 ns and 4 ns classes a word carries 2 or 4 sub-ticks, the
// earliest sub-tick in the most significant bits.
type Entry struct {
	Fields    Pattern
	Words     int64
	Composite bool
}

// Sequence is one compiled generation.
type Sequence struct {
	Class   TimebaseClass
	Frames  []Frame
	Entries []Entry
	Idle    Pattern
	// idle sub-ticks appended to fill the last hardware word
	PadTicks Ticks
}

// Length is the number of ticks the hardware runs through per repetition.
func (s *Sequence) Length() Ticks {
	var n Ticks
	for _, f := range s.Frames {
		n += f.Len
	}
	return n + s.PadTicks
}

// subTickAccumulator collects sub-ticks of one hardware word.
type subTickAccumulator struct {
	width     uint
	mask      uint32
	words     [NumFields]uint32
	n         int
	composite bool
}

func newAccumulator(class TimebaseClass) *subTickAccumulator {
	width := uint(BitsPerField / class.SubTicks())
	return &subTickAccumulator{width: width, mask: 1<<width - 1}
}

func (a *subTickAccumulator) push(pat Pattern) {
	for i := range a.words {
		a.words[i] = a.words[i]<<a.width | uint32(pat[i])&a.mask
	}
	a.n++
}

func (a *subTickAccumulator) pattern() Pattern {
	var pat Pattern
	for i, w := range a.words {
		pat[i] = uint16(w)
	}
	return pat
}

func (a *subTickAccumulator) reset() {
	*a = subTickAccumulator{width: a.width, mask: a.mask}
}

// replicate fills all sub-ticks of a word with the same output.
func replicate(pat Pattern, class TimebaseClass) Pattern {
	acc := newAccumulator(class)
	for i := 0; i < class.SubTicks(); i++ {
		acc.push(pat)
	}
	return acc.pattern()
}

type entryList []Entry

func (l *entryList) add(e Entry) {
	if n := len(*l); n > 0 {
		prev := &(*l)[n-1]
		if prev.Fields == e.Fields && prev.Composite == e.Composite {
			prev.Words += e.Words
			return
		}
	}
	*l = append(*l, e)
}

// pack converts frames to hardware entries. Ticks of a frame that do not
// fill a whole word are folded together with the first ticks of the
// following frames into a composite word. The last word is filled with idle
// sub-ticks.
func pack(frames []Frame, class TimebaseClass, idle Pattern) ([]Entry, Ticks) {
	k := Ticks(class.SubTicks())
	var entries entryList
	acc := newAccumulator(class)
	flush := func() {
		entries.add(Entry{Fields: acc.pattern(), Words: 1, Composite: acc.composite})
		acc.reset()
	}
	for _, f := range frames {
		n := f.Len
		if acc.n > 0 {
			for Ticks(acc.n) < k && n > 0 {
				acc.push(f.Fields)
				acc.composite = true
				n--
			}
			if Ticks(acc.n) == k {
				flush()
			}
		}
		if full := n / k; full > 0 {
			entries.add(Entry{Fields: replicate(f.Fields, class), Words: int64(full)})
			n -= full * k
		}
		for ; n > 0; n-- {
			acc.push(f.Fields)
		}
	}
	var pad Ticks
	if acc.n > 0 {
		for Ticks(acc.n) < k {
			acc.push(idle)
			pad++
		}
		acc.composite = true
		flush()
	}
	return entries, pad
}

// splitEntries splits entries longer than the hardware allows per table line.
func splitEntries(entries []Entry) []Entry {
	var out []Entry
	for _, e := range entries {
		for e.Words > MaxWordsPerEntry {
			part := e
			part.Words = MaxWordsPerEntry
			out = append(out, part)
			e.Words -= MaxWordsPerEntry
		}
		out = append(out, e)
	}
	return out
}

// ExpandEntries returns the output pattern of every tick of a packed table.
func ExpandEntries(entries []Entry, class TimebaseClass) []Pattern {
	k := class.SubTicks()
	width := uint(BitsPerField / k)
	mask := uint16(1<<width - 1)
	var ticks []Pattern
	for _, e := range entries {
		for w := int64(0); w < e.Words; w++ {
			for j := 0; j < k; j++ {
				var pat Pattern
				shift := width * uint(k-1-j)
				for i := range pat {
					pat[i] = e.Fields[i] >> shift & mask
				}
				ticks = append(ticks, pat)
			}
		}
	}
	return ticks
}
