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
	"sort"
)

// Pattern holds one output word per field.
type Pattern [NumFields]uint16

// Frame is one interval of constant output.
type Frame struct {
	Pos    Ticks
	Len    Ticks
	Fields Pattern
}

func (f Frame) End() Ticks {
	return f.Pos + f.Len
}

// idlePattern is the output with no pulse active: inverted channels are high.
func (p *Pulser) idlePattern() Pattern {
	var idle Pattern
	for _, c := range p.channels {
		if c.Assigned && p.functions[c.Function].idleLevel() {
			idle[c.ID.Field()] |= c.ID.mask()
		}
	}
	return idle
}

// makeFrames partitions the time line so that no interval edge of any
// channel falls inside a frame. The last frame's length is left at 0.
func (p *Pulser) makeFrames() []Frame {
	edges := map[Ticks]struct{}{StartOffset: {}, 0: {}}
	for _, c := range p.channels {
		for _, pp := range c.Current {
			edges[pp.Pos] = struct{}{}
			edges[pp.Pos+pp.Len] = struct{}{}
		}
	}
	positions := make([]Ticks, 0, len(edges))
	for pos := range edges {
		positions = append(positions, pos)
	}
	sort.Slice(positions, func(i, j int) bool { return positions[i] < positions[j] })

	frames := make([]Frame, len(positions))
	for i, pos := range positions {
		frames[i].Pos = pos
		if i > 0 {
			frames[i-1].Len = pos - frames[i-1].Pos
		}
	}
	return frames
}

// populateFrames sets the output bits of every frame.
func (p *Pulser) populateFrames(frames []Frame) {
	idle := p.idlePattern()
	for i := range frames {
		frames[i].Fields = idle
	}
	for _, c := range p.channels {
		if len(c.Current) == 0 {
			continue
		}
		field, mask := c.ID.Field(), c.ID.mask()
		inverted := p.functions[c.Function].Inverted
		for _, pp := range c.Current {
			end := pp.Pos + pp.Len
			i := sort.Search(len(frames), func(i int) bool { return frames[i].Pos >= pp.Pos })
			for ; i < len(frames) && frames[i].Pos < end; i++ {
				if inverted {
					frames[i].Fields[field] &^= mask
				} else {
					frames[i].Fields[field] |= mask
				}
			}
		}
	}
}

// checkFrames sets the length of the last frame from the repetition period
// and merges neighbouring frames with identical output.
func (p *Pulser) checkFrames(frames []Frame) ([]Frame, error) {
	last := &frames[len(frames)-1]
	switch {
	case !p.repSet:
		last.Len = 1
	case last.Pos > p.repTicks:
		return nil, newError(CodeSequenceTooLong, "pulse sequence of %d ticks is longer than the repetition period of %d ticks",
			last.Pos, p.repTicks)
	case last.Pos == p.repTicks && len(frames) > 1:
		// the last edge closes the period, the frame before it already ends there
		frames = frames[:len(frames)-1]
	default:
		last.Len = p.repTicks - last.Pos
	}
	merged := frames[:1]
	for _, f := range frames[1:] {
		prev := &merged[len(merged)-1]
		if prev.Fields == f.Fields {
			prev.Len += f.Len
			continue
		}
		merged = append(merged, f)
	}
	return merged, nil
}

// ExpandFrames returns the output pattern of every tick covered by frames.
func ExpandFrames(frames []Frame) []Pattern {
	var ticks []Pattern
	for _, f := range frames {
		for i := Ticks(0); i < f.Len; i++ {
			ticks = append(ticks, f.Fields)
		}
	}
	return ticks
}
