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

	"jinr.ru/greenlab/go-pulser/pkg/log"
)

const (
	warnLeftPadding = "left padding reduced at start of sequence"
	warnTWTDistance = "TWT pulses closer than the minimum distance"
	warnDutyCycle   = "TWT duty cycle exceeded"
)

// span is the interval a pulse occupies on its channel, padding included.
type span struct {
	start  Ticks
	length Ticks
	left   Ticks
	right  Ticks
	pl     *Pulse
	pad    *Padding
	origin Function
}

func (s *span) end() Ticks {
	return s.start + s.length
}

func (s *span) rawStart() Ticks {
	return s.start + s.left
}

func (s *span) rawEnd() Ticks {
	return s.end() - s.right
}

func (s *span) auto() bool {
	return s.pad != nil
}

// buildTimelines fills the current parameter buffer of every channel from
// the phase matrix row selected by each function's phase index.
func (p *Pulser) buildTimelines() error {
	for _, c := range p.channels {
		c.Current = c.Current[:0]
	}
	var shapeSpans []span
	for _, fs := range p.functions {
		if fs.matrix == nil {
			continue
		}
		row := fs.matrix[fs.phase]
		for col, ch := range fs.Channels {
			spans := p.collectSpans(fs, row[col])
			spans, err := p.resolveSpans(fs, ch, spans)
			if err != nil {
				return err
			}
			if fs.Kind == FuncPulseShape {
				shapeSpans = append(shapeSpans, spans...)
			}
			c := p.channels[ch]
			for _, s := range spans {
				c.Current = append(c.Current, PulseParams{Pos: s.start, Len: s.length, PulseID: s.pl.ID})
			}
		}
	}
	return p.checkShapeCollisions(shapeSpans)
}

func (p *Pulser) collectSpans(fs *FunctionSettings, list []handle) []span {
	var spans []span
	for _, h := range list {
		pl := p.pulses[h]
		if pl == nil || !pl.IsActive {
			continue
		}
		s := span{
			start:  pl.Pos + fs.Delay,
			length: pl.Len,
			pl:     pl,
			origin: p.origin(pl),
		}
		if pad := p.padding(pl); pad != nil {
			s.pad = pad
			s.left, s.right = pad.Left, pad.Right
			s.start -= pad.Left
			s.length += pad.Left + pad.Right
		}
		spans = append(spans, s)
	}
	sort.SliceStable(spans, func(i, j int) bool {
		return spans[i].start < spans[j].start
	})
	return spans
}

func (p *Pulser) resolveSpans(fs *FunctionSettings, ch ChannelID, spans []span) ([]span, error) {
	if err := checkUserOverlaps(ch, spans); err != nil {
		return nil, err
	}
	for i := range spans {
		s := &spans[i]
		if s.start >= 0 {
			continue
		}
		cut := -s.start
		s.start = 0
		s.length -= cut
		s.left -= cut
		if s.auto() {
			s.pad.observeLeft(s.left)
		}
		p.warn.Warning(warnLeftPadding, "Left padding of pulse #%d on channel %s reduced by %d ticks to start at the trigger",
			p.reportID(s.pl), ch, cut)
	}
	if fs.Kind == FuncTWT {
		return p.resolveTWTSpans(ch, spans), nil
	}
	out := spans[:0]
	for _, s := range spans {
		if len(out) > 0 {
			pred := &out[len(out)-1]
			// different origins on the shape channel are reported by checkShapeCollisions
			if pred.end() > s.start && (fs.Kind != FuncPulseShape || pred.origin == s.origin) {
				shrinkTo(pred, s.start)
				if pred.length <= 0 {
					out = out[:len(out)-1]
				}
			}
		}
		out = append(out, s)
	}
	return out, nil
}

// checkUserOverlaps rejects pulses declared by the user that overlap,
// padding not taken into account.
func checkUserOverlaps(ch ChannelID, spans []span) error {
	var last *span
	for i := range spans {
		s := &spans[i]
		if s.auto() {
			continue
		}
		if last != nil && last.rawEnd() > s.rawStart() {
			return &Error{Kind: Fatal, Code: CodeOverlap, What: "pulses overlap",
				Err: ErrPulseOverlap{First: last.pl.ID, Second: s.pl.ID, Channel: ch.String()}}
		}
		if last == nil || s.rawEnd() > last.rawEnd() {
			last = s
		}
	}
	return nil
}

// shrinkTo cuts s so that it ends at end, reducing its right padding.
func shrinkTo(s *span, end Ticks) {
	cut := s.end() - end
	if cut <= 0 {
		return
	}
	s.length -= cut
	s.right -= cut
	if s.auto() {
		right := s.right
		if right < 0 {
			right = 0
		}
		s.pad.observeRight(right)
	}
}

func (p *Pulser) resolveTWTSpans(ch ChannelID, spans []span) []span {
	var out []span
	for _, s := range spans {
		if len(out) == 0 {
			out = append(out, s)
			continue
		}
		pred := &out[len(out)-1]
		switch {
		case pred.start == s.start:
			if s.length > pred.length {
				*pred = s
			}
			continue
		case s.end() <= pred.end():
			continue
		case pred.end() > s.start:
			shrinkTo(pred, s.start)
		}
		out = append(out, s)
	}
	for i := 1; i < len(out); i++ {
		pred, s := &out[i-1], &out[i]
		gap := s.start - pred.end()
		if gap <= 0 || gap >= p.minTWTDistance {
			continue
		}
		if !pred.auto() && !s.auto() {
			p.warn.Warning(warnTWTDistance, "TWT pulses #%d and #%d on channel %s are only %d ticks apart",
				pred.pl.ID, s.pl.ID, ch, gap)
			continue
		}
		pred.length = s.start - pred.start
	}
	return out
}

// checkShapeCollisions looks for overlapping shape intervals that stand for
// different functions. Those can not be resolved by shrinking the padding.
func (p *Pulser) checkShapeCollisions(spans []span) error {
	sort.SliceStable(spans, func(i, j int) bool {
		return spans[i].start < spans[j].start
	})
	var last *span
	for i := range spans {
		s := &spans[i]
		if last != nil && last.end() > s.start && last.origin != s.origin {
			return newError(CodePaddingCollision, "shape pulses of pulse #%d (%s) and pulse #%d (%s) overlap",
				p.reportID(last.pl), last.origin, p.reportID(s.pl), s.origin)
		}
		if last == nil || s.end() > last.end() {
			last = s
		}
	}
	return nil
}

// checkDutyCycle warns when the TWT is on for too large a part of the period.
func (p *Pulser) checkDutyCycle() {
	if !p.repSet || !p.functions[FuncTWT].IsUsed() {
		return
	}
	var on Ticks
	for _, ch := range p.functions[FuncTWT].Channels {
		for _, pp := range p.channels[ch].Current {
			on += pp.Len
		}
	}
	if ratio := float64(on) / float64(p.repTicks); ratio > MaxTWTDutyCycle {
		p.warn.Warning(warnDutyCycle, "TWT duty cycle of %.1f%% exceeds %.0f%%", ratio*100, MaxTWTDutyCycle*100)
	}
	log.Debug("TWT on for %d of %d ticks", on, p.repTicks)
}
