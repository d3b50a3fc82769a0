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
	"jinr.ru/greenlab/go-pulser/pkg/log"
)

// resolvePaddings converts the requested paddings to ticks.
func (p *Pulser) resolvePaddings() error {
	for _, fs := range p.functions {
		for _, pd := range []*Padding{&fs.Shape, &fs.TWT} {
			if !pd.Enabled {
				continue
			}
			left, err := p.timebase.ToTicks(pd.leftTime)
			if err != nil {
				return err
			}
			right, err := p.timebase.ToTicks(pd.rightTime)
			if err != nil {
				return err
			}
			pd.Left, pd.Right = left, right
			pd.resetObserved()
		}
	}
	return nil
}

// synthesizeAuxPulses creates one shape and/or TWT pulse for every pulse of a
// function with automatic shape or TWT pulses.
func (p *Pulser) synthesizeAuxPulses() {
	n := len(p.pulses)
	for i := 0; i < n; i++ {
		pl := p.pulses[i]
		if pl == nil || pl.IsAuto() || !pl.HasFunction {
			continue
		}
		fs := p.functions[pl.Function]
		if fs.Shape.Enabled && pl.shape == noPulse {
			pl.shape = p.newAuxPulse(handle(i), FuncPulseShape)
		}
		if fs.TWT.Enabled && pl.twt == noPulse {
			pl.twt = p.newAuxPulse(handle(i), FuncTWT)
		}
	}
}

func (p *Pulser) newAuxPulse(primary handle, f Function) handle {
	pl := p.pulses[primary]
	aux := newPulse(p.nextAuxID)
	p.nextAuxID--
	aux.Function = f
	aux.HasFunction = true
	aux.primary = primary
	p.mirror(pl, aux)
	aux.Initial = aux.PulseValues
	h := p.addPulse(aux)
	p.functions[f].Pulses = append(p.functions[f].Pulses, h)
	log.Debug("Created %s pulse #%d for pulse #%d", f, aux.ID, pl.ID)
	return h
}

// padding returns the padding applied to pulse pl, nil for pulses that are
// not generated automatically.
func (p *Pulser) padding(pl *Pulse) *Padding {
	if !pl.IsAuto() {
		return nil
	}
	fs := p.functions[p.pulses[pl.primary].Function]
	if pl.Function == FuncTWT {
		return &fs.TWT
	}
	return &fs.Shape
}

// origin is the function a pulse on a padded channel stands for.
func (p *Pulser) origin(pl *Pulse) Function {
	if pl.IsAuto() {
		return p.pulses[pl.primary].Function
	}
	return pl.Function
}

// reportID is the pulse named in messages: the primary for generated pulses.
func (p *Pulser) reportID(pl *Pulse) int {
	if pl.IsAuto() {
		return p.pulses[pl.primary].ID
	}
	return pl.ID
}

// PaddingReport logs the paddings that had to be reduced since the last report.
func (p *Pulser) PaddingReport() {
	for _, fs := range p.functions {
		for _, pd := range []struct {
			what string
			pad  *Padding
		}{{"shape", &fs.Shape}, {"TWT", &fs.TWT}} {
			if !pd.pad.Enabled || !pd.pad.shrunk() {
				continue
			}
			left, _ := p.timebase.ToTime(pd.pad.MinLeft)
			right, _ := p.timebase.ToTime(pd.pad.MinRight)
			log.Warning("Automatic %s padding of function %s had to be reduced to %s left and %s right",
				pd.what, fs.Kind, FormatTime(left), FormatTime(right))
			pd.pad.resetObserved()
		}
	}
}
