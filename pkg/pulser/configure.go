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
	"strings"

	"jinr.ru/greenlab/go-pulser/pkg/config"
)

func parseTrigger(mode, slope string) (TriggerMode, TriggerSlope, error) {
	var m TriggerMode
	switch strings.ToLower(mode) {
	case "", "internal":
		m = TriggerInternal
	case "external":
		m = TriggerExternal
	default:
		return 0, 0, newError(CodeConfig, "unknown trigger mode %q", mode)
	}
	var s TriggerSlope
	switch strings.ToLower(slope) {
	case "", "positive":
		s = SlopePositive
	case "negative":
		s = SlopeNegative
	default:
		return 0, 0, newError(CodeConfig, "unknown trigger slope %q", slope)
	}
	return m, s, nil
}

func paddingOrDefault(v *float64) float64 {
	if v == nil {
		return -1
	}
	return *v
}

// Configure applies a pulser setup read from a config file. The pulser must
// be in the Preparing phase; Finalize is left to the caller.
func Configure(p *Pulser, cfg *config.PulserConfig) error {
	// times below are converted to ticks right away
	tb := cfg.Timebase
	if tb == 0 {
		tb = DefaultTimebase
	}
	if err := p.SetTimebase(tb); err != nil {
		return err
	}
	mode, slope, err := parseTrigger(cfg.Trigger, cfg.TriggerSlope)
	if err != nil {
		return err
	}
	if err := p.SetTrigger(mode, slope); err != nil {
		return err
	}
	if cfg.RepetitionTime != 0 {
		if err := p.SetRepetitionTime(cfg.RepetitionTime); err != nil {
			return err
		}
	}
	if cfg.MinTWTDistance != 0 {
		if err := p.SetMinTWTDistance(cfg.MinTWTDistance); err != nil {
			return err
		}
	}
	if cfg.KeepAllPulses {
		p.KeepAllPulses()
	}

	functions := make([]Function, len(cfg.Functions))
	for i, fc := range cfg.Functions {
		f, err := ParseFunction(fc.Name)
		if err != nil {
			return err
		}
		functions[i] = f
		for _, name := range fc.Channels {
			ch, err := ParseChannel(name)
			if err != nil {
				return err
			}
			if err := p.AssignChannel(f, ch); err != nil {
				return err
			}
		}
		if fc.Delay != 0 {
			if err := p.SetFunctionDelay(f, fc.Delay); err != nil {
				return err
			}
		}
		if err := p.SetFunctionInverted(f, fc.Inverted); err != nil {
			return err
		}
	}
	// automatic pulses need the channels of the shape and TWT functions
	for i, fc := range cfg.Functions {
		if fc.AutoShape != nil {
			err := p.AutoShape(functions[i], paddingOrDefault(fc.AutoShape.Left), paddingOrDefault(fc.AutoShape.Right))
			if err != nil {
				return err
			}
		}
		if fc.AutoTWT != nil {
			err := p.AutoTWT(functions[i], paddingOrDefault(fc.AutoTWT.Left), paddingOrDefault(fc.AutoTWT.Right))
			if err != nil {
				return err
			}
		}
	}

	for _, sc := range cfg.PhaseSetups {
		f, err := ParseFunction(sc.Function)
		if err != nil {
			return err
		}
		for typeName, chName := range sc.Channels {
			t, err := ParsePhaseType(typeName)
			if err != nil {
				return err
			}
			ch, err := ParseChannel(chName)
			if err != nil {
				return err
			}
			if err := p.DefinePhaseSetup(sc.Setup-1, f, t, ch); err != nil {
				return err
			}
		}
	}
	for _, sc := range cfg.PhaseSequences {
		types := make([]PhaseType, len(sc.Phases))
		for i, name := range sc.Phases {
			if types[i], err = ParsePhaseType(name); err != nil {
				return err
			}
		}
		if err := p.DefinePhaseSequence(sc.ID, types...); err != nil {
			return err
		}
	}

	for _, pc := range cfg.Pulses {
		if err := configurePulse(p, pc); err != nil {
			return err
		}
	}
	return nil
}

func configurePulse(p *Pulser, pc *config.PulseConfig) error {
	if err := p.Declare(pc.ID); err != nil {
		return err
	}
	if pc.Function != "" {
		f, err := ParseFunction(pc.Function)
		if err != nil {
			return err
		}
		if err := p.SetFunction(pc.ID, f); err != nil {
			return err
		}
	}
	if pc.Position != nil {
		if err := p.SetPosition(pc.ID, *pc.Position); err != nil {
			return err
		}
	}
	if pc.Length != nil {
		if err := p.SetLength(pc.ID, *pc.Length); err != nil {
			return err
		}
	}
	if pc.PositionDelta != nil {
		if _, err := p.SetPositionDelta(pc.ID, *pc.PositionDelta); err != nil {
			return err
		}
	}
	if pc.LengthDelta != nil {
		if _, err := p.SetLengthDelta(pc.ID, *pc.LengthDelta); err != nil {
			return err
		}
	}
	if pc.PhaseCycle != 0 {
		if err := p.SetPhaseCycle(pc.ID, pc.PhaseCycle); err != nil {
			return err
		}
	}
	return nil
}
