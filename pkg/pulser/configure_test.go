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
	"testing"

	"jinr.ru/greenlab/go-pulser/pkg/config"
)

func seconds(v float64) *float64 {
	return &v
}

func TestConfigure(t *testing.T) {
	cfg := &config.PulserConfig{
		Timebase:       4e-9,
		Trigger:        "external",
		TriggerSlope:   "negative",
		RepetitionTime: 200e-9,
		Functions: []*config.FunctionConfig{
			{
				Name:      "detection_gate",
				Channels:  []string{"A0"},
				AutoShape: &config.PaddingConfig{Left: seconds(8e-9), Right: seconds(4e-9)},
			},
			{Name: "PULSE_SHAPE", Channels: []string{"A1"}},
			{Name: "MW", Channels: []string{"B0", "B1"}, Inverted: true},
		},
		PhaseSetups: []*config.PhaseSetupConfig{
			{Setup: 1, Function: "MW", Channels: map[string]string{"+X": "B0", "-X": "B1"}},
		},
		PhaseSequences: []*config.PhaseSequenceConfig{
			{ID: 1, Phases: []string{"X", "-x"}},
		},
		Pulses: []*config.PulseConfig{
			{ID: 1, Function: "DETECTION_GATE", Position: seconds(40e-9), Length: seconds(20e-9)},
			{ID: 2, Function: "MW", Position: seconds(120e-9), Length: seconds(8e-9),
				PositionDelta: seconds(4e-9), PhaseCycle: 1},
		},
	}
	p := New(nil)
	must(t, Configure(p, cfg))
	must(t, p.Finalize())

	if p.trigMode != TriggerExternal || p.trigSlope != SlopeNegative {
		t.Errorf("expected external trigger on the negative slope")
	}
	if shape := p.Channel(1).Current; len(shape) != 1 || shape[0].Pos != 8 || shape[0].Len != 8 {
		t.Errorf("expected shape pulse [8,16), got %v", shape)
	}
	b0, _ := ParseChannel("B0")
	if c := p.Channel(b0).Current; len(c) != 1 || c[0].Pos != 30 {
		t.Errorf("expected MW pulse on B0 at 30 ticks, got %v", c)
	}
	if idle := p.idlePattern(); idle[1] != 0x0003 {
		t.Errorf("expected inverted MW channels high when idle, got %v", idle)
	}
	if n := p.Function(FuncMW).CycleLength(); n != 2 {
		t.Errorf("expected a phase cycle of 2, got %d", n)
	}
}

func TestConfigureErrors(t *testing.T) {
	tests := []struct {
		name string
		cfg  *config.PulserConfig
		code ErrCode
	}{
		{"unknown function", &config.PulserConfig{
			Functions: []*config.FunctionConfig{{Name: "LASER", Channels: []string{"A0"}}},
		}, CodeConfig},
		{"bad channel", &config.PulserConfig{
			Functions: []*config.FunctionConfig{{Name: "MW", Channels: []string{"Z1"}}},
		}, CodeConfig},
		{"bad trigger", &config.PulserConfig{Trigger: "manual"}, CodeConfig},
		{"bad time", &config.PulserConfig{
			Functions: []*config.FunctionConfig{{Name: "MW", Channels: []string{"A0"}}},
			Pulses:    []*config.PulseConfig{{ID: 1, Function: "MW", Position: seconds(10e-9)}},
		}, CodeInvalidTime},
		{"duplicate pulse", &config.PulserConfig{
			Pulses: []*config.PulseConfig{{ID: 1}, {ID: 1}},
		}, CodeDuplicatePulse},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			wantCode(t, Configure(New(nil), tc.cfg), tc.code)
		})
	}
}
