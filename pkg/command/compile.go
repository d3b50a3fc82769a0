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

package command

import (
	"context"
	"fmt"
	"io/ioutil"

	"sigs.k8s.io/yaml"

	"jinr.ru/greenlab/go-pulser/pkg/config"
	"jinr.ru/greenlab/go-pulser/pkg/device/rs690"
	"jinr.ru/greenlab/go-pulser/pkg/layers"
	"jinr.ru/greenlab/go-pulser/pkg/pulser"
	"jinr.ru/greenlab/go-pulser/pkg/srv/control"
	"jinr.ru/greenlab/go-pulser/pkg/srv/control/ifc"
	"jinr.ru/greenlab/go-pulser/pkg/transport"
)

type FrameReport struct {
	Start  string   `json:"start"`
	Length string   `json:"length"`
	Fields []string `json:"fields"`
}

type EntryReport struct {
	Fields    []string `json:"fields"`
	Words     int64    `json:"words"`
	Composite bool     `json:"composite,omitempty"`
}

// CompileReport is the readable form of a compiled sequence.
type CompileReport struct {
	Summary  *ifc.SeqSummary `json:"summary"`
	Frames   []FrameReport   `json:"frames"`
	Entries  []EntryReport   `json:"entries"`
	Commands []string        `json:"commands,omitempty"`
}

func hexFields(p pulser.Pattern) []string {
	fields := make([]string, len(p))
	for i, w := range p {
		fields[i] = fmt.Sprintf("0x%04x", w)
	}
	return fields
}

func formatTicks(tb pulser.Timebase, ticks pulser.Ticks) string {
	t, err := tb.ToTime(ticks)
	if err != nil {
		return fmt.Sprintf("%d ticks", ticks)
	}
	return pulser.FormatTime(t)
}

// Compile builds the initial sequence of an experiment without talking to
// hardware. With commands set the RS690 commands of the experiment start are
// recorded too.
func Compile(pc *config.PulserConfig, commands bool) (*CompileReport, *pulser.Sequence, error) {
	var rec *transport.Recorder
	var prog pulser.Programmer
	if commands {
		rec = transport.NewRecorder(nil)
		prog = rs690.NewDevice(control.DeviceName, rec, 0)
	}
	p := pulser.New(prog)
	if err := pulser.Configure(p, pc); err != nil {
		return nil, nil, err
	}
	if err := p.Finalize(); err != nil {
		return nil, nil, err
	}
	if commands {
		if err := p.StartExperiment(context.Background()); err != nil {
			return nil, nil, err
		}
	}
	seq, err := p.Compile()
	if err != nil {
		return nil, nil, err
	}

	tb := p.Timebase()
	report := &CompileReport{
		Summary: control.NewSeqSummary(0, seq, tb, nil),
	}
	for _, f := range seq.Frames {
		report.Frames = append(report.Frames, FrameReport{
			Start:  formatTicks(tb, f.Pos),
			Length: formatTicks(tb, f.Len),
			Fields: hexFields(f.Fields),
		})
	}
	for _, e := range seq.Entries {
		report.Entries = append(report.Entries, EntryReport{
			Fields:    hexFields(e.Fields),
			Words:     e.Words,
			Composite: e.Composite,
		})
	}
	if rec != nil {
		report.Commands = rec.Sent()
	}
	return report, seq, nil
}

func (r *CompileReport) Yaml() ([]byte, error) {
	return yaml.Marshal(r)
}

// WriteImage writes the binary table image of seq to path.
func WriteImage(path string, seq *pulser.Sequence) error {
	image, err := layers.SequenceToBytes(seq, 0)
	if err != nil {
		return err
	}
	return ioutil.WriteFile(path, image, 0644)
}
