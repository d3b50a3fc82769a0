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
	"encoding/json"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"jinr.ru/greenlab/go-pulser/pkg/config"
	"jinr.ru/greenlab/go-pulser/pkg/layers"
	"jinr.ru/greenlab/go-pulser/pkg/log"
	"jinr.ru/greenlab/go-pulser/pkg/srv/control/ifc"
)

func TestMain(m *testing.M) {
	log.Init(ioutil.Discard, "error")
	os.Exit(m.Run())
}

func seconds(v float64) *float64 {
	return &v
}

func gateConfig() *config.PulserConfig {
	return &config.PulserConfig{
		Timebase:       4e-9,
		Trigger:        "internal",
		TriggerSlope:   "positive",
		RepetitionTime: 200e-9,
		Functions: []*config.FunctionConfig{
			{Name: "DETECTION_GATE", Channels: []string{"A0"}},
		},
		Pulses: []*config.PulseConfig{
			{ID: 1, Function: "DETECTION_GATE", Position: seconds(40e-9), Length: seconds(20e-9)},
		},
	}
}

func TestCompile(t *testing.T) {
	report, seq, err := Compile(gateConfig(), true)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if report.Summary.Class != "4 ns" || report.Summary.Entries != len(seq.Entries) {
		t.Errorf("unexpected summary %+v", report.Summary)
	}
	if len(report.Frames) != len(seq.Frames) || len(report.Frames) == 0 {
		t.Fatalf("expected one report line per frame, got %d", len(report.Frames))
	}
	if report.Frames[0].Fields[0] != "0x0000" {
		t.Errorf("expected the output low before the gate, got %v", report.Frames[0].Fields)
	}
	if len(report.Commands) == 0 || report.Commands[0] != "*RST" {
		t.Errorf("expected the recorded start commands, got %v", report.Commands)
	}

	out, err := report.Yaml()
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if !strings.Contains(string(out), "entries:") {
		t.Errorf("expected entries in the yaml report:\n%s", out)
	}

	path := filepath.Join(t.TempDir(), "table.bin")
	if err := WriteImage(path, seq); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	data, err := ioutil.ReadFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	decoded, _, err := layers.BytesToSequence(data)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if len(decoded.Entries) != len(seq.Entries) {
		t.Errorf("expected %d entries in the image, got %d", len(seq.Entries), len(decoded.Entries))
	}
}

func TestCompileWithoutCommands(t *testing.T) {
	report, _, err := Compile(gateConfig(), false)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if len(report.Commands) != 0 {
		t.Errorf("expected no commands, got %v", report.Commands)
	}
}

func TestCompileErrors(t *testing.T) {
	cfg := gateConfig()
	cfg.Pulses = append(cfg.Pulses, &config.PulseConfig{
		ID: 2, Function: "DETECTION_GATE", Position: seconds(48e-9), Length: seconds(20e-9),
	})
	if _, _, err := Compile(cfg, false); err == nil {
		t.Errorf("expected overlapping pulses to be rejected")
	}
}

func newTestClient(t *testing.T, h http.Handler) *ApiClient {
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	c := NewApiClient(config.NewDefaultConfig())
	c.ApiPrefix = ts.URL + "/api"
	return c
}

func TestApiClient(t *testing.T) {
	var mu sync.Mutex
	var got []string
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		got = append(got, r.Method+" "+r.URL.Path)
		mu.Unlock()
		switch r.URL.Path {
		case "/api/pulse/1", "/api/pulse/1/position":
			json.NewEncoder(w).Encode(&ifc.PulseInfo{ID: 1, Function: "MW", Position: seconds(4e-8)})
		case "/api/update":
			http.Error(w, "sequence too long", http.StatusConflict)
		case "/api/seq":
			json.NewEncoder(w).Encode(&ifc.SeqSummary{Generation: 3})
		}
	})
	c := newTestClient(t, h)

	info, err := c.GetPulse(1)
	if err != nil || info.Function != "MW" || *info.Position != 4e-8 {
		t.Errorf("unexpected pulse %+v, error %v", info, err)
	}
	if _, err := c.PulseOp(1, ifc.OpPosition, 4e-8); err != nil {
		t.Errorf("unexpected error: %s", err)
	}
	_, err = c.Update()
	apiErr, ok := err.(ErrApi)
	if !ok || apiErr.Msg != "sequence too long" {
		t.Errorf("expected the server message in the error, got %v", err)
	}
	sum, err := c.LastSequence()
	if err != nil || sum.Generation != 3 {
		t.Errorf("unexpected summary %+v, error %v", sum, err)
	}
	if err := c.Reset(0); err != nil {
		t.Errorf("unexpected error: %s", err)
	}
	if err := c.Reset(2); err != nil {
		t.Errorf("unexpected error: %s", err)
	}

	expected := []string{
		"GET /api/pulse/1",
		"POST /api/pulse/1/position",
		"POST /api/update",
		"GET /api/seq",
		"POST /api/reset",
		"POST /api/reset/2",
	}
	mu.Lock()
	defer mu.Unlock()
	if strings.Join(got, "\n") != strings.Join(expected, "\n") {
		t.Errorf("unexpected requests:\n%s", strings.Join(got, "\n"))
	}
}
