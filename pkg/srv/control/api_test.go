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

package control

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"jinr.ru/greenlab/go-pulser/pkg/config"
	deviceifc "jinr.ru/greenlab/go-pulser/pkg/device/ifc"
	"jinr.ru/greenlab/go-pulser/pkg/device/rs690"
	"jinr.ru/greenlab/go-pulser/pkg/srv/control/ifc"
	"jinr.ru/greenlab/go-pulser/pkg/transport"
)

func seconds(v float64) *float64 {
	return &v
}

func newTestConfig(t *testing.T) *config.Config {
	cfg := config.NewDefaultConfig()
	cfg.DBPath = filepath.Join(t.TempDir(), "seq.db")
	cfg.Kind = config.TransportNone
	cfg.PulserConfig = &config.PulserConfig{
		Timebase:       4e-9,
		Trigger:        "internal",
		TriggerSlope:   "positive",
		RepetitionTime: 200e-9,
		Functions: []*config.FunctionConfig{
			{Name: "DETECTION_GATE", Channels: []string{"A0"}},
			{Name: "MW", Channels: []string{"B0", "B1"}},
		},
		PhaseSetups: []*config.PhaseSetupConfig{
			{Setup: 1, Function: "MW", Channels: map[string]string{"+X": "B0", "-X": "B1"}},
		},
		PhaseSequences: []*config.PhaseSequenceConfig{
			{ID: 1, Phases: []string{"+X", "-X"}},
		},
		Pulses: []*config.PulseConfig{
			{ID: 1, Function: "DETECTION_GATE", Position: seconds(40e-9), Length: seconds(20e-9),
				PositionDelta: seconds(8e-9)},
			{ID: 2, Function: "MW", Position: seconds(120e-9), Length: seconds(8e-9), PhaseCycle: 1},
		},
	}
	return cfg
}

func newTestServer(t *testing.T) (*ControlServer, *transport.Recorder, http.Handler) {
	rec := transport.NewRecorder(nil)
	s, err := newControlServer(context.Background(), newTestConfig(t), rs690.NewDevice(DeviceName, rec, time.Millisecond))
	must(t, err)
	t.Cleanup(s.state.Close)
	must(t, s.Start())
	return s, rec, s.api.(*ApiServer).Handler()
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("can not decode response: %s", err)
	}
}

func sameTime(v *float64, want float64) bool {
	return v != nil && math.Abs(*v-want) < 1e-15
}

func TestStartStoresFirstGeneration(t *testing.T) {
	s, rec, _ := newTestServer(t)

	sum, err := s.LastSequence()
	must(t, err)
	if sum.Generation != 1 {
		t.Errorf("expected generation 1 after start, got %d", sum.Generation)
	}
	setup, err := s.state.GetSetup()
	must(t, err)
	if len(setup.Channels) != 3 {
		t.Errorf("expected 3 mapped channels, got %v", setup.Channels)
	}
	sent := rec.Sent()
	if len(sent) == 0 || sent[0] != "*RST" || sent[len(sent)-2] != "RUN" {
		t.Errorf("unexpected start sequence %v", sent)
	}
}

func TestPulseApi(t *testing.T) {
	_, _, h := newTestServer(t)

	info := &ifc.PulseInfo{}
	decode(t, do(t, h, "GET", "/api/pulse/1", ""), info)
	if info.Function != "DETECTION_GATE" || !info.Active || !sameTime(info.Position, 40e-9) {
		t.Errorf("unexpected pulse %+v", info)
	}

	decode(t, do(t, h, "POST", "/api/pulse/1/shift", ""), info)
	if !sameTime(info.Position, 48e-9) {
		t.Errorf("expected the pulse shifted to 48 ns, got %v", *info.Position)
	}

	sum := &ifc.SeqSummary{}
	decode(t, do(t, h, "POST", "/api/update", ""), sum)
	if sum.Generation != 2 || len(sum.Dirty) != 1 || sum.Dirty[0] != "A0" {
		t.Errorf("unexpected summary %+v", sum)
	}

	decode(t, do(t, h, "POST", "/api/pulse/1/length", `{"value": 4e-8}`), info)
	if !sameTime(info.Length, 40e-9) {
		t.Errorf("expected length 40 ns, got %+v", info)
	}
	if w := do(t, h, "POST", "/api/reset/1", ""); w.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", w.Code, w.Body.String())
	}
	decode(t, do(t, h, "GET", "/api/pulse/1", ""), info)
	if !sameTime(info.Position, 40e-9) || !sameTime(info.Length, 20e-9) {
		t.Errorf("expected the initial values after a reset, got %+v", info)
	}
}

func TestRejectedUpdateKeepsGeneration(t *testing.T) {
	_, _, h := newTestServer(t)

	w := do(t, h, "POST", "/api/pulse/1/position", `{"value": 1e-6}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected the change to be accepted, got %d", w.Code)
	}
	if w := do(t, h, "POST", "/api/update", ""); w.Code != http.StatusConflict {
		t.Fatalf("expected a conflict, got %d: %s", w.Code, w.Body.String())
	}

	info := &ifc.PulseInfo{}
	decode(t, do(t, h, "GET", "/api/pulse/1", ""), info)
	if !sameTime(info.Position, 40e-9) {
		t.Errorf("expected the change rolled back, got %v", *info.Position)
	}
	sum := &ifc.SeqSummary{}
	decode(t, do(t, h, "GET", "/api/seq", ""), sum)
	if sum.Generation != 1 {
		t.Errorf("expected generation 1 to stay, got %d", sum.Generation)
	}
}

func TestRejectedChangeDropsPendingChanges(t *testing.T) {
	_, _, h := newTestServer(t)

	if w := do(t, h, "POST", "/api/pulse/1/shift", ""); w.Code != http.StatusOK {
		t.Fatalf("expected the shift to be accepted, got %d", w.Code)
	}
	if w := do(t, h, "POST", "/api/pulse/2/length", `{"value": -4e-9}`); w.Code != http.StatusConflict {
		t.Fatalf("expected a conflict, got %d: %s", w.Code, w.Body.String())
	}

	info := &ifc.PulseInfo{}
	decode(t, do(t, h, "GET", "/api/pulse/1", ""), info)
	if !sameTime(info.Position, 40e-9) {
		t.Errorf("expected the shift dropped, got %v", *info.Position)
	}
	sum := &ifc.SeqSummary{}
	decode(t, do(t, h, "POST", "/api/update", ""), sum)
	if sum.Generation != 1 {
		t.Errorf("expected generation 1 to stay, got %d", sum.Generation)
	}
}

func TestPhaseApi(t *testing.T) {
	_, _, h := newTestServer(t)

	if w := do(t, h, "POST", "/api/phase/next", ""); w.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", w.Code, w.Body.String())
	}
	sum := &ifc.SeqSummary{}
	decode(t, do(t, h, "POST", "/api/update", ""), sum)
	if strings.Join(sum.Dirty, ",") != "B0,B1" {
		t.Errorf("expected both MW channels reprogrammed, got %v", sum.Dirty)
	}

	if w := do(t, h, "POST", "/api/phase/reset", `{"functions": ["mw"]}`); w.Code != http.StatusOK {
		t.Errorf("unexpected status %d: %s", w.Code, w.Body.String())
	}
	if w := do(t, h, "POST", "/api/phase/next", `{"functions": ["NOPE"]}`); w.Code != http.StatusBadRequest {
		t.Errorf("expected bad request for an unknown function, got %d", w.Code)
	}
}

func TestApiErrors(t *testing.T) {
	_, _, h := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		code   int
	}{
		{"unknown pulse", "GET", "/api/pulse/9", "", http.StatusNotFound},
		{"unknown operation", "POST", "/api/pulse/1/jump", "", http.StatusNotFound},
		{"bad body", "POST", "/api/pulse/1/length", "{", http.StatusBadRequest},
		{"wrong method", "GET", "/api/update", "", http.StatusMethodNotAllowed},
		{"negative length", "POST", "/api/pulse/1/length", `{"value": -4e-9}`, http.StatusConflict},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if w := do(t, h, tc.method, tc.path, tc.body); w.Code != tc.code {
				t.Errorf("expected status %d, got %d: %s", tc.code, w.Code, w.Body.String())
			}
		})
	}
}

func TestRunStopAndStatus(t *testing.T) {
	s, rec, h := newTestServer(t)
	rec.Reset()

	if w := do(t, h, "POST", "/api/stop", ""); w.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", w.Code, w.Body.String())
	}
	if sent := rec.Sent(); len(sent) == 0 || sent[0] != "STOP" {
		t.Errorf("expected STOP to be sent, got %v", sent)
	}

	status := &deviceifc.Status{}
	decode(t, do(t, h, "GET", "/api/status", ""), status)
	if status.Busy || status.Error {
		t.Errorf("unexpected status %+v", status)
	}

	must(t, s.Stop())
	if w := do(t, h, "POST", "/api/run", ""); w.Code != http.StatusBadRequest {
		t.Errorf("expected run to be refused after the experiment ended, got %d", w.Code)
	}
}
