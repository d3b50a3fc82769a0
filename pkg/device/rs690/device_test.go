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

package rs690

import (
	"context"
	"errors"
	"io/ioutil"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"jinr.ru/greenlab/go-pulser/pkg/log"
	"jinr.ru/greenlab/go-pulser/pkg/pulser"
	"jinr.ru/greenlab/go-pulser/pkg/transport"
)

func TestMain(m *testing.M) {
	log.Init(ioutil.Discard, "error")
	os.Exit(m.Run())
}

// statusReplies answers status queries with the given words in turn, the
// last one forever.
func statusReplies(words ...string) transport.ReplyFunc {
	var mu sync.Mutex
	return func(cmd string) (string, error) {
		mu.Lock()
		defer mu.Unlock()
		switch cmd {
		case "STAT?":
			w := words[0]
			if len(words) > 1 {
				words = words[1:]
			}
			return w, nil
		case "SYST:ERR?":
			return `-222,"Data out of range"`, nil
		case "*IDN?":
			return "RS690,0,1.0", nil
		}
		return "", errors.New("unexpected query " + cmd)
	}
}

func newGatePulser(t *testing.T, dev *Device) *pulser.Pulser {
	t.Helper()
	p := pulser.New(dev)
	steps := []error{
		p.SetTimebase(4e-9),
		p.SetRepetitionTime(200e-9),
		p.AssignChannel(pulser.FuncDetectionGate, 0),
		p.SetFunctionInverted(pulser.FuncDetectionGate, false),
		p.Declare(1),
		p.SetFunction(1, pulser.FuncDetectionGate),
		p.SetPosition(1, 40e-9),
		p.SetLength(1, 20e-9),
	}
	for _, err := range steps {
		if err != nil {
			t.Fatalf("setting up the pulser: %s", err)
		}
	}
	if err := p.Finalize(); err != nil {
		t.Fatalf("Finalize: %s", err)
	}
	return p
}

func TestExperiment(t *testing.T) {
	rec := transport.NewRecorder(statusReplies("0"))
	dev := NewDevice("rs690", rec, time.Millisecond)
	p := newGatePulser(t, dev)
	if len(rec.Sent()) != 0 {
		t.Fatalf("nothing must be sent before the experiment, got %v", rec.Sent())
	}

	ctx := context.Background()
	if err := p.StartExperiment(ctx); err != nil {
		t.Fatalf("StartExperiment: %s", err)
	}
	expected := []string{
		"*RST", "STAT?",
		"LLO", "TB 4", "TRIG INT", "TRIG:SLOP POS", "MAP A0,DETECTION_GATE,0", "IDLE 0000,0000,0000,0000", "STAT?",
		"TAB:CLR",
		"TAB:ENT 0,0000,0000,0000,0000,2",
		"TAB:ENT 1,0001,0000,0000,0000,1",
		"TAB:ENT 2,1111,0000,0000,0000,1",
		"TAB:ENT 3,0000,0000,0000,0000,8",
		"TAB:ENT 4,0000,0000,0000,0000,1",
		"TAB:LEN 5", "TAB:LOAD", "STAT?",
		"RUN", "STAT?",
	}
	sent := rec.Sent()
	if strings.Join(sent, "\n") != strings.Join(expected, "\n") {
		t.Errorf("unexpected commands:\n%s\nexpected:\n%s", strings.Join(sent, "\n"), strings.Join(expected, "\n"))
	}
	if dev.Loads() != 1 {
		t.Errorf("expected one table load, got %d", dev.Loads())
	}

	rec.Reset()
	if err := p.ChangePosition(1, 80e-9); err != nil {
		t.Fatal(err)
	}
	if err := p.Update(ctx); err != nil {
		t.Fatalf("Update: %s", err)
	}
	if dev.Loads() != 2 {
		t.Errorf("expected the changed table to be loaded")
	}

	rec.Reset()
	if err := p.EndExperiment(ctx); err != nil {
		t.Fatalf("EndExperiment: %s", err)
	}
	if sent := rec.Sent(); len(sent) < 1 || sent[0] != "STOP" {
		t.Errorf("expected the pulser to be stopped, got %v", sent)
	}
}

func TestWaitWhileBusy(t *testing.T) {
	rec := transport.NewRecorder(statusReplies("0x0001", "0x0001", "0x0002"))
	dev := NewDevice("rs690", rec, time.Millisecond)
	if err := dev.Run(context.Background(), true); err != nil {
		t.Fatalf("Run: %s", err)
	}
	polls := 0
	for _, cmd := range rec.Sent() {
		if cmd == "STAT?" {
			polls++
		}
	}
	if polls != 3 {
		t.Errorf("expected 3 status queries, got %d", polls)
	}
	running, err := dev.IsRunning(context.Background())
	if err != nil || !running {
		t.Errorf("expected a running pulser, got %v %v", running, err)
	}
}

func TestDeviceErrors(t *testing.T) {
	t.Run("error bit", func(t *testing.T) {
		dev := NewDevice("rs690", transport.NewRecorder(statusReplies("4")), time.Millisecond)
		err := dev.Run(context.Background(), true)
		var devErr ErrDevice
		if !errors.As(err, &devErr) || !strings.Contains(devErr.Msg, "out of range") {
			t.Errorf("expected the device error, got %v", err)
		}
	})
	t.Run("bad status", func(t *testing.T) {
		dev := NewDevice("rs690", transport.NewRecorder(statusReplies("ready")), time.Millisecond)
		_, err := dev.Status(context.Background())
		var bad ErrBadReply
		if !errors.As(err, &bad) {
			t.Errorf("expected ErrBadReply, got %v", err)
		}
	})
	t.Run("not initialized", func(t *testing.T) {
		dev := NewDevice("rs690", transport.NewRecorder(nil), time.Millisecond)
		err := dev.Load(context.Background(), &pulser.Sequence{}, nil)
		var notInit ErrNotInitialized
		if !errors.As(err, &notInit) {
			t.Errorf("expected ErrNotInitialized, got %v", err)
		}
	})
	t.Run("timeout", func(t *testing.T) {
		dev := NewDevice("rs690", transport.NewRecorder(statusReplies("1")), time.Millisecond)
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		err := dev.Run(ctx, false)
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected a deadline error, got %v", err)
		}
	})
}

func TestStartFailsOnTransport(t *testing.T) {
	rec := transport.NewRecorder(func(string) (string, error) {
		return "", errors.New("no reply")
	})
	dev := NewDevice("rs690", rec, time.Millisecond)
	p := newGatePulser(t, dev)
	err := p.StartExperiment(context.Background())
	if !pulser.HasCode(err, pulser.CodeTransport) || !pulser.IsFatal(err) {
		t.Errorf("expected a fatal transport error, got %v", err)
	}
	if p.Phase() != pulser.TestRun {
		t.Errorf("expected the pulser back in the test run, got %s", p.Phase())
	}
}

func TestIdentify(t *testing.T) {
	dev := NewDevice("rs690", transport.NewRecorder(statusReplies("0")), time.Millisecond)
	idn, err := dev.Identify(context.Background())
	if err != nil || !strings.HasPrefix(idn, "RS690") {
		t.Errorf("unexpected identification %q %v", idn, err)
	}
	if err := dev.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestFrontPanelLock(t *testing.T) {
	rec := transport.NewRecorder(statusReplies("0"))
	dev := NewDevice("rs690", rec, time.Millisecond)
	p := newGatePulser(t, dev)
	if err := p.StartExperiment(context.Background()); err != nil {
		t.Fatalf("StartExperiment: %s", err)
	}
	if sent := rec.Sent(); len(sent) < 3 || sent[2] != "LLO" {
		t.Errorf("expected the front panel locked after the reset, got %v", sent)
	}
	rec.Reset()
	if err := dev.Close(); err != nil {
		t.Fatal(err)
	}
	if sent := rec.Sent(); len(sent) != 1 || sent[0] != "LOC" {
		t.Errorf("expected the pulser returned to local control, got %v", sent)
	}
	if !rec.Closed() {
		t.Errorf("expected the link to be closed")
	}
}
