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

package transport

import (
	"context"
	"errors"
	"testing"

	"jinr.ru/greenlab/go-pulser/pkg/config"
)

func TestRecorder(t *testing.T) {
	r := NewRecorder(func(cmd string) (string, error) {
		if cmd == "*IDN?" {
			return "RS690", nil
		}
		return "", errors.New("unexpected query")
	})
	ctx := context.Background()
	if err := r.Command(ctx, "*RST"); err != nil {
		t.Fatal(err)
	}
	idn, err := r.Query(ctx, "*IDN?")
	if err != nil || idn != "RS690" {
		t.Errorf("expected RS690, got %q %v", idn, err)
	}
	if _, err := r.Query(ctx, "STAT?"); err == nil {
		t.Errorf("expected the reply error")
	}
	sent := r.Sent()
	if len(sent) != 3 || sent[0] != "*RST" || sent[2] != "STAT?" {
		t.Errorf("unexpected commands %v", sent)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if err := r.Command(cancelled, "RUN"); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if n := len(r.Sent()); n != 3 {
		t.Errorf("cancelled command must not be sent")
	}
	r.Reset()
	if len(r.Sent()) != 0 {
		t.Errorf("expected no commands after reset")
	}
}

func TestOpen(t *testing.T) {
	link, err := Open(&config.TransportConfig{Kind: config.TransportNone})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := link.(*Recorder); !ok {
		t.Errorf("expected a recorder, got %T", link)
	}
	if _, err := Open(&config.TransportConfig{Kind: "usb"}); err == nil {
		t.Errorf("expected an error for an unknown transport")
	}
}
