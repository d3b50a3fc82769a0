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
	"io"
	"strings"
	"sync"

	"github.com/gotmc/prologix"
	"github.com/gotmc/prologix/driver/vcp"
	"github.com/pkg/errors"

	"jinr.ru/greenlab/go-pulser/pkg/log"
)

// GPIBLink talks to the instrument through a Prologix GPIB-USB controller.
type GPIBLink struct {
	port io.ReadWriter
	gpib *prologix.Controller
	mu   sync.Mutex
}

func OpenGPIB(port string, addr int) (*GPIBLink, error) {
	v, err := vcp.NewVCP(port)
	if err != nil {
		return nil, errors.Wrapf(err, "opening Prologix controller on %s", port)
	}
	gpib, err := prologix.NewController(v, addr, false)
	if err != nil {
		return nil, errors.Wrapf(err, "creating Prologix controller for GPIB address %d", addr)
	}
	log.Debug("Prologix controller on %s uses GPIB address %d", port, addr)
	return &GPIBLink{port: v, gpib: gpib}, nil
}

func (l *GPIBLink) Command(ctx context.Context, cmd string) error {
	if err := canceled(ctx, cmd); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.gpib.Command(cmd); err != nil {
		return errors.Wrapf(err, "sending %q", cmd)
	}
	return nil
}

func (l *GPIBLink) Query(ctx context.Context, cmd string) (string, error) {
	if err := canceled(ctx, cmd); err != nil {
		return "", err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	reply, err := l.gpib.Query(cmd)
	if err != nil && err != io.EOF {
		return "", errors.Wrapf(err, "querying %q", cmd)
	}
	return strings.TrimRight(reply, "\r\n"), nil
}

// Close returns the instrument to local control and closes the port.
func (l *GPIBLink) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.gpib.FrontPanel(true); err != nil {
		log.Warning("Error setting local control for front panel: %s", err)
	}
	if c, ok := l.port.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
