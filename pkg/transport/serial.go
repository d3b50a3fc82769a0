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
	"bufio"
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/tarm/serial"

	"jinr.ru/greenlab/go-pulser/pkg/log"
)

const terminator = "\n"

// SerialLink talks to the instrument over a serial port.
type SerialLink struct {
	name    string
	port    io.ReadWriteCloser
	reader  *bufio.Reader
	timeout time.Duration
	mu      sync.Mutex
}

func OpenSerial(name string, baud int, timeout time.Duration) (*SerialLink, error) {
	c := &serial.Config{
		Name:        name,
		Baud:        baud,
		ReadTimeout: timeout,
	}
	p, err := serial.OpenPort(c)
	if err != nil {
		return nil, errors.Wrapf(err, "opening serial port %s", name)
	}
	log.Debug("Serial port %s opened at %d baud", name, baud)
	return newSerialLink(name, p, timeout), nil
}

func newSerialLink(name string, port io.ReadWriteCloser, timeout time.Duration) *SerialLink {
	l := &SerialLink{name: name, port: port, timeout: timeout}
	l.reader = bufio.NewReader(readTimeout{port})
	return l
}

// readTimeout reports an empty read as a timeout. The port returns no data
// and no error once its read timeout expires.
type readTimeout struct {
	r io.Reader
}

var errReadTimeout = errors.New("read timeout")

func (rt readTimeout) Read(b []byte) (int, error) {
	n, err := rt.r.Read(b)
	if n == 0 && (err == nil || err == io.EOF) {
		return 0, errReadTimeout
	}
	return n, err
}

func (l *SerialLink) write(cmd string) error {
	if _, err := l.port.Write([]byte(cmd + terminator)); err != nil {
		return errors.Wrapf(err, "writing %q to %s", cmd, l.name)
	}
	return nil
}

func (l *SerialLink) Command(ctx context.Context, cmd string) error {
	if err := canceled(ctx, cmd); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.write(cmd)
}

func (l *SerialLink) Query(ctx context.Context, cmd string) (string, error) {
	if err := canceled(ctx, cmd); err != nil {
		return "", err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.write(cmd); err != nil {
		return "", err
	}
	line, err := l.reader.ReadString('\n')
	if errors.Is(err, errReadTimeout) {
		l.reader.Reset(readTimeout{l.port})
		return "", ErrTimeout{Port: l.name, Cmd: cmd, Timeout: l.timeout}
	}
	if err != nil {
		return "", errors.Wrapf(err, "reading reply to %q from %s", cmd, l.name)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (l *SerialLink) Close() error {
	return l.port.Close()
}
