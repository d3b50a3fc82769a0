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
	"fmt"
	"net/http"
	"strings"

	"github.com/imroc/req"

	"jinr.ru/greenlab/go-pulser/pkg/config"
	deviceifc "jinr.ru/greenlab/go-pulser/pkg/device/ifc"
	"jinr.ru/greenlab/go-pulser/pkg/srv/control/ifc"
)

type ApiClient struct {
	*config.Config
	ApiPrefix string
}

func NewApiClient(cfg *config.Config) *ApiClient {
	return &ApiClient{
		Config:    cfg,
		ApiPrefix: fmt.Sprintf("http://%s:%d/api", cfg.IP, cfg.ApiPort),
	}
}

func (c *ApiClient) pulseUrl(id int) string {
	return fmt.Sprintf("%s/pulse/%d", c.ApiPrefix, id)
}

// check turns a non 200 response into an error carrying the server message.
func check(r *req.Resp) error {
	if r.Response().StatusCode != http.StatusOK {
		return ErrApi{
			Status: r.Response().Status,
			Msg:    strings.TrimSpace(r.String()),
		}
	}
	return nil
}

// GetPulse sends request to get the state of a pulse
func (c *ApiClient) GetPulse(id int) (*ifc.PulseInfo, error) {
	r, err := req.Get(c.pulseUrl(id))
	if err != nil {
		return nil, err
	}
	if err := check(r); err != nil {
		return nil, err
	}
	info := &ifc.PulseInfo{}
	if err := r.ToJSON(info); err != nil {
		return nil, err
	}
	return info, nil
}

// PulseOp sends request to change a pulse. value is ignored by shift and increment.
func (c *ApiClient) PulseOp(id int, op string, value float64) (*ifc.PulseInfo, error) {
	r, err := req.Post(fmt.Sprintf("%s/%s", c.pulseUrl(id), op), req.BodyJSON(&ifc.PulseValue{Value: value}))
	if err != nil {
		return nil, err
	}
	if err := check(r); err != nil {
		return nil, err
	}
	info := &ifc.PulseInfo{}
	if err := r.ToJSON(info); err != nil {
		return nil, err
	}
	return info, nil
}

// Reset sends request to reset a pulse, all pulses if id is 0
func (c *ApiClient) Reset(id int) error {
	url := fmt.Sprintf("%s/reset", c.ApiPrefix)
	if id != 0 {
		url = fmt.Sprintf("%s/%d", url, id)
	}
	r, err := req.Post(url)
	if err != nil {
		return err
	}
	return check(r)
}

// Phase sends request to advance or reset the phase cycles of the given functions
func (c *ApiClient) Phase(op string, functions []string) error {
	r, err := req.Post(fmt.Sprintf("%s/phase/%s", c.ApiPrefix, op),
		req.BodyJSON(&ifc.PhaseRequest{Functions: functions}))
	if err != nil {
		return err
	}
	return check(r)
}

// Update sends request to commit all pending changes
func (c *ApiClient) Update() (*ifc.SeqSummary, error) {
	r, err := req.Post(fmt.Sprintf("%s/update", c.ApiPrefix))
	if err != nil {
		return nil, err
	}
	if err := check(r); err != nil {
		return nil, err
	}
	sum := &ifc.SeqSummary{}
	if err := r.ToJSON(sum); err != nil {
		return nil, err
	}
	return sum, nil
}

// Run sends request to start the output
func (c *ApiClient) Run() error {
	r, err := req.Post(fmt.Sprintf("%s/run", c.ApiPrefix))
	if err != nil {
		return err
	}
	return check(r)
}

// Stop sends request to stop the output
func (c *ApiClient) Stop() error {
	r, err := req.Post(fmt.Sprintf("%s/stop", c.ApiPrefix))
	if err != nil {
		return err
	}
	return check(r)
}

// LastSequence ...
func (c *ApiClient) LastSequence() (*ifc.SeqSummary, error) {
	r, err := req.Get(fmt.Sprintf("%s/seq", c.ApiPrefix))
	if err != nil {
		return nil, err
	}
	if err := check(r); err != nil {
		return nil, err
	}
	sum := &ifc.SeqSummary{}
	if err := r.ToJSON(sum); err != nil {
		return nil, err
	}
	return sum, nil
}

func (c *ApiClient) Status() (*deviceifc.Status, error) {
	r, err := req.Get(fmt.Sprintf("%s/status", c.ApiPrefix))
	if err != nil {
		return nil, err
	}
	if err := check(r); err != nil {
		return nil, err
	}
	status := &deviceifc.Status{}
	if err := r.ToJSON(status); err != nil {
		return nil, err
	}
	return status, nil
}
