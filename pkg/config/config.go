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

package config

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v2"
)

type ServerConfig struct {
	IP      string `yaml:"ip"`
	ApiPort int    `yaml:"apiPort"`
	DBPath  string `yaml:"dbPath"`
}

type TransportConfig struct {
	Kind         string `yaml:"kind"`
	Port         string `yaml:"port"`
	Baud         int    `yaml:"baud"`
	GPIBAddress  int    `yaml:"gpibAddress"`
	Timeout      string `yaml:"timeout"`
	PollInterval string `yaml:"pollInterval"`
}

// TimeoutDuration returns the reply timeout, the default if it can not be parsed.
func (t *TransportConfig) TimeoutDuration() time.Duration {
	return parseDuration(t.Timeout, DefaultTimeout)
}

func (t *TransportConfig) PollDuration() time.Duration {
	return parseDuration(t.PollInterval, DefaultPollInterval)
}

func parseDuration(value, def string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		d, _ = time.ParseDuration(def)
	}
	return d
}

// PaddingConfig requests automatic shape or TWT pulses. Missing paddings
// select the defaults.
type PaddingConfig struct {
	Left  *float64 `yaml:"left,omitempty"`
	Right *float64 `yaml:"right,omitempty"`
}

type FunctionConfig struct {
	Name      string         `yaml:"name"`
	Channels  []string       `yaml:"channels"`
	Delay     float64        `yaml:"delay,omitempty"`
	Inverted  bool           `yaml:"inverted,omitempty"`
	AutoShape *PaddingConfig `yaml:"autoShape,omitempty"`
	AutoTWT   *PaddingConfig `yaml:"autoTWT,omitempty"`
}

type PhaseSetupConfig struct {
	Setup    int               `yaml:"setup"`
	Function string            `yaml:"function"`
	Channels map[string]string `yaml:"channels"`
}

type PhaseSequenceConfig struct {
	ID     int      `yaml:"id"`
	Phases []string `yaml:"phases"`
}

type PulseConfig struct {
	ID            int      `yaml:"id"`
	Function      string   `yaml:"function"`
	Position      *float64 `yaml:"position,omitempty"`
	Length        *float64 `yaml:"length,omitempty"`
	PositionDelta *float64 `yaml:"positionDelta,omitempty"`
	LengthDelta   *float64 `yaml:"lengthDelta,omitempty"`
	PhaseCycle    int      `yaml:"phaseCycle,omitempty"`
}

// PulserConfig describes the pulser setup and the pulses of an experiment.
type PulserConfig struct {
	Timebase       float64                `yaml:"timebase"`
	Trigger        string                 `yaml:"trigger"`
	TriggerSlope   string                 `yaml:"triggerSlope"`
	RepetitionTime float64                `yaml:"repetitionTime,omitempty"`
	MinTWTDistance float64                `yaml:"minTWTDistance,omitempty"`
	KeepAllPulses  bool                   `yaml:"keepAllPulses,omitempty"`
	Functions      []*FunctionConfig      `yaml:"functions"`
	PhaseSetups    []*PhaseSetupConfig    `yaml:"phaseSetups,omitempty"`
	PhaseSequences []*PhaseSequenceConfig `yaml:"phaseSequences,omitempty"`
	Pulses         []*PulseConfig         `yaml:"pulses"`
}

type Config struct {
	LogLevel         string `yaml:"logLevel"`
	*ServerConfig    `yaml:"server"`
	*TransportConfig `yaml:"transport"`
	*PulserConfig    `yaml:"pulser"`
	filepath         string
}

func (c *Config) Persist(overwrite bool) error {
	if _, err := os.Stat(c.filepath); err == nil && !overwrite {
		return ErrConfigFileExists{Path: c.filepath}
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	dir := filepath.Dir(c.filepath)
	err = os.MkdirAll(dir, 0755)
	if err != nil {
		return err
	}

	return ioutil.WriteFile(c.filepath, data, 0644)
}

// Load reads the config file if there is one and keeps the defaults otherwise.
func (c *Config) Load() error {
	if _, err := os.Stat(c.filepath); os.IsNotExist(err) {
		return nil
	}
	return c.LoadConfig()
}

func (c *Config) LoadConfig() error {
	data, err := ioutil.ReadFile(c.filepath)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return ErrConfigParse{Path: c.filepath, Err: err}
	}
	return nil
}

func (c *Config) Path() string {
	return c.filepath
}

func (c *Config) SetPath(path string) {
	c.filepath = path
}

// LoadPulserConfig reads an experiment file that contains only a pulser section.
func LoadPulserConfig(path string) (*PulserConfig, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}
	pc := NewDefaultPulserConfig()
	if err := yaml.Unmarshal(data, pc); err != nil {
		return nil, ErrConfigParse{Path: path, Err: err}
	}
	return pc, nil
}

func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = ""
	}
	return filepath.Join(home, ConfigDir, ConfigFile)
}

func DefaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = ""
	}
	return filepath.Join(home, ConfigDir, DBFile)
}

func NewDefaultPulserConfig() *PulserConfig {
	return &PulserConfig{
		Timebase:       DefaultTimebase,
		Trigger:        DefaultTrigger,
		TriggerSlope:   DefaultTriggerSlope,
		RepetitionTime: DefaultRepetitionTime,
	}
}

func NewDefaultConfig() *Config {
	return &Config{
		LogLevel: DefaultLogLevel,
		ServerConfig: &ServerConfig{
			IP:      DefaultIP,
			ApiPort: DefaultApiPort,
			DBPath:  DefaultDBPath(),
		},
		TransportConfig: &TransportConfig{
			Kind:         DefaultTransportKind,
			Port:         DefaultSerialPort,
			Baud:         DefaultBaud,
			GPIBAddress:  DefaultGPIBAddress,
			Timeout:      DefaultTimeout,
			PollInterval: DefaultPollInterval,
		},
		PulserConfig: NewDefaultPulserConfig(),
		filepath:     DefaultConfigPath(),
	}
}
