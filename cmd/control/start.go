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
	"fmt"

	"github.com/spf13/cobra"

	"jinr.ru/greenlab/go-pulser/pkg/command"
	"jinr.ru/greenlab/go-pulser/pkg/config"
)

const (
	IPOptionName        = "ip"
	ApiPortOptionName   = "api-port"
	TransportOptionName = "transport"
	PortOptionName      = "port"
)

func NewStartCommand() *cobra.Command {
	var ip, transport, port string
	var apiPort int
	cfg := config.NewDefaultConfig()
	cfg.Load()
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start control server",
		Long: `Start the control server. It programs the pulser with the pulser section
of the config file, starts the output and serves the API until interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if ip != "" {
				cfg.IP = ip
			}
			if apiPort != 0 {
				cfg.ApiPort = apiPort
			}
			if transport != "" {
				cfg.Kind = transport
			}
			if port != "" {
				cfg.Port = port
			}
			return command.StartControlServer(cfg)
		},
	}
	cmd.Flags().StringVar(&ip, IPOptionName, "", fmt.Sprintf("IP to bind. E.g. %s", config.DefaultIP))
	cmd.Flags().IntVar(&apiPort, ApiPortOptionName, 0, fmt.Sprintf("API port. E.g. %d", config.DefaultApiPort))
	cmd.Flags().StringVar(&transport, TransportOptionName, "",
		fmt.Sprintf("Transport: %s, %s or %s", config.TransportSerial, config.TransportGPIB, config.TransportNone))
	cmd.Flags().StringVar(&port, PortOptionName, "", fmt.Sprintf("Serial port. E.g. %s", config.DefaultSerialPort))
	return cmd
}
