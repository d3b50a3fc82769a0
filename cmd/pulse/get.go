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

package pulse

import (
	"github.com/spf13/cobra"

	"jinr.ru/greenlab/go-pulser/pkg/command"
	"jinr.ru/greenlab/go-pulser/pkg/config"
)

func NewGetCommand() *cobra.Command {
	cfg := config.NewDefaultConfig()
	cfg.Load()
	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Print the state of a pulse",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			info, err := command.NewApiClient(cfg).GetPulse(id)
			if err != nil {
				return err
			}
			return command.PrintYaml(cmd.OutOrStdout(), info)
		},
	}
	return cmd
}
