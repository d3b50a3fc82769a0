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
	"strconv"

	"github.com/spf13/cobra"

	"jinr.ru/greenlab/go-pulser/pkg/command"
	"jinr.ru/greenlab/go-pulser/pkg/config"
	"jinr.ru/greenlab/go-pulser/pkg/srv/control/ifc"
)

func NewSetCommand() *cobra.Command {
	cfg := config.NewDefaultConfig()
	cfg.Load()
	cmd := &cobra.Command{
		Use:   "set <id> position|length|dpos|dlen <seconds>",
		Short: "Change a time of a pulse",
		Example: `
Move pulse 3 to 1.2 us
# go-pulser pulse set 3 position 1.2e-6`,
		Args:      cobra.ExactArgs(3),
		ValidArgs: []string{ifc.OpPosition, ifc.OpLength, ifc.OpDPos, ifc.OpDLen},
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			value, err := strconv.ParseFloat(args[2], 64)
			if err != nil {
				return err
			}
			info, err := command.NewApiClient(cfg).PulseOp(id, args[1], value)
			if err != nil {
				return err
			}
			return command.PrintYaml(cmd.OutOrStdout(), info)
		},
	}
	return cmd
}
