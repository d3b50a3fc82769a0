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

package seq

import (
	"github.com/spf13/cobra"

	"jinr.ru/greenlab/go-pulser/pkg/command"
	"jinr.ru/greenlab/go-pulser/pkg/config"
	"jinr.ru/greenlab/go-pulser/pkg/srv/control/ifc"
)

func NewPhaseCommand() *cobra.Command {
	cfg := config.NewDefaultConfig()
	cfg.Load()
	cmd := &cobra.Command{
		Use:   "phase next|reset [function...]",
		Short: "Advance or reset the phase cycles",
		Long: `Advance or reset the phase cycles of the given functions, of all phase
cycled functions if none is given.`,
		Args:      cobra.MinimumNArgs(1),
		ValidArgs: []string{ifc.PhaseNext, ifc.PhaseReset},
		RunE: func(cmd *cobra.Command, args []string) error {
			return command.NewApiClient(cfg).Phase(args[0], args[1:])
		},
	}
	return cmd
}
