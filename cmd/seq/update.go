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
)

func NewUpdateCommand() *cobra.Command {
	cfg := config.NewDefaultConfig()
	cfg.Load()
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Send all pending pulse and phase changes to the pulser",
		Long: `Send all pending pulse and phase changes to the pulser. If the new sequence
is rejected all pending changes are discarded and the pulser keeps running the
previous one.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			sum, err := command.NewApiClient(cfg).Update()
			if err != nil {
				return err
			}
			return command.PrintYaml(cmd.OutOrStdout(), sum)
		},
	}
	return cmd
}
