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
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pulse",
		Short: "Inspect and change pulses of the running experiment",
		Long: `Inspect and change pulses of the running experiment. Changes take effect
with the next "go-pulser seq update".`,
	}
	cmd.AddCommand(NewGetCommand())
	cmd.AddCommand(NewShiftCommand())
	cmd.AddCommand(NewSetCommand())
	cmd.AddCommand(NewResetCommand())
	return cmd
}

func parseID(arg string) (int, error) {
	return strconv.Atoi(arg)
}
