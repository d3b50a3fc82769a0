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

package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"jinr.ru/greenlab/go-pulser/cmd/compile"
	"jinr.ru/greenlab/go-pulser/cmd/completion"
	"jinr.ru/greenlab/go-pulser/cmd/config"
	"jinr.ru/greenlab/go-pulser/cmd/control"
	"jinr.ru/greenlab/go-pulser/cmd/ports"
	"jinr.ru/greenlab/go-pulser/cmd/pulse"
	"jinr.ru/greenlab/go-pulser/cmd/seq"
	pkgconfig "jinr.ru/greenlab/go-pulser/pkg/config"
	"jinr.ru/greenlab/go-pulser/pkg/log"
)

const (
	LogLevelOptionName = "log-level"
)

func NewRootCommand(out io.Writer) *cobra.Command {
	var logLevel string
	cfg := pkgconfig.NewDefaultConfig()
	cfg.Load()
	cmd := &cobra.Command{
		Use:          "go-pulser",
		Short:        "Tool to program RS690 pulse generators",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if logLevel != "" {
				cfg.LogLevel = logLevel
			}
			if err := log.SetLevel(cfg.LogLevel); err != nil {
				return err
			}
			log.Init(cmd.ErrOrStderr(), cfg.LogLevel)
			return nil
		},
	}
	cmd.SetOut(out)
	cmd.AddCommand(config.NewCommand())
	cmd.AddCommand(compile.NewCommand())
	cmd.AddCommand(control.NewCommand())
	cmd.AddCommand(pulse.NewCommand())
	cmd.AddCommand(seq.NewCommand())
	cmd.AddCommand(ports.NewCommand())
	cmd.AddCommand(completion.NewCommand())
	cmd.PersistentFlags().StringVar(&logLevel, LogLevelOptionName, "", fmt.Sprintf("Log level. %s", log.HelpLevels))
	return cmd
}
