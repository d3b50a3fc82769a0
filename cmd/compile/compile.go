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

package compile

import (
	"fmt"

	"github.com/pkg/profile"
	"github.com/spf13/cobra"

	"jinr.ru/greenlab/go-pulser/pkg/command"
	"jinr.ru/greenlab/go-pulser/pkg/config"
)

const (
	ImageOptionName    = "image"
	CommandsOptionName = "commands"
	ProfileOptionName  = "profile"
)

func NewCommand() *cobra.Command {
	var image, profileDir string
	var commands bool
	cfg := config.NewDefaultConfig()
	cfg.Load()
	cmd := &cobra.Command{
		Use:   "compile [experiment.yaml]",
		Short: "Compile the pulse sequence of an experiment without hardware",
		Long: `Compile the initial pulse sequence and print its frames and table entries.
The experiment file holds a pulser section in the format of the config file.
Without a file the pulser section of the config file is used.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if profileDir != "" {
				defer profile.Start(profile.CPUProfile, profile.ProfilePath(profileDir), profile.Quiet).Stop()
			}
			pc := cfg.PulserConfig
			if len(args) == 1 {
				var err error
				if pc, err = config.LoadPulserConfig(args[0]); err != nil {
					return err
				}
			}
			report, seq, err := command.Compile(pc, commands)
			if err != nil {
				return err
			}
			if image != "" {
				if err := command.WriteImage(image, seq); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Table image written to %s\n", image)
			}
			return command.PrintYaml(cmd.OutOrStdout(), report)
		},
	}
	cmd.Flags().StringVar(&image, ImageOptionName, "", "Write the binary table image to this file")
	cmd.Flags().BoolVar(&commands, CommandsOptionName, false, "Also print the commands sent to the pulser at the start")
	cmd.Flags().StringVar(&profileDir, ProfileOptionName, "", "Write a CPU profile into this directory")
	return cmd
}
