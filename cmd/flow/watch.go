package main

import (
	"fmt"

	"github.com/ducka/go-flow/config"
	"github.com/ducka/go-flow/observe"
	"github.com/ducka/go-flow/utils"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print the effective settings every time the config file changes",
	RunE: func(cmd *cobra.Command, args []string) error {
		current, err := config.Watch(cmd.Context(), configPath)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		marshaller := utils.NewYamlMarshaller()

		var printErr error
		current.AsObservable(observe.WithActivityName("Settings")).Subscribe(
			func(s config.Settings) {
				data, err := marshaller.Serialize(s)
				if err != nil {
					printErr = err
					return
				}
				fmt.Fprintf(out, "---\n%s", data)
			},
			observe.WithWaitTillComplete(),
		)
		return printErr
	},
}
