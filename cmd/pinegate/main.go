package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "pinegate",
	Short:         "Pinegate Village backend",
	Long:          "Pinegate Village turns tracked habits, tasks and goals into a weekly village story.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	rootCmd.AddCommand(
		newServeCmd(),
		newWorkerCmd(),
		newRunCmd(),
		newStoryCmd(),
	)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "pinegate: "+err.Error())
		os.Exit(1)
	}
}
