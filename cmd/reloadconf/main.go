package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "reloadconf",
	Short:         "reloadconf -- config-swap process supervisor",
	Long:          "reloadconf supervises a command and safely swaps in configuration files dropped into a watch directory.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
