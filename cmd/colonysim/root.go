package main

import (
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "colonysim",
	Short: "Autonomous decision core for space colonies",
	Long: `colonysim ranks each settlement's problems, picks and executes an action,
drives missions and resource requests, and keeps its services balanced.
It can also replay a phased production plan through the flow simulator.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", envOrDefault("COLONY_CONFIG", ""),
		"tuning file (YAML); defaults apply when empty")
	rootCmd.AddCommand(runCmd, simulateCmd)
}
