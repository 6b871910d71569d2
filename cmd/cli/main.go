package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/myrjola/survey/cmd/cli/responses"
	"github.com/myrjola/survey/cmd/cli/sendtest"
	"github.com/spf13/cobra"
)

func init() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	rootCmd.AddGroup(responses.Group)
	rootCmd.AddCommand(responses.List, responses.Get, responses.Export)
	rootCmd.AddGroup(sendtest.Group)
	rootCmd.AddCommand(sendtest.SendTest)
}

var rootCmd = &cobra.Command{
	Use:  "survey-cli",
	Long: `Command line utilities for the heat pump enquiry survey`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Help()
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	Execute()
}
