package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/turbolytics/harvester/internal/cmd/harvester"
)

func NewRootCommand() *cobra.Command {
	var cmd = &cobra.Command{
		Use:   "harvester",
		Short: "Mirrors GeoNetwork catalog records into object storage",
		Long: `harvester copies the JSON document of every selected catalog record
into a bucket, either all records or those changed since a watermark.`,
		SilenceUsage: true,
	}

	cmd.AddCommand(harvester.NewInvokeCommand())
	cmd.AddCommand(harvester.NewServeCommand())
	cmd.AddCommand(harvester.NewLambdaCommand())

	return cmd
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
// Inside a Lambda execution environment a bare invocation runs the function.
func Execute() {
	cmd := NewRootCommand()
	if os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != "" && len(os.Args) == 1 {
		cmd.SetArgs([]string{"lambda"})
	}
	if err := cmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
