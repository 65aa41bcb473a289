package harvester

import (
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/spf13/cobra"

	"github.com/turbolytics/harvester/internal/config"
	"github.com/turbolytics/harvester/internal/invocation"
)

func NewLambdaCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "lambda",
		Short: "Runs as an AWS Lambda function.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			c, err := loadConfig(configPath)
			if err != nil {
				return err
			}

			logger, err := newLogger(c.Logger.Level, true)
			if err != nil {
				return err
			}
			defer logger.Sync()
			l := logger.Named("harvester.lambda")

			// resources live as long as the execution environment; queued
			// notifications are flushed at the end of every invocation
			o, _, err := config.InitializeOrchestrator(ctx, c, l)
			if err != nil {
				return err
			}

			lambda.Start(invocation.NewLambdaHandler(o, l).Invoke)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	return cmd
}
