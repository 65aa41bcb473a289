package harvester

import (
	"encoding/json"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/turbolytics/harvester/internal/config"
	"github.com/turbolytics/harvester/internal/invocation"
)

func NewInvokeCommand() *cobra.Command {
	var (
		configPath string
		params     invocation.Params
	)

	cmd := &cobra.Command{
		Use:   "invoke",
		Short: "Runs a single harvest and prints the response envelope.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			c, err := loadConfig(configPath)
			if err != nil {
				return err
			}

			logger, err := newLogger(c.Logger.Level, false)
			if err != nil {
				return err
			}
			defer logger.Sync()
			l := logger.Named("harvester.invoke")

			o, closeFn, err := config.InitializeOrchestrator(ctx, c, l)
			if err != nil {
				return err
			}
			defer func() {
				if err := closeFn(ctx); err != nil {
					l.Warn("could not release resources", zap.Error(err))
				}
			}()

			resp, err := o.Handle(ctx, params).Response()
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(resp)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to config file")
	cmd.Flags().StringVar(&params.RunType, "runtype", "", `Run type, "full" reloads every record`)
	cmd.Flags().StringVar(&params.FromDateTime, "from", "", "Harvest records modified at or after this ISO-8601 UTC datetime")

	return cmd
}
