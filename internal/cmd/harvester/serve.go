package harvester

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/turbolytics/harvester/internal/config"
	"github.com/turbolytics/harvester/internal/server"
)

func NewServeCommand() *cobra.Command {
	var (
		configPath string
		addr       string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serves harvest triggers, health and metrics over HTTP.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			c, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if addr != "" {
				c.Server.Addr = addr
			}

			logger, err := newLogger(c.Logger.Level, false)
			if err != nil {
				return err
			}
			defer logger.Sync()
			l := logger.Named("harvester.serve")

			o, closeFn, err := config.InitializeOrchestrator(ctx, c, l)
			if err != nil {
				return err
			}
			defer func() {
				if err := closeFn(cmd.Context()); err != nil {
					l.Warn("could not release resources", zap.Error(err))
				}
			}()

			return server.New(o, l.Named("server")).Start(ctx, c.Server.Addr)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to config file")
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address, overrides server.addr")

	return cmd
}
