package harvester

import (
	"os"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/turbolytics/harvester/internal/config"
)

// ConfigEnv names a config file when --config is not given.
const ConfigEnv = "HARVESTER_CONFIG"

// loadConfig reads fpath, or the production defaults when no file is named,
// and applies HARVESTER_* overrides.
func loadConfig(fpath string) (*config.Harvester, error) {
	if fpath == "" {
		fpath = os.Getenv(ConfigEnv)
	}

	c := config.Default()
	if fpath != "" {
		var err error
		if c, err = config.NewHarvesterFromFile(fpath); err != nil {
			return nil, err
		}
	}

	c.ApplyEnv(viper.New())
	return c, nil
}

func newLogger(level string, production bool) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	if production {
		cfg = zap.NewProductionConfig()
	}

	if level != "" {
		lvl, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, err
		}
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	return cfg.Build()
}
