package command

import (
	"github.com/joeycumines/launchman/internal/config"
	"github.com/joeycumines/launchman/internal/logging"
)

// LogOptions resolves the logging options: a non-empty flag value wins,
// then the environment and config file, then the schema default.
func LogOptions(cfg *config.Config, flagFile, flagLevel string) logging.Options {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	schema := config.DefaultSchema()
	opts := logging.Options{
		Level:      flagLevel,
		Format:     schema.Resolve(cfg, "log.format"),
		File:       flagFile,
		MaxSizeMB:  schema.ResolveInt(cfg, "log.max-size-mb"),
		MaxBackups: schema.ResolveInt(cfg, "log.max-files"),
	}
	if opts.Level == "" {
		opts.Level = schema.Resolve(cfg, "log.level")
	}
	if opts.File == "" {
		opts.File = schema.Resolve(cfg, "log.file")
	}
	return opts
}
