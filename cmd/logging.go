package cmd

import (
	"github.com/achilleasa/gridtrace/config"
	"github.com/achilleasa/gridtrace/log"
	"github.com/urfave/cli"
)

var logger = log.New("gridtrace")

// Load the build config and apply its logging settings. The -v/-vv and
// --log-file flags take precedence over the config file.
func setupLogging(ctx *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(ctx.GlobalString("config"))
	if err != nil {
		return nil, err
	}

	level, err := log.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}

	if ctx.GlobalBool("v") {
		level = log.Info
	}

	if ctx.GlobalBool("vv") {
		level = log.Debug
	}
	log.SetLevel(level)

	if logFile := ctx.GlobalString("log-file"); logFile != "" {
		cfg.Logging.File = logFile
	}
	if err = log.SetFileSink(cfg.LogFileConfig()); err != nil {
		return nil, err
	}

	return cfg, nil
}
