package main

import (
	"github.com/DerwenAI/dylifo/internal/config"
	"github.com/DerwenAI/dylifo/internal/server"
	"github.com/DerwenAI/dylifo/internal/util"
	"github.com/DerwenAI/dylifo/pkg/logger"
	"github.com/DerwenAI/dylifo/pkg/logger/console"
)

func main() {
	util.LoadEnv()

	debug := util.GetEnvBool(config.DebugEnv, false)

	format, formatErr := console.ParseFormat(util.GetEnv("DYLIFO_LOG_FORMAT"))
	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug:  debug,
		Format: format,
	})
	logger.Init(consoleLogger)
	if formatErr != nil {
		logger.Warn("Falling back to text logs", "err", formatErr)
	}

	server.Init()
}
