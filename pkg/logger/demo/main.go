package main

import (
	"log/slog"

	"github.com/aerolex/aerolex/pkg/logger"
)

func main() {
	// Create a colored logger
	log := logger.NewDefaultLogger(slog.LevelDebug)

	log.Info("============================================")
	log.Info("    Aerolex Colored Logger Demo")
	log.Info("============================================")
	log.Info("")

	log.Debug("Debug message - standard color")
	log.Info("Info message - standard color")
	log.Info("Version registered for far-121.542 - green!")
	log.Info("Chunks ingested successfully - also green!")
	log.Warn("Warning message - yellow!")
	log.Error("Error message - red!")

	log.Info("")
	log.Info("Ingestion milestones are highlighted in green:")
	log.Info("version registered", "regulation_id", "far-121.542", "seq", 2)
	log.Info("chunks ingested", "count", 42, "duration", "2.5s")
	log.Info("index rebuilt", "chunks", 156, "duration", "1.8s")

	log.Info("")
	log.Warn("Warnings appear in yellow for attention")
	log.Error("Errors appear in red for immediate visibility")

	log.Info("")
	log.Info("Demo complete!")
}
