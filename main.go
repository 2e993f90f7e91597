package main

import (
	"embed"
	"os"
	"path/filepath"

	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"

	"zwflasher/logger"
)

//go:embed all:frontend/dist
var assets embed.FS

func main() {
	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = "."
	}
	logDir := filepath.Join(configDir, "ZerowriterFlasher", "logs")

	if err := logger.Init(logDir, logger.INFO); err != nil {
		logger.Warn("Failed to initialize file logging: %v", err)
	}
	defer logger.Close()

	logger.Info("Zerowriter Ink Firmware Restore starting")

	// Create an instance of the app structure
	app := NewApp()

	// Create application with options
	err = wails.Run(&options.App{
		Title:  "Zerowriter Ink Firmware Restore",
		Width:  900,
		Height: 650,
		AssetServer: &assetserver.Options{
			Assets: assets,
		},
		BackgroundColour: &options.RGBA{R: 245, G: 245, B: 245, A: 1},
		OnStartup:        app.startup,
		Bind: []any{
			app,
		},
	})
	if err != nil {
		logger.Error("Application failed to start: %v", err)
	}

	logger.Info("Zerowriter Ink Firmware Restore shutting down")
}
