/*
vkdemo opens a window and draws a triangle through the Vulkan device
context in engine/renderer/vulkan.
*/
package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spaghettifunk/vkdemo/engine"
	"github.com/spaghettifunk/vkdemo/engine/core"
)

const configPath = "vkdemo.toml"

func main() {
	os.Exit(run())
}

func run() int {
	config, err := engine.LoadConfig(configPath)
	if err != nil {
		core.NewLogger(os.Stderr, core.LoggerOptions{Level: core.ErrorLevel}).Error("Failed to load config.", "err", err)
		return 1
	}
	logger := core.NewLogger(os.Stderr, core.LoggerOptions{
		Level:  config.Level(),
		Prefix: config.Name,
	})

	e, err := engine.New(config, logger)
	if err != nil {
		logger.Error("Failed to create engine.", "err", err)
		return 1
	}

	if err := e.Initialize(); err != nil {
		logger.Error("Failed to initialize engine.", "err", err)
		_ = e.Shutdown()
		return 1
	}

	// signal channel to capture system calls
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	defer signal.Stop(sigCh)

	go func() {
		// capture sigterm and other system call here
		sig, ok := <-sigCh
		if !ok {
			return
		}
		logger.Info("Signal received, shutting down.", "signal", sig.String())
		e.RequestQuit()
	}()

	code := 0
	if err := e.Run(); err != nil {
		logger.Error("Engine stopped.", "err", err)
		code = 1
	}
	if err := e.Shutdown(); err != nil {
		logger.Error("Shutdown failed.", "err", err)
		code = 1
	}
	return code
}
