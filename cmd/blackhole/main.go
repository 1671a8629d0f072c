package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/pflag"

	blackhole "github.com/sbaumohl/vulkan-blackhole"
)

func init() {
	// glfw and the frame loop must stay on the main OS thread.
	runtime.LockOSThread()
}

func main() {
	flags := pflag.NewFlagSet("blackhole", pflag.ExitOnError)
	configPath := flags.StringP("config", "c", "", "TOML config file")
	width := flags.Int("width", 0, "window width in pixels")
	height := flags.Int("height", 0, "window height in pixels")
	frames := flags.IntP("frames", "f", 0, "frames in flight")
	validation := flags.Bool("validation", false, "enable the Vulkan validation layers")
	maxFrames := flags.Uint64("max-frames", 0, "exit after this many frames, 0 for no limit")
	title := flags.String("title", "", "window title")
	logFile := flags.String("log-file", "", "also append log lines to this file")
	flags.Parse(os.Args[1:])

	cfg := blackhole.DefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = blackhole.LoadConfig(*configPath); err != nil {
			blackhole.Fatal(err)
		}
	}
	if flags.Changed("width") {
		cfg.Width = *width
	}
	if flags.Changed("height") {
		cfg.Height = *height
	}
	if flags.Changed("frames") {
		cfg.FramesInFlight = *frames
	}
	if flags.Changed("validation") {
		cfg.Validation = *validation
	}
	if flags.Changed("max-frames") {
		cfg.MaxFrames = *maxFrames
	}
	if flags.Changed("title") {
		cfg.Title = *title
	}
	if flags.Changed("log-file") {
		cfg.LogFile = *logFile
	}
	if err := cfg.Validate(); err != nil {
		blackhole.Fatal(err)
	}

	log := blackhole.NewLogger(os.Stderr)
	if cfg.LogFile != "" {
		l, err := blackhole.NewFileLogger(cfg.LogFile)
		if err != nil {
			blackhole.Fatal(err)
		}
		log = l
	}

	engine, err := blackhole.NewEngine(cfg, log)
	if err != nil {
		blackhole.Fatal(err, func() { log.Close() })
	}
	if err := engine.Run(); err != nil {
		log.Errorf("%v", err)
		blackhole.Fatal(err, engine.Destroy, func() { log.Close() })
	}
	engine.Destroy()
	stats := engine.Stats()
	fmt.Fprintf(os.Stdout, "%d frames presented, %d swapchain recreations\n", stats.Presented, stats.Recreated)
	log.Close()
}
