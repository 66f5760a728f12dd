package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"zxpaint/internal/app"
	"zxpaint/internal/config"
	"zxpaint/internal/logging"
	"zxpaint/internal/render"
	"zxpaint/internal/session"
	"zxpaint/pkg/project"
	"zxpaint/pkg/scr"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "zxpaint failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", config.DefaultPath(), "path to config.toml")
	logLevel := flag.String("log-level", "", "debug, info, warn or error (overrides config)")
	pngOut := flag.String("png", "", "render the input file to this PNG and exit")
	scale := flag.Int("scale", 0, "PNG scale factor (default: view.scale from config)")
	border := flag.Bool("border", true, "include the border in PNG output")
	password := flag.String("password", "", "password for encrypted projects")
	inspect := flag.Bool("inspect", false, "print the block layout of a project file and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	level := cfg.Log.Level
	if *logLevel != "" {
		level = *logLevel
	}
	logging.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logging.ParseLevel(level)})))

	input := flag.Arg(0)
	if *inspect {
		if input == "" {
			return fmt.Errorf("-inspect needs a project file")
		}
		return inspectProject(input, *password)
	}
	if *pngOut != "" {
		if input == "" {
			return fmt.Errorf("-png needs an input file")
		}
		doc, err := session.Open(input, *password)
		if err != nil {
			return err
		}
		factor := *scale
		if factor <= 0 {
			factor = cfg.View.Scale
		}
		return session.ExportPNGFile(*pngOut, doc.Image, render.Options{Border: *border}, factor)
	}

	application := app.New(cfg)
	if input != "" {
		if err := application.Open(input); err != nil {
			return err
		}
	}
	return application.Run()
}

func inspectProject(path, password string) error {
	env, err := project.InspectEnvelope(path)
	if err != nil {
		return err
	}
	fmt.Printf("%s: wrapped=%v compressed=%v encrypted=%v\n", path, env.Wrapped, env.Compressed, env.Encrypted)
	p, err := project.LoadWithOptions(path, project.LoadOptions{Password: password})
	if err != nil {
		return err
	}
	info, err := project.InspectLayout(p)
	if err != nil {
		return err
	}
	d, err := scr.Lookup(p.Format)
	if err != nil {
		return err
	}
	fmt.Printf("format=%s layers=%d size=%d\n", d.Name, len(p.Layers), info.FileSize)
	for _, s := range info.Segments {
		fmt.Printf("%-18s %8d %8d\n", s.Name, s.Offset, s.Length)
	}
	return nil
}
