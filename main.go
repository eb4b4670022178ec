package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/mdp/qrterminal/v3"
	"github.com/spf13/cobra"

	"github.com/qrstudio/qrstudio/api"
	"github.com/qrstudio/qrstudio/config"
	"github.com/qrstudio/qrstudio/preview"
	"github.com/qrstudio/qrstudio/store"
)

var version = "v0.1.0"

func main() {
	root := &cobra.Command{
		Use:   "qrstudio",
		Short: "Live QR-code studio with a web preview and PNG export",
	}

	// --- serve command -------------------------------------------------------
	var configPath string
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the studio web UI",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath)
		},
	}
	serveCmd.Flags().StringVarP(&configPath, "config", "c", "config.yaml", "Path to config file")
	root.AddCommand(serveCmd)

	// --- generate command ----------------------------------------------------
	var (
		genSize     int
		genLevel    string
		genFg       string
		genBg       string
		genOut      string
		genTerminal bool
	)
	genCmd := &cobra.Command{
		Use:   "generate [text]",
		Short: "Encode text into a QR code PNG without starting the server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(args[0], genSize, genLevel, genFg, genBg, genOut, genTerminal)
		},
	}
	genCmd.Flags().IntVar(&genSize, "size", 256, "Output size in pixels (64-1024)")
	genCmd.Flags().StringVar(&genLevel, "level", "medium", "Error correction: low, medium, quartile, high")
	genCmd.Flags().StringVar(&genFg, "fg", "#000000", "Foreground color")
	genCmd.Flags().StringVar(&genBg, "bg", "#ffffff", "Background color")
	genCmd.Flags().StringVar(&genOut, "out", "qrcode.png", "Output file path")
	genCmd.Flags().BoolVar(&genTerminal, "terminal", false, "Print the code to the terminal instead of writing a file")
	root.AddCommand(genCmd)

	// --- version command -----------------------------------------------------
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("qrstudio %s\n", version)
		},
	})

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// runServe is the main service entrypoint that wires all components together.
func runServe(configPath string) error {
	// 1. Load config
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := cfg.EnsureDataDir(); err != nil {
		return fmt.Errorf("ensure data dir: %w", err)
	}

	// 2. Setup logger
	var logLevel slog.Level
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(log)

	log.Info("starting qrstudio", "version", version, "port", cfg.Port, "data_dir", cfg.DataDir)

	// 3. Open export log
	dbPath := filepath.Join(cfg.DataDir, "exports.db")
	exports, err := store.OpenExportLog(dbPath)
	if err != nil {
		return fmt.Errorf("open export log: %w", err)
	}
	defer exports.Close()

	// 4. Create the preview controller and render the initial request.
	initial, err := requestFromDefaults(cfg.Defaults)
	if err != nil {
		return fmt.Errorf("config defaults: %w", err)
	}
	controller := preview.NewController(preview.NewQREncoder(), initial, log)
	controller.Refresh()

	// 5. Start HTTP server
	srv := &http.Server{
		Addr: fmt.Sprintf(":%d", cfg.Port),
		Handler: api.NewRouter(&api.Server{
			Controller: controller,
			Exports:    exports,
			Log:        log,
			Version:    version,
		}),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info("HTTP server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	log.Info("studio is running", "url", fmt.Sprintf("http://localhost:%d/", cfg.Port))

	// 6. Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down...")
	controller.Wait()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", "error", err)
	}

	log.Info("goodbye")
	return nil
}

// requestFromDefaults turns the configured default parameters into the
// initial encoding request.
func requestFromDefaults(d config.Defaults) (preview.Request, error) {
	lvl, err := preview.ParseLevel(d.Level)
	if err != nil {
		return preview.Request{}, err
	}
	return preview.Request{
		Payload:    d.Payload,
		Size:       d.Size,
		Foreground: d.Foreground,
		Background: d.Background,
		Level:      lvl,
	}.Normalized(), nil
}

// runGenerate performs a one-shot encode without the server.
func runGenerate(text string, size int, level, fg, bg, out string, terminal bool) error {
	lvl, err := preview.ParseLevel(level)
	if err != nil {
		return err
	}

	if terminal {
		// qrterminal only knows three levels; quartile rounds up.
		termLevel := qrterminal.M
		switch lvl {
		case preview.LevelLow:
			termLevel = qrterminal.L
		case preview.LevelQuartile, preview.LevelHigh:
			termLevel = qrterminal.H
		}
		qrterminal.GenerateWithConfig(text, qrterminal.Config{
			Level:     termLevel,
			Writer:    os.Stdout,
			BlackChar: qrterminal.BLACK,
			WhiteChar: qrterminal.WHITE,
			QuietZone: 1,
		})
		return nil
	}

	req := preview.Request{
		Payload:    text,
		Size:       size,
		Foreground: fg,
		Background: bg,
		Level:      lvl,
	}.Normalized()

	controller := preview.NewController(preview.NewQREncoder(), req, slog.Default())
	controller.Refresh()
	controller.Wait()

	data, err := controller.ExportPNG()
	if err != nil {
		return fmt.Errorf("encode failed: %w", err)
	}

	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}

	fmt.Printf("wrote %s (%d bytes, %dx%d, level %s)\n", out, len(data), req.Size, req.Size, req.Level)
	return nil
}
