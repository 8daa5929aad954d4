package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/GrainArc/LULCSampler/config"
	"github.com/GrainArc/LULCSampler/logger"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configPath string
	addr       string
	verbose    bool

	cfg config.Config
	log *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "lulcsampler",
	Short: "Web tool for digitizing LULC training samples",
	Long: `lulcsampler serves a map client for tracing Land Use / Land Cover samples
over a basemap, tagging them with classes from a CSV catalog, and exporting
them as GeoJSON, Shapefile or DXF.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = resolveConfig(configPath)
		if err != nil {
			return err
		}
		if addr != "" {
			cfg.MainRouter = addr
		}
		log, err = logger.New(cfg.Log.Level, cfg.Log.Format, verbose)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			_ = log.Sync()
		}
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the digitizing web server",
	RunE:  runServe,
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Load and validate the class catalog, AOI and samples",
	RunE:  runCheck,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (.xml or .yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	serveCmd.Flags().StringVar(&addr, "addr", "", "listen address, overrides MainRouter")

	rootCmd.AddCommand(serveCmd, checkCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	if !verbose {
		gin.SetMode(gin.ReleaseMode)
	}

	a, err := newApp(cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              cfg.MainRouter,
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", cfg.MainRouter), zap.String("output", cfg.Download))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen %s: %w", cfg.MainRouter, err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func runCheck(cmd *cobra.Command, args []string) error {
	catalog, aoi, err := loadInputs(cfg, log)
	if err != nil {
		return err
	}

	fields := []zap.Field{zap.Int("classes", catalog.Len())}
	if aoi != nil {
		fields = append(fields, zap.Int("aoi_polygons", aoi.Count), zap.String("aoi_crs", aoi.CRS))
	}
	if cfg.Samples != "" {
		result, err := loadSamples(cfg, catalog, log)
		if err != nil {
			return fmt.Errorf("load samples: %w", err)
		}
		fields = append(fields, zap.Int("samples", result.Loaded), zap.Int("samples_unresolved", result.Unresolved))
	}
	log.Info("inputs ok", fields...)
	return nil
}
