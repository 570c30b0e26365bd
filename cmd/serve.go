package cmd

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fourshot/wigglegram/internal/ingest"
	"github.com/fourshot/wigglegram/internal/pipeline"
	"github.com/fourshot/wigglegram/internal/server"
	"github.com/fourshot/wigglegram/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start HTTP server for capture ingestion and animation builds",
	Long: `Start an HTTP server that builds wigglegrams.

The server accepts a complete four-frame set in one request for a synchronous
build, or individual per-device captures that are grouped within a time
window and built once all four devices have reported. Finished animations and
their JSON build records are written to the output directory.

Examples:
  # Start server on default port 8080
  wigglegram serve

  # Custom bind address and output directory
  wigglegram serve --bind 0.0.0.0 --port 8080 --output-dir /var/lib/wigglegram`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	// Server configuration
	serveCmd.Flags().StringP("bind", "b", "localhost", "bind address")
	serveCmd.Flags().IntP("port", "p", 8080, "port to listen on")
	serveCmd.Flags().Duration("timeout", 30*time.Second, "request timeout")
	serveCmd.Flags().Duration("group-window", ingest.DefaultWindow, "how long a partial capture group stays open")
	serveCmd.Flags().String("output-dir", "wigglegrams", "directory for finished animations and build records")

	// Bind flags to viper
	viper.BindPFlag("server.bind", serveCmd.Flags().Lookup("bind"))
	viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	viper.BindPFlag("server.timeout", serveCmd.Flags().Lookup("timeout"))
	viper.BindPFlag("server.group-window", serveCmd.Flags().Lookup("group-window"))
	viper.BindPFlag("server.output-dir", serveCmd.Flags().Lookup("output-dir"))
}

func runServe(cmd *cobra.Command, args []string) error {
	bind := viper.GetString("server.bind")
	port := viper.GetInt("server.port")
	timeout := viper.GetDuration("server.timeout")

	addr := fmt.Sprintf("%s:%d", bind, port)
	cfg := pipelineConfig()

	logger := slog.Default()
	st := store.New(viper.GetString("server.output-dir"), logger)

	collector := ingest.NewCollector(cfg, viper.GetDuration("server.group-window"),
		pipeline.Build, persistResult(st, logger), logger)

	// Create Chi router
	r := chi.NewRouter()

	// Add middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(timeout))

	// Create server implementation
	apiServer := server.NewServer("1.0.0", cfg, collector)

	// Mount API routes at /api/v1
	r.Mount("/api/v1", apiServer.Routes())

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		fmt.Fprintf(cmd.ErrOrStderr(), "\nShutting down server...\n")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(ctx); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	fmt.Fprintf(cmd.ErrOrStderr(), "Starting wigglegram server on %s\n", addr)
	fmt.Fprintf(cmd.ErrOrStderr(), "Health check: http://%s/api/v1/health\n", addr)
	fmt.Fprintf(cmd.ErrOrStderr(), "Build endpoint: http://%s/api/v1/wigglegram\n", addr)
	fmt.Fprintf(cmd.ErrOrStderr(), "Capture endpoint: http://%s/api/v1/captures/{device}\n", addr)

	if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("server error: %v", err)
	}

	return nil
}

// persistResult saves each asynchronous build (or its failure) to the store.
func persistResult(st *store.Store, logger *slog.Logger) ingest.ResultFunc {
	return func(res *pipeline.Result, err error) {
		base := time.Now().UTC().Format("wigglegram-20060102-150405")
		rec := store.Record{CreatedAt: time.Now().UTC()}

		if err != nil {
			rec.Error = err.Error()
		} else {
			path, saveErr := st.SaveAnimation(base, res.GIF)
			if saveErr != nil {
				logger.Error("failed to save animation", "error", saveErr)
				return
			}
			rec.Output = path
			rec.Width = res.Width
			rec.Height = res.Height
			rec.Frames = pipeline.FrameCount
			rec.Offsets = res.Offsets
		}

		if _, saveErr := st.SaveRecord(base, rec); saveErr != nil {
			logger.Error("failed to save build record", "error", saveErr)
		}
	}
}
