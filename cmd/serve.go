package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/blockshq/floortiler/internal/annotate"
	"github.com/blockshq/floortiler/internal/config"
	"github.com/blockshq/floortiler/internal/jobs"
	"github.com/blockshq/floortiler/internal/pdf"
	"github.com/blockshq/floortiler/internal/server"
	"github.com/blockshq/floortiler/internal/storage"
	"github.com/blockshq/floortiler/internal/tiler"
)

const version = "1.0.0"

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start HTTP server for the floor plan tiling API",
	Long: `Start an HTTP server that rasterizes floor plan PDFs into tile
pyramids and burns annotations back into the source documents.

Examples:
  # Start server on default port 8080
  floortiler serve

  # Start server on custom port with a dedicated data directory
  floortiler serve --port 3000 --data /var/lib/floortiler`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	// Server configuration
	serveCmd.Flags().StringP("bind", "b", "localhost", "bind address")
	serveCmd.Flags().IntP("port", "p", 8080, "port to listen on")
	serveCmd.Flags().Duration("timeout", 30*time.Second, "request timeout")
	serveCmd.Flags().String("data", "data", "directory for stored tile sets")

	// Bind flags to viper
	viper.BindPFlag("server.bind", serveCmd.Flags().Lookup("bind"))
	viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	viper.BindPFlag("server.timeout", serveCmd.Flags().Lookup("timeout"))
	viper.BindPFlag("server.data", serveCmd.Flags().Lookup("data"))
}

func runServe(cmd *cobra.Command, args []string) error {
	log := newLogger()

	cfg, err := config.LoadTiling(viper.GetViper(), log)
	if err != nil {
		return err
	}

	bind := viper.GetString("server.bind")
	port := viper.GetInt("server.port")
	timeout := viper.GetDuration("server.timeout")

	addr := fmt.Sprintf("%s:%d", bind, port)

	store, err := storage.NewFileStore(viper.GetString("server.data"))
	if err != nil {
		return err
	}

	renderer := pdf.NewRenderer(log)
	pipeline := tiler.NewPipeline(renderer, store, cfg, log)
	detector := annotate.NewDetector(renderer, cfg.MaxDimension, log)
	annotator := annotate.NewService(store, detector, log)
	apiServer := server.New(pipeline, annotator, jobs.NewRegistry(), store, log, version)

	// Create Chi router
	r := chi.NewRouter()

	// Add middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)

	// CORS middleware for API access
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-API-Key")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	})

	// Mount API routes at /api/v1
	r.Route("/api/v1", func(r chi.Router) {
		apiServer.Routes(r)
	})

	httpServer := &http.Server{
		Addr:        addr,
		Handler:     r,
		ReadTimeout: timeout,
		// Tiling jobs stream large artifacts; cap writes generously.
		WriteTimeout: 5 * time.Minute,
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
			log.WithError(err).Error("server shutdown")
		}
	}()

	fmt.Fprintf(cmd.ErrOrStderr(), "Starting floortiler server on %s\n", addr)
	fmt.Fprintf(cmd.ErrOrStderr(), "Health check: http://%s/api/v1/health\n", addr)
	fmt.Fprintf(cmd.ErrOrStderr(), "Process endpoint: http://%s/api/v1/floorplans\n", addr)

	if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("server error: %v", err)
	}

	return nil
}
