package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	httpHdlr "alphogen/handler/http"
	"alphogen/src/auth"
	"alphogen/src/core/job"
	"alphogen/src/infrastructure/integrations/runpod"
	"alphogen/src/infrastructure/integrations/supabase"
	"alphogen/src/log"
	"alphogen/src/storage/memoryctrl"
	"alphogen/src/storage/minioctrl"
	"alphogen/src/storage/postgres/jobctrl"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the job API server",
	Long:  `The serve command starts the HTTP server that accepts job submissions and provider webhooks.`,
	Run:   RunServer,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	settingDefaultConfig()
}

func RunServer(cmd *cobra.Command, args []string) {
	if viper.GetString("log.mode") == "production" {
		if err := log.UseProductionConfig(); err != nil {
			log.Error(err, "Failed to switch to production logging")
		}
	}

	// Select the job store. Memory is the degraded single-process mode;
	// postgres is the durable one.
	var (
		repo  job.Repository
		sqlDB *gorm.DB
	)
	switch viper.GetString("storage.driver") {
	case "postgres":
		dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
			viper.GetString("postgres.host"),
			viper.GetString("postgres.user"),
			viper.GetString("postgres.password"),
			viper.GetString("postgres.db"),
			viper.GetString("postgres.port"))
		db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
		if err != nil {
			log.Error(err, "Failed to connect to database")
			return
		}
		pgRepo, err := jobctrl.NewRepository(db)
		if err != nil {
			log.Error(err, "Failed to initialize job repository")
			return
		}
		repo = pgRepo
		sqlDB = db
	case "memory":
		log.Info("Using in-memory job store; state is lost on restart")
		repo = memoryctrl.NewJobRepository()
	default:
		log.Error(nil, "Unknown storage driver", "driver", viper.GetString("storage.driver"))
		return
	}

	// Select the asset store
	var assets job.AssetStore
	switch viper.GetString("assets.driver") {
	case "minio":
		minioService, err := minioctrl.NewMinioService(
			viper.GetString("minio.endpoint"),
			viper.GetString("minio.access_key"),
			viper.GetString("minio.secret_key"),
			viper.GetString("minio.bucket"),
			viper.GetBool("minio.use_ssl"),
		)
		if err != nil {
			log.Error(err, "Failed to create MinIO client")
			return
		}
		if err := minioService.EnsureBucketExists(context.Background()); err != nil {
			log.Error(err, "Failed to ensure bucket exists")
			return
		}
		assets = minioService
	case "memory":
		log.Info("Using in-memory asset store; blobs are lost on restart")
		assets = memoryctrl.NewAssetStore()
	default:
		log.Error(nil, "Unknown assets driver", "driver", viper.GetString("assets.driver"))
		return
	}

	// Missing RunPod credentials are a supported no-op configuration,
	// not a startup failure.
	provider := runpod.NewClient(
		viper.GetString("runpod.base_url"),
		viper.GetString("runpod.api_key"),
		viper.GetString("runpod.endpoint_id"),
		nil,
	)

	identity := supabase.NewClient(
		viper.GetString("supabase.url"),
		viper.GetString("supabase.service_key"),
		nil,
	)
	validator := auth.NewValidator(viper.GetString("admin.token"), identity)

	jobService := job.NewService(repo, provider)
	reconciler := job.NewReconciler(repo, assets)

	handler, err := httpHdlr.NewHandler(jobService, reconciler, assets, validator, viper.GetString("webhook.secret"))
	if err != nil {
		log.Error(err, "Failed to initialize HTTP handler")
		return
	}

	// Setup gin router
	r := gin.Default()

	// Register routes
	handler.RegisterRoutes(r)

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + viper.GetString("server.port"),
		Handler: r,
	}

	// Start server in a goroutine
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error(err, "Failed to start server")
			return
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	// Parse shutdown timeout
	timeout, err := time.ParseDuration(viper.GetString("server.shutdown_timeout"))
	if err != nil {
		log.Error(err, "Invalid shutdown timeout, using default 5s")
		timeout = 5 * time.Second
	}

	// Create context with timeout for shutdown
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if sqlDB != nil {
		db, err := sqlDB.DB()
		if err != nil {
			log.Error(err, "Failed to get underlying *sql.DB")
		} else if err := db.Close(); err != nil {
			log.Error(err, "Error closing database connection")
		}
	}

	// Attempt graceful shutdown
	if err := srv.Shutdown(ctx); err != nil {
		log.Error(err, "Server forced to shutdown")
	}

	log.Info("Server exited")
}
