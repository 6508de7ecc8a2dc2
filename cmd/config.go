package cmd

import "github.com/spf13/viper"

func settingDefaultConfig() {
	// Enable automatic environment variable binding
	viper.AutomaticEnv()

	// Server
	viper.BindEnv("server.port", "PORT")
	viper.BindEnv("server.shutdown_timeout", "SERVER_SHUTDOWN_TIMEOUT")
	viper.BindEnv("log.mode", "LOG_MODE")
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.shutdown_timeout", "5s")
	viper.SetDefault("log.mode", "development")

	// Secrets
	viper.BindEnv("admin.token", "ADMIN_TOKEN")
	viper.BindEnv("webhook.secret", "WEBHOOK_SECRET")

	// Identity provider
	viper.BindEnv("supabase.url", "SUPABASE_URL")
	viper.BindEnv("supabase.service_key", "SUPABASE_SERVICE_KEY")

	// Inference provider; absence of credentials selects no-op mode
	viper.BindEnv("runpod.base_url", "RUNPOD_BASE_URL")
	viper.BindEnv("runpod.api_key", "RUNPOD_API_KEY")
	viper.BindEnv("runpod.endpoint_id", "RUNPOD_ENDPOINT_ID")

	// Job store driver: postgres or memory
	viper.BindEnv("storage.driver", "STORAGE_DRIVER")
	viper.SetDefault("storage.driver", "memory")

	viper.BindEnv("postgres.host", "POSTGRES_HOST")
	viper.BindEnv("postgres.port", "POSTGRES_PORT")
	viper.BindEnv("postgres.user", "POSTGRES_USER")
	viper.BindEnv("postgres.password", "POSTGRES_PASSWORD")
	viper.BindEnv("postgres.db", "POSTGRES_DB")
	viper.SetDefault("postgres.host", "localhost")
	viper.SetDefault("postgres.port", "5432")
	viper.SetDefault("postgres.user", "postgres")
	viper.SetDefault("postgres.password", "postgres")
	viper.SetDefault("postgres.db", "alphogen")

	// Asset store driver: minio or memory
	viper.BindEnv("assets.driver", "ASSETS_DRIVER")
	viper.SetDefault("assets.driver", "memory")

	viper.BindEnv("minio.endpoint", "MINIO_ENDPOINT")
	viper.BindEnv("minio.access_key", "MINIO_ACCESS_KEY")
	viper.BindEnv("minio.secret_key", "MINIO_SECRET_KEY")
	viper.BindEnv("minio.bucket", "MINIO_BUCKET")
	viper.BindEnv("minio.use_ssl", "MINIO_USE_SSL")
	viper.SetDefault("minio.endpoint", "localhost:9000")
	viper.SetDefault("minio.access_key", "minioadmin")
	viper.SetDefault("minio.secret_key", "minioadmin")
	viper.SetDefault("minio.bucket", "results")
	viper.SetDefault("minio.use_ssl", false)
}
