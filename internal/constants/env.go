// Package constants provides centralized definitions of constants used throughout the application
package constants

// Environment variable names
const (
	// EnvDBHost is the environment variable for the job database host
	EnvDBHost = "CUTOUTS_DB_HOST"
	// EnvDBPort is the environment variable for the job database port
	EnvDBPort = "CUTOUTS_DB_PORT"
	// EnvDBUser is the environment variable for the job database user
	EnvDBUser = "CUTOUTS_DB_USER"
	// EnvDBPassword is the environment variable for the job database password
	EnvDBPassword = "CUTOUTS_DB_PASSWORD"
	// EnvDBName is the environment variable for the job database name
	EnvDBName = "CUTOUTS_DB_NAME"

	// EnvRedisAddr is the environment variable for the work queue Redis address
	EnvRedisAddr = "CUTOUTS_REDIS_ADDR"
	// EnvRedisPassword is the environment variable for the work queue Redis password
	EnvRedisPassword = "CUTOUTS_REDIS_PASSWORD"

	// EnvStorageBucket is the environment variable for the result storage bucket
	EnvStorageBucket = "CUTOUTS_STORAGE_BUCKET"
	// EnvStorageRegion is the environment variable for the result storage region
	EnvStorageRegion = "CUTOUTS_STORAGE_REGION"
	// EnvStorageEndpoint is the environment variable for an S3-compatible storage endpoint
	EnvStorageEndpoint = "CUTOUTS_STORAGE_ENDPOINT"
	// EnvStorageAccessKey is the environment variable for the storage access key ID
	EnvStorageAccessKey = "CUTOUTS_STORAGE_ACCESS_KEY"
	// EnvStorageSecretKey is the environment variable for the storage secret access key
	EnvStorageSecretKey = "CUTOUTS_STORAGE_SECRET_KEY"

	// EnvSentryDSN is the environment variable for the failure notification DSN
	EnvSentryDSN = "CUTOUTS_SENTRY_DSN"

	// EnvListenAddr is the environment variable for the API listen address
	EnvListenAddr = "CUTOUTS_LISTEN_ADDR"

	// EnvWorkerTasks is the environment variable for concurrent tasks per worker process
	EnvWorkerTasks = "CUTOUTS_WORKER_TASKS"

	// EnvDataRepositoryURL is the environment variable for the data-repository service URL
	EnvDataRepositoryURL = "CUTOUTS_DATA_REPOSITORY_URL"

	// EnvComputeURL is the environment variable for the cutout compute service URL
	EnvComputeURL = "CUTOUTS_COMPUTE_URL"
)
