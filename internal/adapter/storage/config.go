package storage

// Config holds the settings shared by every storage backend.
// Fields irrelevant to a backend are ignored.
type Config struct {
	// Type selects the backend: "gcs", "local" or "memory".
	Type string `yaml:"type"`
	// BucketName is the default bucket used when an operation passes an empty bucket.
	BucketName string `yaml:"bucket_name"`
	// BaseDir is the root directory of the local backend. Buckets are sub-directories.
	BaseDir string `yaml:"base_dir"`
	// Endpoint overrides the GCS JSON API endpoint, e.g. an emulator at
	// "http://localhost:4443/storage/v1/". Requests to it are unauthenticated.
	Endpoint string `yaml:"endpoint"`
	// CredentialsFile is a service account key for the GCS backend. Empty uses
	// Application Default Credentials.
	CredentialsFile string `yaml:"credentials_file"`
}
