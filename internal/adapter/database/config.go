package database

// Config holds the connection settings for every supported database type.
type Config struct {
	// Type selects the dialect: "postgres", "mysql" or "sqlite".
	Type     string `yaml:"type"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Sslmode  string `yaml:"sslmode"`
	// InstanceConnectionName ("project:region:instance") connects to Cloud SQL
	// through the Cloud SQL connector instead of Host/Port.
	InstanceConnectionName string `yaml:"instance_connection_name"`
	// PrivateIP makes the Cloud SQL connector dial the instance's private IP.
	PrivateIP bool `yaml:"private_ip"`
	// LogLevel controls GORM's SQL logging: SILENT, ERROR, WARN or INFO.
	LogLevel string     `yaml:"log_level"`
	Pool     PoolConfig `yaml:"pool"`
}

// PoolConfig holds connection pool settings.
type PoolConfig struct {
	MaxOpenConns           int `yaml:"max_open_conns"`
	MaxIdleConns           int `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int `yaml:"conn_max_lifetime_minutes"`
}
