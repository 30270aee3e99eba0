package config

import (
	"os"      // For environment variables
	"strconv" // For string to int conversion
	"strings" // For driver name normalisation
	"time"    // For durations

	"github.com/joho/godotenv" // For loading .env files
)

// Config holds the application configuration
type Config struct {
	AppPort     string        // Application port
	DBDriver    string        // Database driver: mysql, postgres or sqlite
	DBDSN       string        // Full DSN, overrides the assembled one when set
	DBUser      string        // Database user
	DBPassword  string        // Database password
	DBHost      string        // Database host
	DBPort      string        // Database port
	DBName      string        // Database name
	JWTSecret   string        // JWT secret key
	JWTTTL      time.Duration // Access token lifetime
	RedisAddr   string        // Redis server address, empty disables caching
	RedisPass   string        // Redis password
	RedisDB     int           // Redis database number
	CacheTTL    time.Duration // Cached response lifetime
	SMTPHost    string        // SMTP host, empty logs mail instead of sending it
	SMTPPort    string        // SMTP port
	SMTPUser    string        // SMTP user
	SMTPPass    string        // SMTP password
	SMTPTimeout time.Duration // Limit on one SMTP conversation
	MailFrom    string        // Sender address for outgoing mail
	PageSize    int           // Default page size for list endpoints
	IsProd      bool          // Is production environment
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	_ = godotenv.Load() // Load .env file if present
	return &Config{
		AppPort:     getEnv("APP_PORT", "8000"),
		DBDriver:    NormalizeDriver(getEnv("DB_DRIVER", "mysql")),
		DBDSN:       os.Getenv("DB_DSN"),
		DBUser:      os.Getenv("DB_USER"),
		DBPassword:  os.Getenv("DB_PASSWORD"),
		DBHost:      getEnv("DB_HOST", "127.0.0.1"),
		DBPort:      os.Getenv("DB_PORT"),
		DBName:      getEnv("DB_NAME", "yamdb"),
		JWTSecret:   os.Getenv("JWT_SECRET"),
		JWTTTL:      getDuration("JWT_TTL", 24*time.Hour),
		RedisAddr:   os.Getenv("REDIS_ADDR"),
		RedisPass:   os.Getenv("REDIS_PASS"),
		RedisDB:     getInt("REDIS_DB", 0),
		CacheTTL:    getDuration("CACHE_TTL", 60*time.Second),
		SMTPHost:    os.Getenv("SMTP_HOST"),
		SMTPPort:    getEnv("SMTP_PORT", "587"),
		SMTPUser:    os.Getenv("SMTP_USER"),
		SMTPPass:    os.Getenv("SMTP_PASS"),
		SMTPTimeout: getDuration("SMTP_TIMEOUT", 15*time.Second),
		MailFrom:    getEnv("MAIL_FROM", "noreply@yamdb.local"),
		PageSize:    getInt("PAGE_SIZE", 10),
		IsProd:      os.Getenv("IS_PROD") == "true", // Is production environment
	}
}

// NormalizeDriver maps driver aliases onto the names DSN and db.Open switch on
func NormalizeDriver(name string) string {
	switch name = strings.ToLower(strings.TrimSpace(name)); name {
	case "":
		return "mysql"
	case "postgresql":
		return "postgres"
	}
	return name
}

// DSN builds the data source name for the configured driver
func (c *Config) DSN() string {
	if c.DBDSN != "" {
		return c.DBDSN
	}
	switch c.DBDriver {
	case "postgres":
		port := c.DBPort
		if port == "" {
			port = "5432"
		}
		return "host=" + c.DBHost + " user=" + c.DBUser + " password=" + c.DBPassword +
			" dbname=" + c.DBName + " port=" + port + " sslmode=disable"
	case "sqlite":
		return c.DBName + ".db"
	default:
		port := c.DBPort
		if port == "" {
			port = "3306"
		}
		return c.DBUser + ":" + c.DBPassword + "@tcp(" + c.DBHost + ":" + port + ")/" + c.DBName + "?charset=utf8mb4&parseTime=true"
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return def
	}
	return v
}

func getDuration(key string, def time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil || v <= 0 {
		return def
	}
	return v
}
