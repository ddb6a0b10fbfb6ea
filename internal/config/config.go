package config // package config loads application configuration from environment variables

import (
    "log"     // log is used to report configuration errors and halt execution
    "os"      // os provides access to environment variables
    "strings"
    "time"
)

// Storage drivers accepted in STORAGE_DRIVER.
const (
    StorageMySQL  = "mysql"
    StorageMemory = "memory"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  Database settings are only required when
// StorageDriver is mysql.
type Config struct {
    Env           string // application environment (e.g. "dev", "prod")
    Port          string // HTTP port to listen on
    StorageDriver string // "mysql" or "memory"
    DBUser        string // database username
    DBPass        string // database password (optional)
    DBHost        string // database host address
    DBPort        string // database port number
    DBName        string // database name
    DBMigrate     bool   // apply the embedded schema on startup
    JWTSecret     string // secret used to verify bearer tokens
    AccessTTLMin  int    // lifetime of tokens minted by cmd/devtoken

    LogLevel  string // logrus level name
    LogFormat string // "json" or "text"

    HoldTTL           time.Duration // how long held seats stay reserved
    MaxSeatsPerHold   int           // upper bound of seats in one hold
    HoldSweepInterval time.Duration // how often lapsed holds are swept
    ShowCompleteAfter time.Duration // shows this long past their start are completed
    TimeZone          string        // zone show dates and times are expressed in

    RabbitMQURL    string // broker for booking.confirmed and show.cancelled
    BookingLogPath string // file the booking consumer appends to
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
    cfg := Config{
        Env:           envStr("APP_ENV", "dev"),
        Port:          envStr("APP_PORT", "8080"),
        StorageDriver: strings.ToLower(envStr("STORAGE_DRIVER", StorageMySQL)),
        DBPass:        os.Getenv("DB_PASS"), // empty allowed
        DBMigrate:     envBool("DB_MIGRATE", false),
        JWTSecret:     must("JWT_SECRET"),
        AccessTTLMin:  envInt("ACCESS_TOKEN_TTL_MIN", 60),

        LogLevel:  envStr("LOG_LEVEL", "info"),
        LogFormat: envStr("LOG_FORMAT", "text"),

        HoldTTL:           envDur("HOLD_TTL", 5*time.Minute),
        MaxSeatsPerHold:   envInt("MAX_SEATS_PER_HOLD", 10),
        HoldSweepInterval: envDur("HOLD_SWEEP_INTERVAL", 30*time.Second),
        ShowCompleteAfter: envDur("SHOW_COMPLETE_AFTER", 4*time.Hour),
        TimeZone:          envStr("APP_TIMEZONE", "UTC"),

        RabbitMQURL:    rabbitURL(),
        BookingLogPath: envStr("BOOKING_LOG_PATH", "logs/booking.log"),
    }
    switch cfg.StorageDriver {
    case StorageMySQL:
        cfg.DBUser = must("DB_USER")
        cfg.DBHost = must("DB_HOST")
        cfg.DBPort = must("DB_PORT")
        cfg.DBName = must("DB_NAME")
    case StorageMemory:
    default:
        log.Fatalf("invalid STORAGE_DRIVER: %q", cfg.StorageDriver)
    }
    if cfg.MaxSeatsPerHold < 1 {
        cfg.MaxSeatsPerHold = 1
    }
    return cfg
}

// Location resolves TimeZone, falling back to UTC.
func (c Config) Location() *time.Location {
    loc, err := time.LoadLocation(c.TimeZone)
    if err != nil {
        return time.UTC
    }
    return loc
}

// rabbitURL accepts RABBITMQ_URL or AMQP_URL; empty disables messaging.
func rabbitURL() string {
    if v := os.Getenv("RABBITMQ_URL"); v != "" {
        return v
    }
    return os.Getenv("AMQP_URL")
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
    v, ok := os.LookupEnv(key)
    if !ok || v == "" {
        log.Fatalf("missing required env var: %s", key)
    }
    return v
}
