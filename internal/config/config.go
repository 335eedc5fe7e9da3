package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
	"time"    // time parses the policy durations
)

// Config holds all runtime configuration values.  Each field corresponds
// to an environment variable.  The booking policy knobs (hold TTL,
// cancellation cutoff, sweep cadence) live here so the reservation
// ledger, the cancellation handler and the reconciler all read the same
// values instead of duplicating literals.
type Config struct {
	Env            string        // application environment (e.g. "dev", "prod")
	Port           string        // HTTP port to listen on
	DBUser         string        // database username
	DBPass         string        // database password (optional)
	DBHost         string        // database host address
	DBPort         string        // database port number
	DBName         string        // database name
	JWTSecret      string        // secret used to sign JWTs
	AccessTTLMin   int           // access token time-to-live in minutes
	BcryptCost     int           // bcrypt cost for password hashing
	ReservationTTL time.Duration // how long a pending order holds its seats
	CancelCutoff   time.Duration // minimum gap before show start for user cancellation
	SweepInterval  time.Duration // cadence of the expiration reconciler
}

// Load reads configuration values from environment variables and returns
// a Config.  Required variables are enforced by must() and missing
// values cause the program to exit with a fatal log message.  The policy
// durations default to a 5 minute hold, a 30 minute pre-show cutoff and
// an hourly sweep.
func Load() Config {
	return Config{
		Env:            must("APP_ENV"),
		Port:           must("APP_PORT"),
		DBUser:         must("DB_USER"),
		DBPass:         os.Getenv("DB_PASS"), // empty allowed
		DBHost:         must("DB_HOST"),
		DBPort:         must("DB_PORT"),
		DBName:         must("DB_NAME"),
		JWTSecret:      must("JWT_SECRET"),
		AccessTTLMin:   mustInt("ACCESS_TOKEN_TTL_MIN"),
		BcryptCost:     mustInt("BCRYPT_COST"),
		ReservationTTL: envDur("RESERVATION_TTL", 5*time.Minute),
		CancelCutoff:   envDur("CANCEL_CUTOFF", 30*time.Minute),
		SweepInterval:  envDur("SWEEP_INTERVAL", time.Hour),
	}
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

// mustInt is like must() but converts the retrieved string into an integer.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}

// envDur reads an optional duration variable, falling back to the given
// default when unset or unparseable.
func envDur(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
