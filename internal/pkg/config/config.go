package config

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/sethvargo/go-envconfig"

	"github.com/medcore/hospital-gateway/internal/gateway"
)

type Config struct {
	Port     string `env:"PORT,      default=8080"`
	AuthPort string `env:"AUTH_PORT, default=8081"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	Auth     AuthConfig
	Mongo    MongoConfig
	Redis    RedisConfig
	Backends BackendConfig
	Edge     EdgeConfig
}

type AuthConfig struct {
	JWTSecret        string        `env:"JWT_SECRET, required"`
	JWTTTL           time.Duration `env:"JWT_TTL,            default=24h"`
	LoginMaxFailures int           `env:"LOGIN_MAX_FAILURES, default=5"`
	LoginLockout     time.Duration `env:"LOGIN_LOCKOUT,      default=15m"`
	AuditWorkers     int           `env:"AUDIT_WORKERS,      default=4"`

	BootstrapAdminUsername string `env:"BOOTSTRAP_ADMIN_USERNAME"`
	BootstrapAdminPassword string `env:"BOOTSTRAP_ADMIN_PASSWORD"`
	BootstrapAdminEmail    string `env:"BOOTSTRAP_ADMIN_EMAIL"`
}

type MongoConfig struct {
	URI            string        `env:"MONGO_URI,             default=mongodb://localhost:27017"`
	Database       string        `env:"MONGO_DB,              default=hospital"`
	AppName        string        `env:"MONGO_APP_NAME,        default=hospital-auth-service"`
	MaxPoolSize    uint64        `env:"MONGO_MAX_POOL_SIZE,   default=50"`
	ConnectTimeout time.Duration `env:"MONGO_CONNECT_TIMEOUT, default=10s"`
}

type RedisConfig struct {
	Addr     string        `env:"REDIS_ADDR,      default=localhost:6379"`
	Password string        `env:"REDIS_PASSWORD"`
	DB       int           `env:"REDIS_DB,        default=0"`
	PoolSize int           `env:"REDIS_POOL_SIZE, default=20"`
	Timeout  time.Duration `env:"REDIS_TIMEOUT,   default=5s"`
}

// BackendConfig holds the base URLs of the services behind the gateway.
type BackendConfig struct {
	UserService        string `env:"USER_SERVICE_URL,        default=http://localhost:8081"`
	PatientService     string `env:"PATIENT_SERVICE_URL,     default=http://localhost:8082"`
	AppointmentService string `env:"APPOINTMENT_SERVICE_URL, default=http://localhost:8083"`
	DepartmentService  string `env:"DEPARTMENT_SERVICE_URL,  default=http://localhost:8084"`
	MedicalService     string `env:"MEDICAL_SERVICE_URL,     default=http://localhost:8085"`
}

type EdgeConfig struct {
	UpstreamTimeout        time.Duration `env:"UPSTREAM_TIMEOUT,         default=30s"`
	RateLimitRPS           float64       `env:"RATE_LIMIT_RPS,           default=0"`
	AnonymousReadResources []string      `env:"ANONYMOUS_READ_RESOURCES, default=departments,beds"`
	CORSAllowedOrigins     []string      `env:"CORS_ALLOWED_ORIGINS,     default=*"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	return LoadWith(ctx, envconfig.OsLookuper())
}

// LoadWith reads configuration from l.
func LoadWith(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if len(cfg.Auth.JWTSecret) < 32 {
		return nil, fmt.Errorf("config: JWT_SECRET must be at least 32 bytes")
	}
	if cfg.Edge.UpstreamTimeout <= 0 {
		return nil, fmt.Errorf("config: UPSTREAM_TIMEOUT must be positive")
	}
	return &cfg, nil
}

// IsProduction reports whether ENV names a production deployment.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Bindings returns the gateway route bindings for the configured backends.
func (c *Config) Bindings() ([]gateway.Binding, error) {
	specs := []struct {
		name     string
		raw      string
		prefixes []string
	}{
		{"user-service", c.Backends.UserService, []string{"/api/auth", "/api/users"}},
		{"patient-service", c.Backends.PatientService, []string{"/api/patients"}},
		{"appointment-service", c.Backends.AppointmentService, []string{"/api/appointments"}},
		{"department-service", c.Backends.DepartmentService, []string{"/api/departments", "/api/beds"}},
		{"medical-service", c.Backends.MedicalService, []string{"/api/medical-records", "/api/prescriptions", "/api/lab-tests"}},
	}

	bindings := make([]gateway.Binding, 0, len(specs))
	for _, s := range specs {
		target, err := url.Parse(s.raw)
		if err != nil {
			return nil, fmt.Errorf("config: %s url: %w", s.name, err)
		}
		bindings = append(bindings, gateway.Binding{Name: s.name, Prefixes: s.prefixes, Target: target})
	}
	return bindings, nil
}
