package config

import (
	"fmt"
	"time"
)

// Lock modes for ledger writes.
const (
	LockModeOptimistic  = "optimistic"
	LockModePessimistic = "pessimistic"
)

type DB struct {
	Driver       string `envconfig:"DRIVER" default:"postgres"`
	Url          string `envconfig:"URL"`
	AutoMigrate  bool   `envconfig:"AUTO_MIGRATE" default:"false"`
	MaxOpenConns int    `envconfig:"MAX_OPEN_CONNS" default:"25"`
}

type Jwt struct {
	Secret string        `envconfig:"SECRET" required:"true"`
	Expiry time.Duration `envconfig:"EXPIRY" default:"24h"`
	Issuer string        `envconfig:"ISSUER" default:"mileage"`
}

type Auth struct {
	Jwt *Jwt `envconfig:"JWT"`
}

// Redis configures the Redis Streams event bus. An empty URL selects the in-memory bus.
type Redis struct {
	URL          string        `envconfig:"URL"`
	Stream       string        `envconfig:"STREAM" default:"mileage.transactions"`
	Group        string        `envconfig:"GROUP" default:"mileage-ledger"`
	DialTimeout  time.Duration `envconfig:"DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"WRITE_TIMEOUT" default:"3s"`
}

type RateLimit struct {
	MaxRequests int           `envconfig:"MAX_REQUESTS" default:"100"`
	Window      time.Duration `envconfig:"WINDOW" default:"1m"`
}

// Ledger tunes write concurrency handling and read paging.
type Ledger struct {
	LockMode        string        `envconfig:"LOCK_MODE" default:"optimistic"`
	RetryMax        int           `envconfig:"RETRY_MAX" default:"5"`
	RetryDelay      time.Duration `envconfig:"RETRY_DELAY" default:"10ms"`
	RetryMaxDelay   time.Duration `envconfig:"RETRY_MAX_DELAY" default:"250ms"`
	DefaultPageSize int           `envconfig:"DEFAULT_PAGE_SIZE" default:"50"`
	MaxPageSize     int           `envconfig:"MAX_PAGE_SIZE" default:"500"`
}

// Pessimistic reports whether writes take a row lock before mutating.
func (l *Ledger) Pessimistic() bool {
	return l.LockMode == LockModePessimistic
}

func (l *Ledger) validate() error {
	switch l.LockMode {
	case LockModeOptimistic, LockModePessimistic:
	default:
		return fmt.Errorf("LEDGER_LOCK_MODE must be %q or %q, got %q",
			LockModeOptimistic, LockModePessimistic, l.LockMode)
	}
	if l.RetryMax < 0 {
		return fmt.Errorf("LEDGER_RETRY_MAX must not be negative, got %d", l.RetryMax)
	}
	if l.DefaultPageSize <= 0 || l.MaxPageSize < l.DefaultPageSize {
		return fmt.Errorf("LEDGER page sizes invalid: default %d, max %d", l.DefaultPageSize, l.MaxPageSize)
	}
	return nil
}

type Log struct {
	Level      int    `envconfig:"LEVEL" default:"0"`
	Format     string `envconfig:"FORMAT" default:"text"`
	TimeFormat string `envconfig:"TIME_FORMAT" default:"2006-01-02 15:04:05"`
	Prefix     string `envconfig:"PREFIX" default:"[mileage]"`
}

type Server struct {
	Scheme string `envconfig:"SCHEME" default:"http"`
	Host   string `envconfig:"HOST" default:"localhost"`
	Port   int    `envconfig:"PORT" default:"3000"`
}

// Addr is the host:port the HTTP server listens on.
func (s *Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type App struct {
	Env       string     `envconfig:"APP_ENV" default:"development"`
	Server    *Server    `envconfig:"SERVER"`
	Log       *Log       `envconfig:"LOG"`
	DB        *DB        `envconfig:"DATABASE"`
	Auth      *Auth      `envconfig:"AUTH"`
	Redis     *Redis     `envconfig:"REDIS"`
	RateLimit *RateLimit `envconfig:"RATE_LIMIT"`
	Ledger    *Ledger    `envconfig:"LEDGER"`
}
