package persistcore

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/syssam/persistcore/internal/humanduration"
)

// Config holds spec.md §6's recognized configuration properties: the
// database connection, pool size, the data-horizon interval, and the
// symmetric-encryption key material for encrypted fields.
//
// Grounded on the teacher's compiler/gen functional-options Config
// (compiler/gen/option.go): a struct plus an Option slice, rather than a
// single constructor with many positional parameters.
type Config struct {
	// DriverName is a database/sql driver name (dialect.MySQL,
	// dialect.SQLite, dialect.Postgres, or a blank-imported Oracle/SQL
	// Server driver name — those families are interface-only per
	// spec.md §1, so SchemaBinder will fail to open an inspector for
	// them, but Loader/Saver/Deleter/ExclusiveAllocator work against any
	// dialect.Driver regardless).
	DriverName string
	// DataSourceName is the driver-specific connection string.
	DataSourceName string
	// PoolSize bounds the number of open connections; 0 leaves
	// database/sql's default in place.
	PoolSize int

	// DataHorizonPeriod is spec.md §6's dataHorizonPeriod grammar,
	// already parsed.
	DataHorizonPeriod humanduration.Period

	// CryptPassword/CryptSalt are spec.md §6's symmetric key material for
	// encrypted fields. An empty CryptPassword means encrypted fields
	// fall back to plaintext storage with a one-time CryptoWarning.
	CryptPassword string
	CryptSalt     string

	// Logger receives warnings the Controller emits outside the scope of
	// any one Object (crypto fallback). Defaults to
	// a log/slog-backed Logger if nil.
	Logger Logger

	// SlowQueryThreshold is forwarded to dialect/sql.WithSlowThreshold on
	// the statistics-collecting Driver every Controller opens; queries
	// and execs taking longer than this are counted and logged. Zero
	// keeps dialect/sql's own default (100ms).
	SlowQueryThreshold time.Duration
}

// Option configures a Config, in the teacher's compiler/gen functional-
// options idiom (compiler/gen/option.go's `type Option func(*Config) error`).
type Option func(*Config) error

// WithDSN sets the driver name and connection string.
func WithDSN(driverName, dataSourceName string) Option {
	return func(c *Config) error {
		if driverName == "" {
			return NewConfigurationError("DriverName", "must not be empty")
		}
		if dataSourceName == "" {
			return NewConfigurationError("DataSourceName", "must not be empty")
		}
		c.DriverName = driverName
		c.DataSourceName = dataSourceName
		return nil
	}
}

// WithPoolSize sets the maximum number of open connections.
func WithPoolSize(n int) Option {
	return func(c *Config) error {
		if n < 0 {
			return NewConfigurationError("PoolSize", "must not be negative")
		}
		c.PoolSize = n
		return nil
	}
}

// WithDataHorizonPeriod parses spec.md §6's dataHorizonPeriod grammar
// (e.g. "1M", "1h", "30d", "500ms") and sets it on the Config.
func WithDataHorizonPeriod(s string) Option {
	return func(c *Config) error {
		p, err := humanduration.Parse(s)
		if err != nil {
			return NewConfigurationError("dataHorizonPeriod", err.Error())
		}
		c.DataHorizonPeriod = p
		return nil
	}
}

// WithCrypt sets the symmetric-encryption key material for encrypted
// fields (spec.md §6's cryptPassword/cryptSalt).
func WithCrypt(password, salt string) Option {
	return func(c *Config) error {
		c.CryptPassword = password
		c.CryptSalt = salt
		return nil
	}
}

// WithLogger overrides the default Logger.
func WithLogger(l Logger) Option {
	return func(c *Config) error {
		c.Logger = l
		return nil
	}
}

// WithSlowQueryThreshold sets the duration above which a query or exec is
// counted and logged as slow (dialect/sql.WithSlowThreshold).
func WithSlowQueryThreshold(d time.Duration) Option {
	return func(c *Config) error {
		if d < 0 {
			return NewConfigurationError("SlowQueryThreshold", "must not be negative")
		}
		c.SlowQueryThreshold = d
		return nil
	}
}

// NewConfig builds a Config from a sequence of Options, applied in order.
func NewConfig(opts ...Option) (*Config, error) {
	c := &Config{}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	if c.DriverName == "" || c.DataSourceName == "" {
		return nil, NewConfigurationError("DataSourceName", "WithDSN is required")
	}
	return c, nil
}

// yamlConfig is the on-disk shape FromYAML decodes, matching spec.md §6's
// recognized property names.
type yamlConfig struct {
	Driver            string `yaml:"driver"`
	DataSourceName    string `yaml:"dataSourceName"`
	PoolSize          int    `yaml:"poolSize"`
	DataHorizonPeriod string `yaml:"dataHorizonPeriod"`
	CryptPassword     string `yaml:"cryptPassword"`
	CryptSalt         string `yaml:"cryptSalt"`
}

// FromYAML loads a Config from a YAML property file (spec.md §6: "property-
// file loading" is named as an external collaborator concern for the file
// format itself, but the recognized property *names* are part of this
// spec; parsing them here is the natural place, grounded on the teacher's
// gopkg.in/yaml.v3 dependency).
func FromYAML(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, NewConfigurationError("path", err.Error())
	}
	var y yamlConfig
	if err := yaml.Unmarshal(raw, &y); err != nil {
		return nil, NewConfigurationError("path", fmt.Sprintf("invalid YAML: %v", err))
	}
	opts := []Option{WithDSN(y.Driver, y.DataSourceName)}
	if y.PoolSize > 0 {
		opts = append(opts, WithPoolSize(y.PoolSize))
	}
	if y.DataHorizonPeriod != "" {
		opts = append(opts, WithDataHorizonPeriod(y.DataHorizonPeriod))
	}
	if y.CryptPassword != "" {
		opts = append(opts, WithCrypt(y.CryptPassword, y.CryptSalt))
	}
	return NewConfig(opts...)
}
