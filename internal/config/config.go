// Package config loads and hot-reloads the mailgate configuration document.
package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

var (
	cfg  *Config
	once sync.Once
	mu   sync.RWMutex
)

// Config is the root configuration document for the service.
type Config struct {
	Servers []ServerConfig `mapstructure:"servers"`
	Runtime RuntimeConfig  `mapstructure:"runtime"`
	REST    RESTConfig     `mapstructure:"rest"`
	Logging LoggingConfig  `mapstructure:"logging"`
	Metrics MetricsConfig  `mapstructure:"metrics"`
}

// ServerConfig describes one IMAP account to supervise.
type ServerConfig struct {
	Name      string         `mapstructure:"name"`
	Host      string         `mapstructure:"host"`
	Port      int            `mapstructure:"port"`
	Username  string         `mapstructure:"username"`
	Password  string         `mapstructure:"password"`
	TLS       TLSConfig      `mapstructure:"tls"`
	Mailboxes []MailboxRoute `mapstructure:"mailboxes"`
}

// RuntimeConfig holds the settings the dispatch pipeline and body processor
// consult on every message; these are the values hot-reloaded by Load.
type RuntimeConfig struct {
	MaxQueryMessages               int                      `mapstructure:"max_query_messages"`
	QueryInterval                  time.Duration            `mapstructure:"query_interval"`
	JoinOriginalAsEml              bool                     `mapstructure:"join_original_as_eml"`
	JoinAttachments                bool                     `mapstructure:"join_attachments"`
	TruncateCommentsAfterDelimiter bool                     `mapstructure:"truncate_comments_after_delimiter"`
	CommentDelimiters              []Delimiter              `mapstructure:"comment_delimiters"`
	PermittedBodyAttributes        map[string]AttributeType `mapstructure:"permitted_body_attributes"`
	DefaultIssueAttrs              map[string]string        `mapstructure:"default_issue_attrs"`
	OnPersonNotFound               OnPersonNotFoundMode     `mapstructure:"on_person_not_found"`
	Spam                           SpamConfig               `mapstructure:"spam"`
}

// RESTConfig points the ticketing client at its backing API. Auth is HTTP
// Basic, per the fixed wire contract.
type RESTConfig struct {
	BaseURL    string        `mapstructure:"base_url"`
	Username   string        `mapstructure:"username"`
	Password   string        `mapstructure:"password"`
	Timeout    time.Duration `mapstructure:"timeout"`
	DBQueryURI string        `mapstructure:"db_query_uri"`
}

// LoggingConfig names the two append-only log sinks.
type LoggingConfig struct {
	InfoPath  string `mapstructure:"info_path"`
	ErrorPath string `mapstructure:"error_path"`
}

// MetricsConfig controls the Prometheus exposition endpoint.
type MetricsConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	ListenAddr string `mapstructure:"listen_addr"`
}

// Load reads the configuration file at configPath, validates it, and
// installs a watcher that re-reads the file on change. A reloaded document
// replaces every section except Servers, which keeps its value from the
// first load. Only the atomically-swapped Config pointer changes, so callers
// that want live values must call Get() on each use rather than cache it.
func Load(configPath string) error {
	var err error
	once.Do(func() {
		v := viper.New()
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")

		if err = v.ReadInConfig(); err != nil {
			err = fmt.Errorf("reading config %s: %w", configPath, err)
			return
		}

		v.SetEnvPrefix("MAILGATE")
		v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		v.AutomaticEnv()

		next := &Config{}
		if err = v.Unmarshal(next); err != nil {
			err = fmt.Errorf("unmarshaling config: %w", err)
			return
		}
		if err = Validate(next); err != nil {
			err = fmt.Errorf("validating config: %w", err)
			return
		}

		mu.Lock()
		cfg = next
		mu.Unlock()

		v.WatchConfig()
		v.OnConfigChange(func(e fsnotify.Event) {
			reloaded := &Config{}
			if uerr := v.Unmarshal(reloaded); uerr != nil {
				return
			}
			if verr := Validate(reloaded); verr != nil {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			// Server connection settings never hot-reload: a changed host/port/
			// credential requires a fresh supervisor, not a config swap.
			reloaded.Servers = cfg.Servers
			cfg = reloaded
		})
	})
	return err
}

// Get returns the current configuration. Safe for concurrent use; returns
// nil if Load has not yet succeeded.
func Get() *Config {
	mu.RLock()
	defer mu.RUnlock()
	return cfg
}

// MustLoad loads configuration and panics on error, for use at process
// startup before any goroutine depends on Get returning non-nil.
func MustLoad(configPath string) {
	if err := Load(configPath); err != nil {
		panic(fmt.Sprintf("loading configuration: %v", err))
	}
}

// LoadFromFile loads and validates a configuration file outside of the
// once-guarded singleton path, for use in tests that need an isolated
// Config value rather than the process-wide one.
func LoadFromFile(configFile string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configFile)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config %s: %w", configFile, err)
	}

	out := &Config{}
	if err := v.Unmarshal(out); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := Validate(out); err != nil {
		return nil, err
	}
	return out, nil
}

// Addr returns the host:port dial address for the server.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
