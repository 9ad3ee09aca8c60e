package config

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/daxnoob/lazyimg/internal/errors"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "lazyimg.json"

	DefaultMaxRetries   = 3
	DefaultBaseDelay    = time.Second
	DefaultProbeTimeout = 10 * time.Second
	DefaultUserAgent    = "lazyimg"
	DefaultViewport     = 800
	DefaultImageHeight  = 300
	DefaultAddr         = ":8000"
	DefaultRoot         = "site"
)

// Probe backends.
const (
	BackendHTTP = "http"
	BackendS3   = "s3"
)

// Duration is a time.Duration written as a Go duration string in JSON.
type Duration time.Duration

// UnmarshalJSON accepts "1.5s" style strings.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("duration must be a string like \"1s\": %v", err)
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalJSON writes the duration as a string.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config represents the complete lazyimg.json configuration.
type Config struct {
	Retry    RetryConfig    `json:"retry"`
	Probe    ProbeConfig    `json:"probe"`
	Viewport ViewportConfig `json:"viewport"`
	S3       S3Config       `json:"s3"`
	Serve    ServeConfig    `json:"serve"`

	configPath string
}

// RetryConfig controls the image retry controller.
type RetryConfig struct {
	// MaxRetries is the number of retries per image before giving up.
	MaxRetries int `json:"maxRetries"`

	// BaseDelay is multiplied by the attempt number to get the retry delay.
	BaseDelay Duration `json:"baseDelay"`
}

// ProbeConfig controls not-found classification.
type ProbeConfig struct {
	// Backend selects the prober: "http" or "s3".
	Backend string `json:"backend,omitempty"`

	// Timeout bounds a single probe.
	Timeout Duration `json:"timeout"`

	// BaseURL resolves relative image locators for HTTP probes.
	BaseURL string `json:"baseURL,omitempty"`

	// UserAgent is sent with HTTP probes.
	UserAgent string `json:"userAgent,omitempty"`
}

// ViewportConfig drives the layout estimate used when rewriting HTML offline.
type ViewportConfig struct {
	Height      float64 `json:"height"`
	ImageHeight float64 `json:"imageHeight"`
}

// S3Config locates a site hosted on object storage.
type S3Config struct {
	Bucket    string `json:"bucket,omitempty"`
	Region    string `json:"region,omitempty"`
	Endpoint  string `json:"endpoint,omitempty"`
	Prefix    string `json:"prefix,omitempty"`
	PathStyle bool   `json:"pathStyle,omitempty"`
}

// ServeConfig configures `lazyimg serve`.
type ServeConfig struct {
	// Addr is the listen address.
	Addr string `json:"addr,omitempty"`

	// Root is the built documentation directory.
	Root string `json:"root,omitempty"`

	// Metrics exposes /metrics when true.
	Metrics bool `json:"metrics,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	return &Config{
		Retry: RetryConfig{
			MaxRetries: DefaultMaxRetries,
			BaseDelay:  Duration(DefaultBaseDelay),
		},
		Probe: ProbeConfig{
			Backend:   BackendHTTP,
			Timeout:   Duration(DefaultProbeTimeout),
			UserAgent: DefaultUserAgent,
		},
		Viewport: ViewportConfig{
			Height:      DefaultViewport,
			ImageHeight: DefaultImageHeight,
		},
		Serve: ServeConfig{
			Addr:    DefaultAddr,
			Root:    DefaultRoot,
			Metrics: true,
		},
	}
}

// Load reads lazyimg.json from dir. A missing file yields the defaults.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, ConfigFileName)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return New(), nil
	}
	return LoadFile(path)
}

// LoadFile reads configuration from the specified file path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New("L001").Wrap(err)
	}

	cfg := New()
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		le := errors.New("L002").Wrap(err).
			WithSuggestion("Check that " + filepath.Base(path) + " is valid JSON and durations are strings like \"1s\"")
		if off, ok := errorOffset(err); ok {
			line, col := position(data, off)
			le.WithLocation(path, line, col)
		}
		return nil, le
	}

	cfg.configPath = path
	cfg.applyDefaults()
	return cfg, nil
}

func errorOffset(err error) (int64, bool) {
	var syn *json.SyntaxError
	if stderrors.As(err, &syn) {
		return syn.Offset, true
	}
	var typ *json.UnmarshalTypeError
	if stderrors.As(err, &typ) {
		return typ.Offset, true
	}
	return 0, false
}

// position converts a byte offset into a 1-based line and column.
func position(data []byte, off int64) (line, col int) {
	if off > int64(len(data)) {
		off = int64(len(data))
	}
	line, col = 1, 1
	for _, b := range data[:off] {
		if b == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	return line, col
}

// SaveTo writes the configuration to the specified path.
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.New("L002").Wrap(err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.New("L001").Wrap(err)
	}
	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// applyDefaults fills fields whose zero value is never meaningful.
func (c *Config) applyDefaults() {
	if c.Retry.BaseDelay == 0 {
		c.Retry.BaseDelay = Duration(DefaultBaseDelay)
	}
	if c.Probe.Backend == "" {
		c.Probe.Backend = BackendHTTP
	}
	if c.Probe.Timeout == 0 {
		c.Probe.Timeout = Duration(DefaultProbeTimeout)
	}
	if c.Probe.UserAgent == "" {
		c.Probe.UserAgent = DefaultUserAgent
	}
	if c.Viewport.Height == 0 {
		c.Viewport.Height = DefaultViewport
	}
	if c.Viewport.ImageHeight == 0 {
		c.Viewport.ImageHeight = DefaultImageHeight
	}
	if c.Serve.Addr == "" {
		c.Serve.Addr = DefaultAddr
	}
	if c.Serve.Root == "" {
		c.Serve.Root = DefaultRoot
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	switch {
	case c.Retry.MaxRetries < 0:
		return errors.New("L003").
			WithDetail("retry.maxRetries must not be negative.").
			WithSuggestion("set retry.maxRetries to 0 to disable retries")
	case c.Retry.BaseDelay < 0:
		return errors.New("L003").WithDetail("retry.baseDelay must not be negative.")
	case c.Probe.Timeout <= 0:
		return errors.New("L003").WithDetail("probe.timeout must be positive.")
	case c.Viewport.Height <= 0 || c.Viewport.ImageHeight <= 0:
		return errors.New("L003").WithDetail("viewport.height and viewport.imageHeight must be positive.")
	}

	switch c.Probe.Backend {
	case BackendHTTP:
	case BackendS3:
		if c.S3.Bucket == "" {
			return errors.New("L003").
				WithDetail("probe.backend is \"s3\" but s3.bucket is empty.").
				WithSuggestion("set s3.bucket or LAZYIMG_S3_BUCKET")
		}
	default:
		return errors.New("L003").
			WithDetail(fmt.Sprintf("probe.backend %q is not supported.", c.Probe.Backend)).
			WithSuggestion(`use "http" or "s3"`)
	}

	if c.Probe.BaseURL != "" {
		if _, err := c.BaseURL(); err != nil {
			return err
		}
	}
	return nil
}

// BaseURL parses Probe.BaseURL. It returns nil, nil when unset.
func (c *Config) BaseURL() (*url.URL, error) {
	if c.Probe.BaseURL == "" {
		return nil, nil
	}
	u, err := url.Parse(c.Probe.BaseURL)
	if err != nil {
		return nil, errors.New("L020").Wrap(err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, errors.New("L020").
			WithSuggestion("use a URL such as https://docs.example.com")
	}
	return u, nil
}

// ClientPath is where `lazyimg serve` publishes ClientConfig for the
// browser build.
const ClientPath = "/_lazyimg/config.json"

// ClientConfig is the subset of the configuration the browser pass reads.
type ClientConfig struct {
	MaxRetries   int      `json:"maxRetries"`
	BaseDelay    Duration `json:"baseDelay"`
	ProbeTimeout Duration `json:"probeTimeout"`
}

// Client returns the settings published to the browser.
func (c *Config) Client() ClientConfig {
	return ClientConfig{
		MaxRetries:   c.Retry.MaxRetries,
		BaseDelay:    c.Retry.BaseDelay,
		ProbeTimeout: c.Probe.Timeout,
	}
}
