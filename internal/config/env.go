package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/daxnoob/lazyimg/internal/errors"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "LAZYIMG_"

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// LoadEnvFile loads KEY=VALUE pairs from path into the process environment
// without overriding variables that are already set. A missing file is not an
// error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return errors.New("L005").Wrap(err)
	}
	return nil
}

// ApplyEnv overrides fields from LAZYIMG_* variables.
func (c *Config) ApplyEnv(lookup LookupFunc) error {
	if lookup == nil {
		lookup = os.LookupEnv
	}

	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = v
		}
	}
	str("PROBE_BACKEND", &c.Probe.Backend)
	str("PROBE_BASE_URL", &c.Probe.BaseURL)
	str("PROBE_USER_AGENT", &c.Probe.UserAgent)
	str("S3_BUCKET", &c.S3.Bucket)
	str("S3_REGION", &c.S3.Region)
	str("S3_ENDPOINT", &c.S3.Endpoint)
	str("S3_PREFIX", &c.S3.Prefix)
	str("SERVE_ADDR", &c.Serve.Addr)
	str("SERVE_ROOT", &c.Serve.Root)

	if v, ok := lookup(EnvPrefix + "MAX_RETRIES"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return envError("MAX_RETRIES", err)
		}
		c.Retry.MaxRetries = n
	}

	durations := []struct {
		name string
		dst  *Duration
	}{
		{"BASE_DELAY", &c.Retry.BaseDelay},
		{"PROBE_TIMEOUT", &c.Probe.Timeout},
	}
	for _, d := range durations {
		v, ok := lookup(EnvPrefix + d.name)
		if !ok {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return envError(d.name, err)
		}
		*d.dst = Duration(parsed)
	}

	bools := []struct {
		name string
		dst  *bool
	}{
		{"S3_PATH_STYLE", &c.S3.PathStyle},
		{"SERVE_METRICS", &c.Serve.Metrics},
	}
	for _, b := range bools {
		v, ok := lookup(EnvPrefix + b.name)
		if !ok {
			continue
		}
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return envError(b.name, err)
		}
		*b.dst = parsed
	}

	c.applyDefaults()
	return nil
}

func envError(name string, err error) error {
	return errors.New("L004").Wrap(err).WithSuggestion("check " + EnvPrefix + name)
}
