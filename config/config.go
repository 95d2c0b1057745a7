package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const EnvPrefix = "git_remote_bucket"

const (
	CodecExec  = "exec"
	CodecGoGit = "gogit"
)

type Config = *config
type config struct {
	// GIT_REMOTE_BUCKET_WORKERS
	Workers int `split_words:"true" default:"8"`
	// GIT_REMOTE_BUCKET_FETCH_TIMEOUT, 0 disables the per-fetch deadline
	FetchTimeout time.Duration `split_words:"true" default:"0s"`
	// GIT_REMOTE_BUCKET_CODEC
	Codec string `default:"exec"`
	// GIT_REMOTE_BUCKET_LOG_LEVEL
	LogLevel string `split_words:"true" default:"info"`
	// GIT_REMOTE_BUCKET_METRICS_FILE
	MetricsFile string `split_words:"true"`

	// GIT_REMOTE_BUCKET_S3_ENDPOINT
	S3Endpoint string `envconfig:"s3_endpoint"`
	// GIT_REMOTE_BUCKET_S3_REGION
	S3Region string `envconfig:"s3_region"`
	// GIT_REMOTE_BUCKET_S3_PATH_STYLE
	S3PathStyle bool `envconfig:"s3_path_style"`

	// GIT_DIR as exported by git takes precedence
	GitDir string `envconfig:"git_dir"`
}

func NewConfig() Config {
	return &config{
		Workers:  8,
		Codec:    CodecExec,
		LogLevel: "info",
	}
}

func NewConfigFromEnv() (Config, error) {
	c := NewConfig()
	if err := envconfig.Process(EnvPrefix, c); err != nil {
		return nil, fmt.Errorf("envconfig: %w", err)
	}
	if dir := os.Getenv("GIT_DIR"); dir != "" {
		c.GitDir = dir
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	}
	if c.FetchTimeout < 0 {
		return fmt.Errorf("negative fetch timeout: %s", c.FetchTimeout)
	}
	switch c.Codec {
	case CodecExec, CodecGoGit:
	default:
		return fmt.Errorf("unknown codec %q", c.Codec)
	}
	return nil
}

// RemoteURL is the parsed form of the url git passes as the second argument.
//
//	s3://[profile@]bucket/prefix
//	gs://bucket/prefix
//	file:///root/dir
//	bolt:///path/to/db.bolt?prefix=repo
type RemoteURL struct {
	Scheme  string
	Profile string
	Bucket  string
	Prefix  string
	Path    string
}

func ParseRemoteURL(raw string) (RemoteURL, error) {
	var r RemoteURL

	u, err := url.Parse(raw)
	if err != nil {
		return r, fmt.Errorf("parse remote url %q: %w", raw, err)
	}

	r.Scheme = strings.ToLower(u.Scheme)
	switch r.Scheme {
	case "s3", "gs":
		if u.Host == "" {
			return r, fmt.Errorf("missing bucket in %q", raw)
		}
		r.Bucket = u.Host
		r.Prefix = strings.Trim(u.Path, "/")
		if u.User != nil {
			r.Profile = u.User.Username()
		}
	case "file":
		if u.Path == "" {
			return r, fmt.Errorf("missing path in %q", raw)
		}
		r.Path = u.Path
	case "bolt":
		if u.Path == "" {
			return r, fmt.Errorf("missing path in %q", raw)
		}
		r.Path = u.Path
		r.Prefix = strings.Trim(u.Query().Get("prefix"), "/")
	default:
		return r, fmt.Errorf("unsupported scheme %q in %q", u.Scheme, raw)
	}

	return r, nil
}

func (r RemoteURL) String() string {
	switch r.Scheme {
	case "file":
		return "file://" + r.Path
	case "bolt":
		if r.Prefix == "" {
			return "bolt://" + r.Path
		}
		return "bolt://" + r.Path + "?prefix=" + r.Prefix
	}
	host := r.Bucket
	if r.Profile != "" {
		host = r.Profile + "@" + host
	}
	if r.Prefix == "" {
		return r.Scheme + "://" + host
	}
	return r.Scheme + "://" + host + "/" + r.Prefix
}
