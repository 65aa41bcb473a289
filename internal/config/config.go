package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

type Logger struct {
	Level string `yaml:"level"`
}

// Catalog locates the GeoNetwork endpoints. Paths starting with "/" are
// resolved against BaseURL.
type Catalog struct {
	BaseURL          string        `yaml:"base_url"`
	SearchPath       string        `yaml:"search_path"`
	ChangesPath      string        `yaml:"changes_path"`
	RecordURL        string        `yaml:"record_url"`
	Timeout          time.Duration `yaml:"timeout"`
	ServerSideFilter bool          `yaml:"server_side_filter"`
}

func (c Catalog) resolve(p string) string {
	if strings.HasPrefix(p, "/") {
		return strings.TrimRight(c.BaseURL, "/") + p
	}
	return p
}

func (c Catalog) SearchURL() string {
	return c.resolve(c.SearchPath)
}

func (c Catalog) ChangesURL() string {
	return c.resolve(c.ChangesPath)
}

// RecordURLPrefix is the URL a record identifier is appended to.
func (c Catalog) RecordURLPrefix() string {
	return c.resolve(c.RecordURL)
}

type Local struct {
	Path string `yaml:"path"`
}

type GCS struct {
	ProjectID string `yaml:"project_id"`
}

type Repository struct {
	Type           string `yaml:"type"`
	Bucket         string `yaml:"bucket"`
	Region         string `yaml:"region"`
	Prefix         string `yaml:"prefix"`
	Endpoint       string `yaml:"endpoint"`
	ForcePathStyle bool   `yaml:"force_path_style"`
	Local          Local  `yaml:"local"`
	GCS            GCS    `yaml:"gcs"`
}

type Harvest struct {
	DefaultLookback time.Duration `yaml:"default_lookback"`
}

type Report struct {
	Type             string `yaml:"type"`
	Prefix           string `yaml:"prefix"`
	ConnectionString string `yaml:"connection_string"`
}

type Notify struct {
	KafkaURL string `yaml:"kafka_url"`
}

type Response struct {
	LegacyStatusCodes bool `yaml:"legacy_status_codes"`
}

type Server struct {
	Addr string `yaml:"addr"`
}

type Harvester struct {
	Logger     Logger     `yaml:"logger"`
	Catalog    Catalog    `yaml:"catalog"`
	Repository Repository `yaml:"repository"`
	Harvest    Harvest    `yaml:"harvest"`
	Report     Report     `yaml:"report"`
	Notify     Notify     `yaml:"notify"`
	Response   Response   `yaml:"response"`
	Server     Server     `yaml:"server"`
}

// Default targets the production catalog.
func Default() *Harvester {
	return &Harvester{
		Logger: Logger{Level: "info"},
		Catalog: Catalog{
			BaseURL:     "https://maps.canada.ca/geonetwork",
			SearchPath:  "/srv/eng/q",
			ChangesPath: "/srv/api/0.1/records/status/change",
			RecordURL:   "/srv/api/0.1/records/",
			Timeout:     30 * time.Second,
		},
		Repository: Repository{
			Type:   "s3",
			Bucket: "hnap-test-bucket",
			Region: "ca-central-1",
		},
		Harvest: Harvest{
			DefaultLookback: 11 * time.Minute,
		},
		Report: Report{
			Type:   "none",
			Prefix: "runs",
		},
		Server: Server{
			Addr: ":8080",
		},
	}
}

// NewHarvesterFromFile decodes the file on top of Default.
func NewHarvesterFromFile(fpath string) (*Harvester, error) {
	bs, err := os.ReadFile(fpath)
	if err != nil {
		return nil, err
	}

	h := Default()
	if err := yaml.Unmarshal(bs, h); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", fpath, err)
	}
	return h, nil
}

// ApplyEnv overrides settings from HARVESTER_* variables, e.g.
// HARVESTER_REPOSITORY_BUCKET for repository.bucket.
func (h *Harvester) ApplyEnv(v *viper.Viper) {
	v.SetEnvPrefix("HARVESTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	str := func(key string, dst *string) {
		if v.IsSet(key) {
			*dst = v.GetString(key)
		}
	}
	boolean := func(key string, dst *bool) {
		if v.IsSet(key) {
			*dst = v.GetBool(key)
		}
	}
	duration := func(key string, dst *time.Duration) {
		if v.IsSet(key) {
			*dst = v.GetDuration(key)
		}
	}

	str("logger.level", &h.Logger.Level)
	str("catalog.base_url", &h.Catalog.BaseURL)
	str("catalog.search_path", &h.Catalog.SearchPath)
	str("catalog.changes_path", &h.Catalog.ChangesPath)
	str("catalog.record_url", &h.Catalog.RecordURL)
	duration("catalog.timeout", &h.Catalog.Timeout)
	boolean("catalog.server_side_filter", &h.Catalog.ServerSideFilter)
	str("repository.type", &h.Repository.Type)
	str("repository.bucket", &h.Repository.Bucket)
	str("repository.region", &h.Repository.Region)
	str("repository.prefix", &h.Repository.Prefix)
	str("repository.endpoint", &h.Repository.Endpoint)
	boolean("repository.force_path_style", &h.Repository.ForcePathStyle)
	str("repository.local.path", &h.Repository.Local.Path)
	str("repository.gcs.project_id", &h.Repository.GCS.ProjectID)
	duration("harvest.default_lookback", &h.Harvest.DefaultLookback)
	str("report.type", &h.Report.Type)
	str("report.prefix", &h.Report.Prefix)
	str("report.connection_string", &h.Report.ConnectionString)
	str("notify.kafka_url", &h.Notify.KafkaURL)
	boolean("response.legacy_status_codes", &h.Response.LegacyStatusCodes)
	str("server.addr", &h.Server.Addr)
}

func (h *Harvester) Validate() error {
	if h.Repository.Bucket == "" {
		return fmt.Errorf("repository.bucket is required")
	}
	if h.Catalog.SearchURL() == "" || h.Catalog.ChangesURL() == "" || h.Catalog.RecordURLPrefix() == "" {
		return fmt.Errorf("catalog endpoints are required")
	}
	if h.Harvest.DefaultLookback <= 0 {
		return fmt.Errorf("harvest.default_lookback must be positive, got %s", h.Harvest.DefaultLookback)
	}

	switch h.Repository.Type {
	case "s3", "gcs":
	case "local":
		if h.Repository.Local.Path == "" {
			return fmt.Errorf("repository.local.path is required for a local repository")
		}
	default:
		return fmt.Errorf("unsupported repository type: %q", h.Repository.Type)
	}

	switch h.Report.Type {
	case "", "none", "repository":
	case "postgres", "mongo":
		if h.Report.ConnectionString == "" {
			return fmt.Errorf("report.connection_string is required for a %s report", h.Report.Type)
		}
	default:
		return fmt.Errorf("unsupported report type: %q", h.Report.Type)
	}
	return nil
}
