package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/alxnderia/ingestion/pkg/provider"
)

const (
	DefaultConfigPath = "/etc/ingest/config"
	ConfigFileName    = "ingest.yml"
	DefaultBatchSize  = 500
	DefaultAWSRegion  = "us-east-1"
	DefaultGithubURL  = "https://api.github.com"
)

// ErrMissingTenant is returned by Validate when no tenant is configured.
var ErrMissingTenant = errors.New("TENANT_ID environment variable is required")

// DatabaseConfig holds the Postgres connection settings
type DatabaseConfig struct {
	// URL takes precedence over the discrete PG fields
	URL            string `yaml:"url" json:"url"`
	Host           string `yaml:"host" json:"host"`
	Port           int    `yaml:"port" json:"port"`
	User           string `yaml:"user" json:"user"`
	Password       string `yaml:"password" json:"password"`
	Name           string `yaml:"name" json:"name"`
	MinConnections int    `yaml:"min_connections" json:"min_connections"`
	MaxConnections int    `yaml:"max_connections" json:"max_connections"`
}

// GoogleWorkspaceConfig enables the Google Workspace connector
type GoogleWorkspaceConfig struct {
	AdminEmail string `yaml:"admin_email" json:"admin_email"`
	CustomerID string `yaml:"customer_id" json:"customer_id"`
	// SAKeyFile is optional; application default credentials are used when empty
	SAKeyFile string `yaml:"sa_key_file" json:"sa_key_file"`
}

// AwsIdentityCenterConfig enables the AWS IAM Identity Center connector
type AwsIdentityCenterConfig struct {
	IdentityStoreID string `yaml:"identity_store_id" json:"identity_store_id"`
	SSOInstanceArn  string `yaml:"sso_instance_arn" json:"sso_instance_arn"`
	Region          string `yaml:"region" json:"region"`
}

// AwsOrganizationsConfig enables the AWS Organizations connector
type AwsOrganizationsConfig struct {
	Region string `yaml:"region" json:"region"`
}

// GithubConfig enables the GitHub organisation connector
type GithubConfig struct {
	Token      string   `yaml:"token" json:"token"`
	OrgLogins  []string `yaml:"org_logins" json:"org_logins"`
	APIBaseURL string   `yaml:"api_base_url" json:"api_base_url"`
	// RequestsPerSecond paces API calls below the secondary rate limits
	RequestsPerSecond float64 `yaml:"requests_per_second" json:"requests_per_second"`
}

// GcpConfig enables the GCP Resource Manager connector
type GcpConfig struct {
	OrgID     string `yaml:"org_id" json:"org_id"`
	SAKeyFile string `yaml:"sa_key_file" json:"sa_key_file"`
}

// SchedulerConfig holds the periodic harness settings
type SchedulerConfig struct {
	GoogleWorkspaceInterval    time.Duration `yaml:"google_workspace_interval" json:"google_workspace_interval"`
	AwsIdentityCenterInterval  time.Duration `yaml:"aws_identity_center_interval" json:"aws_identity_center_interval"`
	GithubInterval             time.Duration `yaml:"github_interval" json:"github_interval"`
	AwsOrganizationsInterval   time.Duration `yaml:"aws_organizations_interval" json:"aws_organizations_interval"`
	GcpResourceManagerInterval time.Duration `yaml:"gcp_resource_manager_interval" json:"gcp_resource_manager_interval"`
	PostProcessInterval        time.Duration `yaml:"post_process_interval" json:"post_process_interval"`
	MisfireGrace               time.Duration `yaml:"misfire_grace" json:"misfire_grace"`
	MaxRetries                 int           `yaml:"max_retries" json:"max_retries"`
	RetryBaseDelay             time.Duration `yaml:"retry_base_delay" json:"retry_base_delay"`
}

// StatusConfig holds the operator status API settings
type StatusConfig struct {
	// JWTSecret enables HS256 bearer authentication on /runs when set
	JWTSecret string `yaml:"jwt_secret" json:"jwt_secret"`
}

// Config holds all ingestion settings
type Config struct {
	TenantID  string         `yaml:"tenant_id" json:"tenant_id"`
	Database  DatabaseConfig `yaml:"database" json:"database"`
	BatchSize int            `yaml:"batch_size" json:"batch_size"`
	LogLevel  string         `yaml:"log_level" json:"log_level"`

	GoogleWorkspace   *GoogleWorkspaceConfig   `yaml:"google_workspace" json:"google_workspace"`
	AwsIdentityCenter *AwsIdentityCenterConfig `yaml:"aws_identity_center" json:"aws_identity_center"`
	AwsOrganizations  *AwsOrganizationsConfig  `yaml:"aws_organizations" json:"aws_organizations"`
	Github            *GithubConfig            `yaml:"github" json:"github"`
	Gcp               *GcpConfig               `yaml:"gcp" json:"gcp"`

	Scheduler SchedulerConfig `yaml:"scheduler" json:"scheduler"`
	Status    StatusConfig    `yaml:"status" json:"status"`

	// RedisURL enables the cross-process job lock
	RedisURL string `yaml:"redis_url" json:"redis_url"`
	// AMQPURL enables post-process completion events
	AMQPURL string `yaml:"amqp_url" json:"amqp_url"`

	// sources tracks where each value came from
	sources map[string]string

	configFilePath string
}

// Attribute represents a configuration attribute with its value and source
type Attribute struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Source string `json:"source"`
}

// SecretResolver turns a secret reference into its plaintext value.
type SecretResolver interface {
	Resolve(ctx context.Context, value string) (string, error)
}

func newDefault() *Config {
	return &Config{
		Database: DatabaseConfig{
			Host:           "localhost",
			Port:           5432,
			User:           "cloudintel",
			Name:           "cloud_identity_intel",
			MinConnections: 2,
			MaxConnections: 10,
		},
		BatchSize: DefaultBatchSize,
		LogLevel:  "info",
		Scheduler: SchedulerConfig{
			GoogleWorkspaceInterval:    60 * time.Minute,
			AwsIdentityCenterInterval:  60 * time.Minute,
			GithubInterval:             30 * time.Minute,
			AwsOrganizationsInterval:   6 * time.Hour,
			GcpResourceManagerInterval: 2 * time.Hour,
			PostProcessInterval:        15 * time.Minute,
			MisfireGrace:               300 * time.Second,
			MaxRetries:                 3,
			RetryBaseDelay:             30 * time.Second,
		},
		sources: make(map[string]string),
	}
}

// Load loads configuration from file and environment variables.
// Environment variables take precedence over file values.
func Load() (*Config, error) {
	// A missing .env is the normal case outside local development
	_ = godotenv.Load()

	config := newDefault()
	for _, name := range attributeNames() {
		config.sources[name] = "default"
	}

	configPath := os.Getenv("INGEST_CONFIG_PATH")
	if configPath == "" {
		configPath = DefaultConfigPath
	}
	config.configFilePath = filepath.Join(configPath, ConfigFileName)

	if data, err := os.ReadFile(config.configFilePath); err == nil {
		var fileConfig Config
		if err := yaml.Unmarshal(data, &fileConfig); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", config.configFilePath, err)
		}
		config.applyFileConfig(&fileConfig)
	}

	if err := config.applyEnvConfig(); err != nil {
		return nil, err
	}

	return config, nil
}

func attributeNames() []string {
	return []string{
		"tenant_id", "database_url", "db_min_connections", "db_max_connections",
		"batch_size", "log_level",
		"google_workspace", "aws_identity_center", "aws_organizations", "github", "gcp",
		"schedule", "misfire_grace", "max_retries", "retry_base_delay",
		"status_jwt_secret", "redis_url", "amqp_url",
	}
}

func (c *Config) applyFileConfig(file *Config) {
	if file.TenantID != "" {
		c.TenantID = file.TenantID
		c.sources["tenant_id"] = "file"
	}
	if file.Database.URL != "" || file.Database.Host != "" {
		if file.Database.URL != "" {
			c.Database.URL = file.Database.URL
		}
		if file.Database.Host != "" {
			c.Database.Host = file.Database.Host
		}
		if file.Database.Port != 0 {
			c.Database.Port = file.Database.Port
		}
		if file.Database.User != "" {
			c.Database.User = file.Database.User
		}
		if file.Database.Password != "" {
			c.Database.Password = file.Database.Password
		}
		if file.Database.Name != "" {
			c.Database.Name = file.Database.Name
		}
		c.sources["database_url"] = "file"
	}
	if file.Database.MinConnections != 0 {
		c.Database.MinConnections = file.Database.MinConnections
		c.sources["db_min_connections"] = "file"
	}
	if file.Database.MaxConnections != 0 {
		c.Database.MaxConnections = file.Database.MaxConnections
		c.sources["db_max_connections"] = "file"
	}
	if file.BatchSize != 0 {
		c.BatchSize = file.BatchSize
		c.sources["batch_size"] = "file"
	}
	if file.LogLevel != "" {
		c.LogLevel = file.LogLevel
		c.sources["log_level"] = "file"
	}
	if file.GoogleWorkspace != nil {
		c.GoogleWorkspace = file.GoogleWorkspace
		c.sources["google_workspace"] = "file"
	}
	if file.AwsIdentityCenter != nil {
		c.AwsIdentityCenter = file.AwsIdentityCenter
		if c.AwsIdentityCenter.Region == "" {
			c.AwsIdentityCenter.Region = DefaultAWSRegion
		}
		c.sources["aws_identity_center"] = "file"
	}
	if file.AwsOrganizations != nil {
		c.AwsOrganizations = file.AwsOrganizations
		if c.AwsOrganizations.Region == "" {
			c.AwsOrganizations.Region = DefaultAWSRegion
		}
		c.sources["aws_organizations"] = "file"
	}
	if file.Github != nil {
		c.Github = file.Github
		if c.Github.APIBaseURL == "" {
			c.Github.APIBaseURL = DefaultGithubURL
		}
		c.sources["github"] = "file"
	}
	if file.Gcp != nil {
		c.Gcp = file.Gcp
		c.sources["gcp"] = "file"
	}
	c.applyFileSchedule(&file.Scheduler)
	if file.Status.JWTSecret != "" {
		c.Status.JWTSecret = file.Status.JWTSecret
		c.sources["status_jwt_secret"] = "file"
	}
	if file.RedisURL != "" {
		c.RedisURL = file.RedisURL
		c.sources["redis_url"] = "file"
	}
	if file.AMQPURL != "" {
		c.AMQPURL = file.AMQPURL
		c.sources["amqp_url"] = "file"
	}
}

func (c *Config) applyFileSchedule(file *SchedulerConfig) {
	set := func(dst *time.Duration, v time.Duration) {
		if v != 0 {
			*dst = v
			c.sources["schedule"] = "file"
		}
	}
	set(&c.Scheduler.GoogleWorkspaceInterval, file.GoogleWorkspaceInterval)
	set(&c.Scheduler.AwsIdentityCenterInterval, file.AwsIdentityCenterInterval)
	set(&c.Scheduler.GithubInterval, file.GithubInterval)
	set(&c.Scheduler.AwsOrganizationsInterval, file.AwsOrganizationsInterval)
	set(&c.Scheduler.GcpResourceManagerInterval, file.GcpResourceManagerInterval)
	set(&c.Scheduler.PostProcessInterval, file.PostProcessInterval)

	if file.MisfireGrace != 0 {
		c.Scheduler.MisfireGrace = file.MisfireGrace
		c.sources["misfire_grace"] = "file"
	}
	if file.MaxRetries != 0 {
		c.Scheduler.MaxRetries = file.MaxRetries
		c.sources["max_retries"] = "file"
	}
	if file.RetryBaseDelay != 0 {
		c.Scheduler.RetryBaseDelay = file.RetryBaseDelay
		c.sources["retry_base_delay"] = "file"
	}
}

func (c *Config) applyEnvConfig() error {
	if val := os.Getenv("TENANT_ID"); val != "" {
		c.TenantID = val
		c.sources["tenant_id"] = "environment"
	}

	if val := os.Getenv("DATABASE_URL"); val != "" {
		c.Database.URL = val
		c.sources["database_url"] = "environment"
	}
	pgVars := map[string]*string{
		"PG_HOST":     &c.Database.Host,
		"PG_USER":     &c.Database.User,
		"PG_PASSWORD": &c.Database.Password,
		"PG_DATABASE": &c.Database.Name,
	}
	for name, dst := range pgVars {
		if val := os.Getenv(name); val != "" {
			*dst = val
			if c.Database.URL == "" {
				c.sources["database_url"] = "environment"
			}
		}
	}
	if val := os.Getenv("PG_PORT"); val != "" {
		i, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("invalid PG_PORT %q: %w", val, err)
		}
		c.Database.Port = i
	}
	if val := os.Getenv("DB_MIN_CONNECTIONS"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			c.Database.MinConnections = i
			c.sources["db_min_connections"] = "environment"
		}
	}
	if val := os.Getenv("DB_MAX_CONNECTIONS"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			c.Database.MaxConnections = i
			c.sources["db_max_connections"] = "environment"
		}
	}
	if val := os.Getenv("INGESTION_BATCH_SIZE"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			c.BatchSize = i
			c.sources["batch_size"] = "environment"
		}
	}
	if val := firstEnv("INGEST_LOG_LEVEL", "LOG_LEVEL"); val != "" {
		c.LogLevel = strings.ToLower(val)
		c.sources["log_level"] = "environment"
	}

	c.applyProviderEnv()

	if err := c.applyScheduleEnv(); err != nil {
		return err
	}

	if val := os.Getenv("INGEST_STATUS_JWT_SECRET"); val != "" {
		c.Status.JWTSecret = val
		c.sources["status_jwt_secret"] = "environment"
	}
	if val := os.Getenv("INGEST_REDIS_URL"); val != "" {
		c.RedisURL = val
		c.sources["redis_url"] = "environment"
	}
	if val := os.Getenv("INGEST_AMQP_URL"); val != "" {
		c.AMQPURL = val
		c.sources["amqp_url"] = "environment"
	}
	return nil
}

func (c *Config) applyProviderEnv() {
	region := os.Getenv("AWS_REGION")
	if region == "" {
		region = DefaultAWSRegion
	}

	admin, customer := os.Getenv("GOOGLE_ADMIN_EMAIL"), os.Getenv("GOOGLE_CUSTOMER_ID")
	if admin != "" && customer != "" {
		c.GoogleWorkspace = &GoogleWorkspaceConfig{
			AdminEmail: admin,
			CustomerID: customer,
			SAKeyFile:  os.Getenv("GOOGLE_SA_KEY_FILE"),
		}
		c.sources["google_workspace"] = "environment"
	}

	storeID, instanceArn := os.Getenv("AWS_IDENTITY_STORE_ID"), os.Getenv("AWS_SSO_INSTANCE_ARN")
	if storeID != "" && instanceArn != "" {
		c.AwsIdentityCenter = &AwsIdentityCenterConfig{
			IdentityStoreID: storeID,
			SSOInstanceArn:  instanceArn,
			Region:          region,
		}
		c.sources["aws_identity_center"] = "environment"
	}

	// Explicit credentials, a named profile, a Lambda runtime or the flag
	if firstEnv("AWS_ACCESS_KEY_ID", "AWS_PROFILE", "AWS_LAMBDA_FUNCTION_NAME") != "" ||
		strings.EqualFold(os.Getenv("AWS_ORGANIZATIONS_ENABLED"), "true") {
		c.AwsOrganizations = &AwsOrganizationsConfig{Region: region}
		c.sources["aws_organizations"] = "environment"
	}

	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		baseURL := os.Getenv("GITHUB_API_BASE_URL")
		if baseURL == "" {
			baseURL = DefaultGithubURL
		}
		c.Github = &GithubConfig{
			Token:      token,
			OrgLogins:  splitAndTrim(os.Getenv("GITHUB_ORG_LOGINS")),
			APIBaseURL: baseURL,
		}
		if val := os.Getenv("GITHUB_REQUESTS_PER_SECOND"); val != "" {
			if f, err := strconv.ParseFloat(val, 64); err == nil {
				c.Github.RequestsPerSecond = f
			}
		}
		c.sources["github"] = "environment"
	}

	if orgID := os.Getenv("GCP_ORG_ID"); orgID != "" {
		c.Gcp = &GcpConfig{
			OrgID:     orgID,
			SAKeyFile: os.Getenv("GCP_SA_KEY_FILE"),
		}
		c.sources["gcp"] = "environment"
	}
}

func (c *Config) applyScheduleEnv() error {
	durations := []struct {
		env    string
		dst    *time.Duration
		source string
	}{
		{"INGEST_SCHEDULE_GOOGLE_WORKSPACE", &c.Scheduler.GoogleWorkspaceInterval, "schedule"},
		{"INGEST_SCHEDULE_AWS_IDENTITY_CENTER", &c.Scheduler.AwsIdentityCenterInterval, "schedule"},
		{"INGEST_SCHEDULE_GITHUB", &c.Scheduler.GithubInterval, "schedule"},
		{"INGEST_SCHEDULE_AWS_ORGANIZATIONS", &c.Scheduler.AwsOrganizationsInterval, "schedule"},
		{"INGEST_SCHEDULE_GCP_RESOURCE_MANAGER", &c.Scheduler.GcpResourceManagerInterval, "schedule"},
		{"INGEST_SCHEDULE_POST_PROCESS", &c.Scheduler.PostProcessInterval, "schedule"},
		{"INGEST_MISFIRE_GRACE", &c.Scheduler.MisfireGrace, "misfire_grace"},
		{"INGEST_RETRY_BASE_DELAY", &c.Scheduler.RetryBaseDelay, "retry_base_delay"},
	}
	for _, d := range durations {
		val := os.Getenv(d.env)
		if val == "" {
			continue
		}
		parsed, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", d.env, val, err)
		}
		*d.dst = parsed
		c.sources[d.source] = "environment"
	}

	if val := os.Getenv("INGEST_MAX_RETRIES"); val != "" {
		i, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("invalid INGEST_MAX_RETRIES %q: %w", val, err)
		}
		c.Scheduler.MaxRetries = i
		c.sources["max_retries"] = "environment"
	}
	return nil
}

// ResolveSecrets replaces secret references in the credential-bearing
// settings with their plaintext values.
func (c *Config) ResolveSecrets(ctx context.Context, r SecretResolver) error {
	targets := []struct {
		name string
		dst  *string
	}{
		{"database url", &c.Database.URL},
		{"database password", &c.Database.Password},
	}
	if c.Github != nil {
		targets = append(targets, struct {
			name string
			dst  *string
		}{"github token", &c.Github.Token})
	}
	for _, t := range targets {
		if *t.dst == "" {
			continue
		}
		val, err := r.Resolve(ctx, *t.dst)
		if err != nil {
			return fmt.Errorf("failed to resolve %s: %w", t.name, err)
		}
		*t.dst = val
	}
	return nil
}

// DatabaseURL returns the configured URL, or one assembled from the PG fields.
func (c *Config) DatabaseURL() string {
	if c.Database.URL != "" {
		return c.Database.URL
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.Database.User, c.Database.Password),
		Host:   fmt.Sprintf("%s:%d", c.Database.Host, c.Database.Port),
		Path:   "/" + c.Database.Name,
	}
	return u.String()
}

// Configured reports whether the settings a provider needs are present.
func (c *Config) Configured(t provider.Type) bool {
	switch t {
	case provider.TypeGoogleWorkspace:
		return c.GoogleWorkspace != nil
	case provider.TypeAwsIdentityCenter:
		return c.AwsIdentityCenter != nil
	case provider.TypeGithub:
		return c.Github != nil
	case provider.TypeAwsOrganizations:
		return c.AwsOrganizations != nil
	case provider.TypeGcpResourceManager:
		return c.Gcp != nil
	default:
		return false
	}
}

// Interval returns the schedule interval for a provider job.
func (c *Config) Interval(t provider.Type) time.Duration {
	switch t {
	case provider.TypeGoogleWorkspace:
		return c.Scheduler.GoogleWorkspaceInterval
	case provider.TypeAwsIdentityCenter:
		return c.Scheduler.AwsIdentityCenterInterval
	case provider.TypeGithub:
		return c.Scheduler.GithubInterval
	case provider.TypeAwsOrganizations:
		return c.Scheduler.AwsOrganizationsInterval
	case provider.TypeGcpResourceManager:
		return c.Scheduler.GcpResourceManagerInterval
	default:
		return 0
	}
}

// ConfigFilePath returns the path to the config file
func (c *Config) ConfigFilePath() string {
	return c.configFilePath
}

// Source returns the source of a configuration attribute
func (c *Config) Source(name string) string {
	if c.sources == nil {
		return "default"
	}
	if s, ok := c.sources[name]; ok {
		return s
	}
	return "default"
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.TenantID == "" {
		return ErrMissingTenant
	}
	if _, err := uuid.Parse(c.TenantID); err != nil {
		return fmt.Errorf("invalid tenant_id %q: must be a UUID", c.TenantID)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("invalid batch_size: %d", c.BatchSize)
	}
	if c.Database.MinConnections > c.Database.MaxConnections {
		return fmt.Errorf("db_min_connections (%d) exceeds db_max_connections (%d)",
			c.Database.MinConnections, c.Database.MaxConnections)
	}
	for _, t := range provider.TypeValues() {
		if c.Interval(t) <= 0 {
			return fmt.Errorf("invalid schedule interval for %s: %s", t, c.Interval(t))
		}
	}
	if c.Scheduler.PostProcessInterval <= 0 {
		return fmt.Errorf("invalid schedule interval for %s: %s", provider.PostProcess, c.Scheduler.PostProcessInterval)
	}
	if c.Scheduler.MaxRetries < 0 {
		return fmt.Errorf("invalid max_retries: %d", c.Scheduler.MaxRetries)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log_level: %s", c.LogLevel)
	}
	return nil
}

// Attributes returns all configuration attributes with their values and sources
func (c *Config) Attributes() []Attribute {
	enabled := func(t provider.Type) string { return strconv.FormatBool(c.Configured(t)) }
	s := c.Scheduler
	schedule := fmt.Sprintf("gw=%s idc=%s github=%s orgs=%s gcp=%s post=%s",
		s.GoogleWorkspaceInterval, s.AwsIdentityCenterInterval, s.GithubInterval,
		s.AwsOrganizationsInterval, s.GcpResourceManagerInterval, s.PostProcessInterval)

	return []Attribute{
		{Name: "tenant_id", Value: c.TenantID, Source: c.Source("tenant_id")},
		{Name: "database_url", Value: redactURL(c.DatabaseURL()), Source: c.Source("database_url")},
		{Name: "db_min_connections", Value: strconv.Itoa(c.Database.MinConnections), Source: c.Source("db_min_connections")},
		{Name: "db_max_connections", Value: strconv.Itoa(c.Database.MaxConnections), Source: c.Source("db_max_connections")},
		{Name: "batch_size", Value: strconv.Itoa(c.BatchSize), Source: c.Source("batch_size")},
		{Name: "log_level", Value: c.LogLevel, Source: c.Source("log_level")},
		{Name: "google_workspace", Value: enabled(provider.TypeGoogleWorkspace), Source: c.Source("google_workspace")},
		{Name: "aws_identity_center", Value: enabled(provider.TypeAwsIdentityCenter), Source: c.Source("aws_identity_center")},
		{Name: "aws_organizations", Value: enabled(provider.TypeAwsOrganizations), Source: c.Source("aws_organizations")},
		{Name: "github", Value: enabled(provider.TypeGithub), Source: c.Source("github")},
		{Name: "gcp", Value: enabled(provider.TypeGcpResourceManager), Source: c.Source("gcp")},
		{Name: "schedule", Value: schedule, Source: c.Source("schedule")},
		{Name: "misfire_grace", Value: s.MisfireGrace.String(), Source: c.Source("misfire_grace")},
		{Name: "max_retries", Value: strconv.Itoa(s.MaxRetries), Source: c.Source("max_retries")},
		{Name: "retry_base_delay", Value: s.RetryBaseDelay.String(), Source: c.Source("retry_base_delay")},
		{Name: "status_jwt_secret", Value: redact(c.Status.JWTSecret), Source: c.Source("status_jwt_secret")},
		{Name: "redis_url", Value: redactURL(c.RedisURL), Source: c.Source("redis_url")},
		{Name: "amqp_url", Value: redactURL(c.AMQPURL), Source: c.Source("amqp_url")},
	}
}

// FormatText returns a text representation of the configuration
func (c *Config) FormatText() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Config file: %s\n\n", c.configFilePath))
	sb.WriteString(fmt.Sprintf("%-24s %-60s %s\n", "NAME", "VALUE", "SOURCE"))
	sb.WriteString(fmt.Sprintf("%-24s %-60s %s\n", "----", "-----", "------"))

	for _, attr := range c.Attributes() {
		value := attr.Value
		if value == "" {
			value = "(not set)"
		}
		sb.WriteString(fmt.Sprintf("%-24s %-60s %s\n", attr.Name, value, attr.Source))
	}
	return sb.String()
}

// FormatJSON returns a JSON representation of the configuration
func (c *Config) FormatJSON() (string, error) {
	result := map[string]interface{}{
		"config_file": c.configFilePath,
		"attributes":  c.Attributes(),
	}
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func redact(s string) string {
	if s == "" {
		return ""
	}
	return "(redacted)"
}

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "(redacted)"
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "xxxxx")
	}
	return u.String()
}

func firstEnv(names ...string) string {
	for _, name := range names {
		if val := os.Getenv(name); val != "" {
			return val
		}
	}
	return ""
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
