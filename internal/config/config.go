// Package config holds the suite configuration: which resources to track,
// the ingress hostname, and the per-kind base timeouts. Values come from an
// optional YAML file overlaid on defaults that match the hello-flask
// manifests.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the suite configuration.
type Config struct {
	Namespace     string `yaml:"namespace"`
	Deployment    string `yaml:"deployment"`
	Service       string `yaml:"service"`
	Ingress       string `yaml:"ingress"`
	LabelSelector string `yaml:"label_selector"`

	// IngressHost is the virtual host the ingress routes, used directly in
	// local runs and as a Host header in CI.
	IngressHost string `yaml:"ingress_host"`

	// NodeAddress overrides the CLUSTER_NODE_IP environment variable.
	NodeAddress string `yaml:"node_address"`

	PollInterval Duration `yaml:"poll_interval"`
	Timeouts     Timeouts `yaml:"timeouts"`
}

// Timeouts are base timeouts per wait kind, before environment scaling.
type Timeouts struct {
	PodReady        Duration `yaml:"pod_ready"`
	PodDelete       Duration `yaml:"pod_delete"`
	DeploymentReady Duration `yaml:"deployment_ready"`
	ServiceReady    Duration `yaml:"service_ready"`
	IngressReady    Duration `yaml:"ingress_ready"`
	HTTPRequest     Duration `yaml:"http_request"`
}

// Default returns the configuration for a stock hello-flask deployment.
// Timeouts are the local-run values; CI gets longer waits through the
// profile multiplier, not a second table.
func Default() Config {
	return Config{
		Namespace:     "default",
		Deployment:    "hello-flask",
		Service:       "hello-flask",
		Ingress:       "hello-flask-ingress",
		LabelSelector: "app=hello-flask",
		IngressHost:   "hello-flask.local",
		PollInterval:  Duration{2 * time.Second},
		Timeouts: Timeouts{
			PodReady:        Duration{60 * time.Second},
			PodDelete:       Duration{30 * time.Second},
			DeploymentReady: Duration{90 * time.Second},
			ServiceReady:    Duration{30 * time.Second},
			IngressReady:    Duration{60 * time.Second},
			HTTPRequest:     Duration{5 * time.Second},
		},
	}
}

// Load reads a config file over the defaults. An empty path returns the
// defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the fields a run cannot proceed without.
func (c Config) Validate() error {
	if c.Namespace == "" {
		return fmt.Errorf("namespace is required")
	}
	if c.Deployment == "" || c.Service == "" {
		return fmt.Errorf("deployment and service names are required")
	}
	if c.LabelSelector == "" {
		return fmt.Errorf("label_selector is required")
	}
	if c.PollInterval.Duration <= 0 {
		return fmt.Errorf("poll_interval must be positive")
	}
	return nil
}

// Duration wraps time.Duration to support YAML unmarshaling from strings
// like "90s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	d.Duration = dur
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return d.Duration.String(), nil
}
