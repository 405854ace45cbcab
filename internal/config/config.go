package config

import "time"

// Config holds the controller's full runtime configuration, validated once
// at startup. Field names follow the environment variables from spec.md §6.
type Config struct {
	// DatabaseURL is the policy repository endpoint. Required; its absence
	// is the one fatal misconfiguration spec.md §7 names.
	DatabaseURL string

	// ZKHosts are the coordination service endpoints from ZK_HOSTS. They
	// are required and validated at startup but not used to reach the
	// coordination service: leader election goes through the shared
	// Kubernetes clientset built by internal/kube.
	ZKHosts []string

	// PolicyPollInterval is how often the Policy Poller reloads enabled
	// policies while leader.
	PolicyPollInterval time.Duration

	// LeaderElectionPath is the coordination-service lock path.
	LeaderElectionPath string

	// SwitchListenPort is the TCP port the Switch Session Manager listens
	// on for incoming switch connections.
	SwitchListenPort int

	// NodeName/PodNamespace are sourced from the Kubernetes downward API.
	// PodNamespace is the namespace of the leader-election Lease; NodeName
	// is read but not used elsewhere. The lease-holder identity comes from
	// leader.PodIdentity (POD_NAME or HOSTNAME).
	NodeName     string
	PodNamespace string

	// HealthAddr serves /healthz, /readyz, and /metrics.
	HealthAddr string

	// LogLevel and Development control internal/logging's output shape.
	LogLevel    string
	Development bool
}

// Load reads and validates the environment, returning an aggregate error
// naming every missing or malformed variable if any are invalid.
func Load() (*Config, error) {
	v := NewValidator()

	cfg := &Config{
		DatabaseURL:        v.RequireURL("DATABASE_URL"),
		ZKHosts:            v.RequireCSV("ZK_HOSTS"),
		PolicyPollInterval: time.Duration(v.OptionalInt("POLICY_POLL_INTERVAL_SECONDS", 5)) * time.Second,
		LeaderElectionPath: v.OptionalString("LEADER_ELECTION_PATH", "/sdn/controller_election"),
		SwitchListenPort:   v.OptionalInt("SWITCH_LISTEN_PORT", 6653),
		NodeName:           v.OptionalString("NODE_NAME", "unknown-node"),
		PodNamespace:       v.OptionalString("POD_NAMESPACE", "default"),
		HealthAddr:         v.OptionalString("HEALTH_ADDR", ":8080"),
		LogLevel:           v.OptionalString("LOG_LEVEL", "info"),
		Development:        v.OptionalBool("DEVELOPMENT", false),
	}

	if err := v.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
