package consul

import (
	"context"
	"net/url"
	"strings"
	"sync"

	"github.com/hashicorp/consul/api"

	"github.com/mwantia/carupload/backend"
)

// ConsulBackend stores metadata records and connections in the Consul KV store.
//
// Layout:
//
//	{prefix}/{recordTable}/{namespace}/{recordID}   -> payload
//	{prefix}/{connectionTable}/{connectionID}       -> connection JSON
//
// Path segments are escaped, so namespaces may contain slashes. Consul KV has
// a 512KB limit per value, which bounds metadata payloads.
type ConsulBackend struct {
	mu     sync.RWMutex
	client *api.Client
	kv     *api.KV

	config *ConsulBackendConfig
}

// ConsulBackendConfig contains configuration options for the Consul backend
type ConsulBackendConfig struct {
	// Address of the Consul server (default: "127.0.0.1:8500")
	Address string

	// Token for Consul ACL authentication (optional)
	Token string

	// Datacenter to use (optional)
	Datacenter string

	// Prefix for all keys in Consul KV (default: "carupload")
	Prefix string

	RecordTable     string
	ConnectionTable string
}

// NewConsulBackend creates a new Consul-backed table and registry backend
func NewConsulBackend(config *ConsulBackendConfig) (*ConsulBackend, error) {
	if config == nil {
		config = &ConsulBackendConfig{}
	}

	// Set defaults
	if config.Address == "" {
		config.Address = "127.0.0.1:8500"
	}
	config.Prefix = strings.Trim(config.Prefix, "/")
	if config.Prefix == "" {
		config.Prefix = "carupload"
	}
	if config.RecordTable == "" {
		config.RecordTable = "metaStore"
	}
	if config.ConnectionTable == "" {
		config.ConnectionTable = "connections"
	}

	clientConfig := api.DefaultConfig()
	clientConfig.Address = config.Address
	if config.Token != "" {
		clientConfig.Token = config.Token
	}
	if config.Datacenter != "" {
		clientConfig.Datacenter = config.Datacenter
	}

	client, err := api.NewClient(clientConfig)
	if err != nil {
		return nil, err
	}

	return &ConsulBackend{
		client: client,
		kv:     client.KV(),
		config: config,
	}, nil
}

// Name returns the identifier name defined for this backend
func (*ConsulBackend) Name() string {
	return "consul"
}

// Open checks that the agent is reachable.
func (cb *ConsulBackend) Open(ctx context.Context) error {
	_, err := cb.client.Status().Leader()
	return err
}

// Close is part of the lifecycle behaviour and gets called when closing this backend
func (cb *ConsulBackend) Close(ctx context.Context) error {
	// Nothing to clean up - Consul client is stateless
	return nil
}

// GetCapabilities returns a list of capabilities supported by this backend
func (cb *ConsulBackend) GetCapabilities() *backend.BackendCapabilities {
	return &backend.BackendCapabilities{
		Capabilities: []backend.BackendCapability{
			backend.CapabilityTable,
			backend.CapabilityRegistry,
		},
	}
}

func (cb *ConsulBackend) recordPrefix(namespace string) string {
	return cb.config.Prefix + "/" + cb.config.RecordTable + "/" + backend.NamespacedKey(namespace, "")
}

func (cb *ConsulBackend) recordKey(namespace, recordID string) string {
	return cb.config.Prefix + "/" + cb.config.RecordTable + "/" + backend.NamespacedKey(namespace, recordID)
}

func (cb *ConsulBackend) connectionKey(connectionID string) string {
	return cb.config.Prefix + "/" + cb.config.ConnectionTable + "/" + url.PathEscape(connectionID)
}
