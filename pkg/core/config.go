/*
 * Copyright 2025 OpenPrinting.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package core

import (
	"fmt"
	"os"
	"time"

	"github.com/zdohnal/cups-browsed/pkg/dispatch"
	"github.com/zdohnal/cups-browsed/pkg/logger"
	"github.com/zdohnal/cups-browsed/pkg/models"
	"github.com/zdohnal/cups-browsed/pkg/naming"
	"github.com/zdohnal/cups-browsed/pkg/policy"
)

// FilterSpec is one configured browse filter.
type FilterSpec struct {
	Sense   string `json:"sense,omitempty"`
	Field   string `json:"field"`
	Pattern string `json:"pattern,omitempty"`
}

// ClusterSpec is one configured manual cluster.
type ClusterSpec struct {
	Name    string   `json:"name"`
	Members []string `json:"members"`
}

// Config is the daemon configuration.
type Config struct {
	// Spooler addressing.
	SpoolerHost string `json:"spooler_host,omitempty"`
	SpoolerPort int    `json:"spooler_port,omitempty"`

	CacheDir      string `json:"cache_dir,omitempty"`
	DescriptorDir string `json:"descriptor_dir,omitempty"`

	// Discovery.
	BrowseDNSSD    bool            `json:"browse_dnssd"`
	BrowseDomain   string          `json:"browse_domain,omitempty"`
	BrowsePoll     []string        `json:"browse_poll,omitempty"`
	BrowseInterval models.Duration `json:"browse_interval,omitempty"`
	BrowseTimeout  models.Duration `json:"browse_timeout,omitempty"`

	// Access control and filters.
	BrowseOrder   string       `json:"browse_order,omitempty"`
	BrowseAllow   []string     `json:"browse_allow,omitempty"`
	BrowseDeny    []string     `json:"browse_deny,omitempty"`
	BrowseFilters []FilterSpec `json:"browse_filters,omitempty"`

	// Naming and clustering.
	RemoteQueueNaming  string        `json:"remote_queue_naming,omitempty"`
	PrinterQueueNaming string        `json:"printer_queue_naming,omitempty"`
	Clusters           []ClusterSpec `json:"clusters,omitempty"`
	AutoClustering     bool          `json:"auto_clustering"`
	LoadBalancing      string        `json:"load_balancing,omitempty"`

	// Queue behavior.
	KeepQueues    bool            `json:"keep_generated_queues"`
	ShareQueues   bool            `json:"share_queues"`
	ConfirmWindow models.Duration `json:"confirm_window,omitempty"`

	// Reconciler tuning.
	MaxQueuesPerTick  int             `json:"max_queues_per_tick,omitempty"`
	PauseBetweenTicks models.Duration `json:"pause_between_ticks,omitempty"`
	RetryInterval     models.Duration `json:"retry_interval,omitempty"`
	MaxRetries        int             `json:"max_retries,omitempty"`

	// RPC timeouts, separate for the local spooler and remote endpoints.
	LocalTimeout  models.Duration `json:"local_timeout,omitempty"`
	RemoteTimeout models.Duration `json:"remote_timeout,omitempty"`

	NotifyPollInterval models.Duration `json:"notify_poll_interval,omitempty"`

	// Auto shutdown.
	AutoShutdown        bool            `json:"auto_shutdown"`
	AutoShutdownOn      string          `json:"auto_shutdown_on,omitempty"`
	AutoShutdownTimeout models.Duration `json:"auto_shutdown_timeout,omitempty"`

	Logging *logger.Config `json:"logging,omitempty"`
}

var (
	errBrowseTimeoutTooShort = fmt.Errorf("browse_timeout must be at least browse_interval")
	errNoDiscovery           = fmt.Errorf("no discovery source configured: enable browse_dnssd or set browse_poll")
	errBadClusterName        = fmt.Errorf("invalid manual cluster name")
)

// Validate implements config.Validator.
func (c *Config) Validate() error {
	if c.SpoolerHost == "" {
		c.SpoolerHost = envOrDefault("CUPS_SERVER", "localhost")
	}

	if c.SpoolerPort <= 0 {
		c.SpoolerPort = 631
	}

	if c.CacheDir == "" {
		c.CacheDir = envOrDefault("CUPS_BROWSED_CACHE_DIR", "/var/cache/cups-browsed")
	}

	if c.DescriptorDir == "" {
		c.DescriptorDir = os.TempDir()
	}

	if !c.BrowseDNSSD && len(c.BrowsePoll) == 0 {
		return errNoDiscovery
	}

	if c.BrowseInterval <= 0 {
		c.BrowseInterval = models.Duration(60 * time.Second)
	}

	if c.BrowseTimeout <= 0 {
		c.BrowseTimeout = models.Duration(5 * time.Minute)
	}

	// A poll interval beyond the browse timeout would retire every polled
	// queue between polls.
	if len(c.BrowsePoll) > 0 && c.BrowseTimeout < c.BrowseInterval {
		return errBrowseTimeoutTooShort
	}

	if c.ConfirmWindow <= 0 {
		c.ConfirmWindow = models.Duration(time.Minute)
	}

	if c.MaxQueuesPerTick <= 0 {
		c.MaxQueuesPerTick = 5
	}

	if c.PauseBetweenTicks <= 0 {
		c.PauseBetweenTicks = models.Duration(time.Second)
	}

	if c.RetryInterval <= 0 {
		c.RetryInterval = models.Duration(30 * time.Second)
	}

	if c.MaxRetries <= 0 {
		c.MaxRetries = 5
	}

	if c.LocalTimeout <= 0 {
		c.LocalTimeout = models.Duration(10 * time.Second)
	}

	if c.RemoteTimeout <= 0 {
		c.RemoteTimeout = models.Duration(15 * time.Second)
	}

	if c.NotifyPollInterval <= 0 {
		c.NotifyPollInterval = models.Duration(2 * time.Second)
	}

	if c.AutoShutdownTimeout <= 0 {
		c.AutoShutdownTimeout = models.Duration(30 * time.Second)
	}

	for _, cluster := range c.Clusters {
		if !naming.ValidQueueName(cluster.Name) {
			return fmt.Errorf("%w: %q", errBadClusterName, cluster.Name)
		}
	}

	return nil
}

func (c *Config) browseOrder() policy.BrowseOrder {
	if c.BrowseOrder == string(policy.OrderDenyAllow) {
		return policy.OrderDenyAllow
	}

	return policy.OrderAllowDeny
}

func (c *Config) loadBalancing() dispatch.Policy {
	if c.LoadBalancing == string(dispatch.PolicyServerQueueing) {
		return dispatch.PolicyServerQueueing
	}

	return dispatch.PolicyClientQueueing
}

func (c *Config) shutdownVariant() policy.ShutdownVariant {
	if c.AutoShutdownOn == string(policy.ShutdownOnNoJobs) {
		return policy.ShutdownOnNoJobs
	}

	return policy.ShutdownOnNoQueues
}

func (c *Config) manualClusters() []naming.ManualCluster {
	clusters := make([]naming.ManualCluster, 0, len(c.Clusters))

	for _, cluster := range c.Clusters {
		clusters = append(clusters, naming.ManualCluster{
			Name:    cluster.Name,
			Members: cluster.Members,
		})
	}

	return clusters
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}

	return fallback
}
