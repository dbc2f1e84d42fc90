// Package config loads the node's static runtime configuration, §10.2:
// the AL MAC and identity, local interface bindings, discovery intervals,
// whole-network-map toggle, and the WSC registrar profiles offered locally.
// Modeled on the teacher's YAML-backed GlobalConfig/ServiceYaml pattern.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/imdario/mergo"
	"gopkg.in/yaml.v2"

	"github.com/BroadbandForum/meshComms-sub000/internal/wire"
)

// Interface binds a local interface's wire identity to its platform-level
// name, §10.2.
type Interface struct {
	Name      string `yaml:"name"`
	MAC       string `yaml:"mac"`
	MediaType uint16 `yaml:"media_type"`
}

// RegistrarProfile is the YAML form of one WSC registrar credential set this
// node offers, §6 "Implementations MAY persist the registrar credential
// set".
type RegistrarProfile struct {
	Band       uint8    `yaml:"band"`
	SSID       string   `yaml:"ssid"`
	AuthTypes  uint16   `yaml:"auth_types"`
	EncrTypes  uint16   `yaml:"encr_types"`
	NetworkKey string   `yaml:"network_key"`
	BSSID      string   `yaml:"bssid,omitempty"`
}

// Config is the complete node configuration, §10.2.
type Config struct {
	ALMAC            string             `yaml:"al_mac"`
	FriendlyName     string             `yaml:"friendly_name"`
	ManufacturerName string             `yaml:"manufacturer_name"`
	ModelName        string             `yaml:"model_name"`
	ControlURL       string             `yaml:"control_url,omitempty"`

	Interfaces []Interface `yaml:"interfaces"`

	DiscoveryInterval time.Duration `yaml:"discovery_interval"`
	WholeNetworkMap   bool          `yaml:"whole_network_map"`

	RegistrarProfiles []RegistrarProfile `yaml:"registrar_profiles,omitempty"`
}

// defaults holds the values applied to any field left zero after loading,
// via mergo so an operator's partial YAML only needs to name what it
// overrides.
func defaults() Config {
	return Config{
		FriendlyName:      "1905 AL device",
		DiscoveryInterval: 60 * time.Second,
	}
}

// Load reads and parses a YAML configuration file, filling unset fields
// from defaults().
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	return Parse(data)
}

// Parse parses YAML configuration data, filling unset fields from
// defaults().
func Parse(data []byte) (*Config, error) {
	cfg := Config{}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parsing YAML: %w", err)
	}
	merged := defaults()
	if err := mergo.Merge(&merged, cfg, mergo.WithOverride); err != nil {
		return nil, fmt.Errorf("config: merging defaults: %w", err)
	}
	if err := merged.Validate(); err != nil {
		return nil, err
	}
	return &merged, nil
}

// Validate reports the first structural problem found: an unparsable MAC,
// or no local interfaces at all.
func (c *Config) Validate() error {
	if _, err := ParseMAC(c.ALMAC); err != nil {
		return fmt.Errorf("config: al_mac: %w", err)
	}
	if len(c.Interfaces) == 0 {
		return fmt.Errorf("config: at least one interface is required")
	}
	for _, ifc := range c.Interfaces {
		if _, err := ParseMAC(ifc.MAC); err != nil {
			return fmt.Errorf("config: interface %q mac: %w", ifc.Name, err)
		}
	}
	for _, p := range c.RegistrarProfiles {
		if p.BSSID != "" {
			if _, err := ParseMAC(p.BSSID); err != nil {
				return fmt.Errorf("config: registrar profile bssid: %w", err)
			}
		}
	}
	return nil
}

// ParseMAC parses a colon-separated MAC address string into a wire.MAC.
func ParseMAC(s string) (wire.MAC, error) {
	var m wire.MAC
	n, err := fmt.Sscanf(s, "%02x:%02x:%02x:%02x:%02x:%02x", &m[0], &m[1], &m[2], &m[3], &m[4], &m[5])
	if err != nil || n != 6 {
		return wire.MAC{}, fmt.Errorf("invalid MAC address %q", s)
	}
	return m, nil
}

// MergeProfiles applies an override list over the base registrar profile
// list, matching by Band and keeping any base field the override leaves
// zero, §11's "merging a partial runtime config/profile update ... without
// clobbering unset fields".
func MergeProfiles(base, overrides []RegistrarProfile) ([]RegistrarProfile, error) {
	byBand := make(map[uint8]RegistrarProfile, len(base))
	order := make([]uint8, 0, len(base))
	for _, p := range base {
		byBand[p.Band] = p
		order = append(order, p.Band)
	}
	for _, o := range overrides {
		existing, ok := byBand[o.Band]
		if !ok {
			byBand[o.Band] = o
			order = append(order, o.Band)
			continue
		}
		if err := mergo.Merge(&existing, o, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("config: merging registrar profile for band %d: %w", o.Band, err)
		}
		byBand[o.Band] = existing
	}
	merged := make([]RegistrarProfile, 0, len(order))
	for _, band := range order {
		merged = append(merged, byBand[band])
	}
	return merged, nil
}
