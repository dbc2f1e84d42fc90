package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const sampleYAML = `
al_mac: "02:00:00:00:00:01"
friendly_name: "test node"
interfaces:
  - name: eth0
    mac: "02:00:00:00:00:01"
    media_type: 1
registrar_profiles:
  - band: 1
    ssid: "mesh-5g"
    auth_types: 32
    encr_types: 8
    network_key: "supersecret"
`

func TestParseAppliesDefaultsAndValidates(t *testing.T) {
	cfg, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)
	require.Equal(t, "test node", cfg.FriendlyName)
	require.Equal(t, 60*time.Second, cfg.DiscoveryInterval)
	require.Len(t, cfg.Interfaces, 1)
	require.Len(t, cfg.RegistrarProfiles, 1)
}

func TestParseRejectsMissingInterfaces(t *testing.T) {
	_, err := Parse([]byte(`al_mac: "02:00:00:00:00:01"`))
	require.Error(t, err)
}

func TestParseRejectsBadMAC(t *testing.T) {
	_, err := Parse([]byte(`
al_mac: "not-a-mac"
interfaces:
  - name: eth0
    mac: "02:00:00:00:00:01"
`))
	require.Error(t, err)
}

func TestMergeProfilesKeepsUnsetFieldsFromBase(t *testing.T) {
	base := []RegistrarProfile{{Band: 1, SSID: "base-ssid", AuthTypes: 32, EncrTypes: 8, NetworkKey: "basekey"}}
	overrides := []RegistrarProfile{{Band: 1, NetworkKey: "rotatedkey"}}

	merged, err := MergeProfiles(base, overrides)
	require.NoError(t, err)
	require.Len(t, merged, 1)
	require.Equal(t, "base-ssid", merged[0].SSID)
	require.Equal(t, "rotatedkey", merged[0].NetworkKey)
}

func TestMergeProfilesAddsNewBand(t *testing.T) {
	base := []RegistrarProfile{{Band: 1, SSID: "5g"}}
	overrides := []RegistrarProfile{{Band: 0, SSID: "2g"}}

	merged, err := MergeProfiles(base, overrides)
	require.NoError(t, err)
	require.Len(t, merged, 2)
}
