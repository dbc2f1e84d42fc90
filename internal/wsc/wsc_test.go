package wsc

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestM1M2RoundTripDeliversMatchingCredentials(t *testing.T) {
	enrolleeMAC := [6]byte{0x02, 0x00, 0x00, 0x00, 0x00, 0x01}
	dev := DeviceData{
		MACAddress:    enrolleeMAC,
		AuthTypeFlags: 0x0022, // WPA2-Personal | WPA2-Enterprise, illustrative
		EncrTypeFlags: 0x000C, // AES | TKIP, illustrative
		RFBand:        0x01,  // 5 GHz
	}

	m1, enrolleeInfo, err := BuildM1(dev)
	require.NoError(t, err)
	require.NotEmpty(t, m1)
	require.Equal(t, MsgTypeM1, GetType(m1))

	registrarInfo, err := ParseM1(m1)
	require.NoError(t, err)
	require.Equal(t, dev.MACAddress, registrarInfo.MACAddress)
	require.Equal(t, dev.RFBand, registrarInfo.RFBand)

	profile := RegistrarProfile{
		RFBand:    0x01,
		AuthTypes: 0x0022,
		EncrTypes: 0x000C,
		Credentials: []Credential{
			{
				SSID:       []byte("mesh-backhaul"),
				BSSID:      [6]byte{0x02, 0x00, 0x00, 0x00, 0x00, 0x02},
				AuthType:   0x0020,
				EncrType:   0x0008,
				NetworkKey: []byte("correct horse battery staple"),
			},
		},
	}
	require.True(t, profile.Matches(dev.RFBand, dev.AuthTypeFlags, dev.EncrTypeFlags))

	m2, err := BuildM2(registrarInfo, profile)
	require.NoError(t, err)
	require.Equal(t, MsgTypeM2, GetType(m2))

	creds, err := ProcessM2(enrolleeInfo, m2)
	require.NoError(t, err)
	require.Len(t, creds, 1)
	require.True(t, bytes.Equal(profile.Credentials[0].SSID, creds[0].SSID))
	require.Equal(t, profile.Credentials[0].BSSID, creds[0].BSSID)
	require.Equal(t, profile.Credentials[0].AuthType, creds[0].AuthType)
	require.Equal(t, profile.Credentials[0].EncrType, creds[0].EncrType)
	require.True(t, bytes.Equal(profile.Credentials[0].NetworkKey, creds[0].NetworkKey))
}

func TestProcessM2RejectsTamperedAuthenticator(t *testing.T) {
	dev := DeviceData{MACAddress: [6]byte{0x02, 0, 0, 0, 0, 1}, AuthTypeFlags: 0x0020, EncrTypeFlags: 0x0008, RFBand: 0x00}
	m1, enrolleeInfo, err := BuildM1(dev)
	require.NoError(t, err)
	registrarInfo, err := ParseM1(m1)
	require.NoError(t, err)

	profile := RegistrarProfile{
		RFBand: 0x00, AuthTypes: 0x0020, EncrTypes: 0x0008,
		Credentials: []Credential{{SSID: []byte("x"), AuthType: 0x0020, EncrType: 0x0008, NetworkKey: []byte("secret")}},
	}
	m2, err := BuildM2(registrarInfo, profile)
	require.NoError(t, err)

	tampered := append([]byte(nil), m2...)
	tampered[len(tampered)-1] ^= 0xFF

	_, err = ProcessM2(enrolleeInfo, tampered)
	require.Error(t, err)
}

func TestGetTypeUnknownForGarbage(t *testing.T) {
	require.Equal(t, MsgTypeUnknown, GetType([]byte{0x01, 0x02}))
	require.Equal(t, MsgTypeUnknown, GetType(nil))
}

func TestRegistryEnrolleeLifecycle(t *testing.T) {
	reg := NewRegistry()
	radio := [6]byte{0xAA, 0, 0, 0, 0, 1}
	e := reg.Get(radio)
	require.Equal(t, StateIdle, e.FSM.Current())

	e.BeginSearch()
	require.Equal(t, StateSearchSent, e.FSM.Current())

	dev := DeviceData{MACAddress: [6]byte{0x02, 0, 0, 0, 0, 9}, AuthTypeFlags: 0x20, EncrTypeFlags: 0x8, RFBand: 0}
	_, m1Info, err := BuildM1(dev)
	require.NoError(t, err)
	e.BeginM1(m1Info)
	require.Equal(t, StateM1Sent, e.FSM.Current())
	require.True(t, e.NeedsSearch())

	e.RejectM2()
	require.Equal(t, StateM1Sent, e.FSM.Current())

	e.AcceptM2()
	require.Equal(t, StateConfigured, e.FSM.Current())
	require.False(t, e.NeedsSearch())
	require.Nil(t, e.M1)
}
