package apconfig

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/BroadbandForum/meshComms-sub000/internal/datamodel"
	"github.com/BroadbandForum/meshComms-sub000/internal/mid"
	"github.com/BroadbandForum/meshComms-sub000/internal/send"
	"github.com/BroadbandForum/meshComms-sub000/internal/wire"
	"github.com/BroadbandForum/meshComms-sub000/internal/wsc"
)

type recordingSink struct {
	frames [][]byte
}

func (s *recordingSink) SendRaw(ifaceMAC, dstMAC, srcMAC wire.MAC, etherType uint16, payload []byte) error {
	s.frames = append(s.frames, append([]byte(nil), payload...))
	return nil
}

func testMAC(b byte) wire.MAC { return wire.MAC{0x02, 0, 0, 0, 0, b} }

// newController builds a Controller wired to its own database, talking to
// itself through a recording sink so the builder methods it calls can be
// inspected without a real socket.
func newController(t *testing.T, almac wire.MAC, profiles []wsc.RegistrarProfile) (*Controller, *datamodel.Database, *recordingSink) {
	t.Helper()
	db := datamodel.New(almac)
	sink := &recordingSink{}
	builder := send.New(db, mid.New(), sink)
	return New(db, builder, profiles), db, sink
}

func TestHandleSearchRepliesOnlyWhenBandOffered(t *testing.T) {
	profiles := []wsc.RegistrarProfile{{RFBand: 1, AuthTypes: 0x20, EncrTypes: 0x08}}
	c, _, sink := newController(t, testMAC(1), profiles)

	tlvs := []wire.TLV{
		&wire.SearchedRoleTLV{Role: wire.RoleRegistrar},
		&wire.AutoconfigFreqBandTLV{Band: 1},
	}
	c.HandleSearch(testMAC(1), testMAC(2), 7, tlvs)
	require.Len(t, sink.frames, 1)

	sink.frames = nil
	c.HandleSearch(testMAC(1), testMAC(2), 7, []wire.TLV{
		&wire.SearchedRoleTLV{Role: wire.RoleRegistrar},
		&wire.AutoconfigFreqBandTLV{Band: 0},
	})
	require.Empty(t, sink.frames, "no profile offers band 0")
}

func TestHandleSearchIgnoresNonRegistrarRole(t *testing.T) {
	profiles := []wsc.RegistrarProfile{{RFBand: 1}}
	c, _, sink := newController(t, testMAC(1), profiles)

	c.HandleSearch(testMAC(1), testMAC(2), 1, []wire.TLV{
		&wire.SearchedRoleTLV{Role: 0xFF},
		&wire.AutoconfigFreqBandTLV{Band: 1},
	})
	require.Empty(t, sink.frames)
}

func TestHandleSearchOmitsSupportedServiceUnlessRequestNamedOne(t *testing.T) {
	profiles := []wsc.RegistrarProfile{{RFBand: 1}}
	c, db, sink := newController(t, testMAC(1), profiles)
	db.LocalDevice().SupportedServices[datamodel.ServiceAgent] = true

	c.HandleSearch(testMAC(1), testMAC(2), 7, []wire.TLV{
		&wire.SearchedRoleTLV{Role: wire.RoleRegistrar},
		&wire.AutoconfigFreqBandTLV{Band: 1},
	})
	require.Len(t, sink.frames, 1)
	cmdu := decodeCMDU(t, sink.frames[0])
	_, ok := firstOfType[*wire.SupportedServiceTLV](cmdu.TLVs, wire.TLVTypeSupportedService)
	require.False(t, ok, "search named no service TLV, response must not include one")

	sink.frames = nil
	c.HandleSearch(testMAC(1), testMAC(2), 7, []wire.TLV{
		&wire.SearchedRoleTLV{Role: wire.RoleRegistrar},
		&wire.AutoconfigFreqBandTLV{Band: 1},
		&wire.SearchedServiceTLV{Services: []uint8{wire.ServiceMultiAPAgent}},
	})
	require.Len(t, sink.frames, 1)
	cmdu = decodeCMDU(t, sink.frames[0])
	supported, ok := firstOfType[*wire.SupportedServiceTLV](cmdu.TLVs, wire.TLVTypeSupportedService)
	require.True(t, ok, "search named a searched-service TLV, response must include supported-service")
	require.Contains(t, supported.Services, uint8(datamodel.ServiceAgent))
}

func TestHandleSearchDoesNotRespondWhenSearchedServiceNamesControllerAndLocalIsNot(t *testing.T) {
	profiles := []wsc.RegistrarProfile{{RFBand: 1}}
	c, _, sink := newController(t, testMAC(1), profiles)

	c.HandleSearch(testMAC(1), testMAC(2), 7, []wire.TLV{
		&wire.SearchedRoleTLV{Role: wire.RoleRegistrar},
		&wire.AutoconfigFreqBandTLV{Band: 1},
		&wire.SearchedServiceTLV{Services: []uint8{wire.ServiceMultiAPController}},
	})
	require.Empty(t, sink.frames, "local node is not a controller, must not respond")
}

func TestHandleSearchRespondsWhenSearchedServiceNamesControllerAndLocalIs(t *testing.T) {
	profiles := []wsc.RegistrarProfile{{RFBand: 1}}
	c, db, sink := newController(t, testMAC(1), profiles)
	db.LocalDevice().SupportedServices[datamodel.ServiceController] = true

	c.HandleSearch(testMAC(1), testMAC(2), 7, []wire.TLV{
		&wire.SearchedRoleTLV{Role: wire.RoleRegistrar},
		&wire.AutoconfigFreqBandTLV{Band: 1},
		&wire.SearchedServiceTLV{Services: []uint8{wire.ServiceMultiAPController}},
	})
	require.Len(t, sink.frames, 1)
}

func TestHandleResponseSendsM1ForUnconfiguredRadioOnly(t *testing.T) {
	c, db, sink := newController(t, testMAC(1), nil)
	local := db.LocalDevice()
	local.Radios = map[wire.MAC]*datamodel.Radio{
		testMAC(10): {UID: testMAC(10), SupportedBands: []uint8{1}, BSSes: map[wire.MAC]*datamodel.BSS{}},
		testMAC(11): {UID: testMAC(11), SupportedBands: []uint8{1}, BSSes: map[wire.MAC]*datamodel.BSS{
			testMAC(99): {BSSID: testMAC(99)},
		}},
	}

	c.HandleResponse(testMAC(1), testMAC(2), []wire.TLV{&wire.SupportedFreqBandTLV{Band: 1}})

	require.Len(t, sink.frames, 1, "only the unconfigured radio should send M1")
	enrollee := c.enrollees.Get(testMAC(10))
	require.Equal(t, wsc.StateM1Sent, enrollee.FSM.Current())
	require.NotNil(t, enrollee.M1)
}

func TestFullRegistrarEnrolleeHandshakeConfiguresRadio(t *testing.T) {
	profile := wsc.RegistrarProfile{
		RFBand:    1,
		AuthTypes: 0x20,
		EncrTypes: 0x08,
		Credentials: []wsc.Credential{{
			SSID:       []byte("mesh-5g"),
			BSSID:      testMAC(50),
			AuthType:   0x20,
			EncrType:   0x08,
			NetworkKey: []byte("supersecretkey"),
		}},
	}
	registrar, _, registrarSink := newController(t, testMAC(1), []wsc.RegistrarProfile{profile})
	enrolleeCtl, enrolleeDB, enrolleeSink := newController(t, testMAC(2), nil)

	local := enrolleeDB.LocalDevice()
	radioUID := testMAC(10)
	local.Radios = map[wire.MAC]*datamodel.Radio{
		radioUID: {UID: radioUID, MaxBSS: 4, SupportedBands: []uint8{1}, BSSes: map[wire.MAC]*datamodel.BSS{}},
	}

	enrolleeCtl.HandleResponse(testMAC(2), testMAC(1), []wire.TLV{&wire.SupportedFreqBandTLV{Band: 1}})
	require.Len(t, enrolleeSink.frames, 1)
	m1 := extractWSCPayload(t, enrolleeSink.frames[0])

	registrar.HandleWSC(testMAC(1), testMAC(2), 42, []wire.TLV{
		&wire.APRadioIdentifierTLV{RadioUID: radioUID},
		&wire.WSCTLV{Data: m1},
	})
	require.Len(t, registrarSink.frames, 1)
	m2 := extractWSCPayload(t, registrarSink.frames[0])

	enrolleeCtl.HandleWSC(testMAC(2), testMAC(1), 42, []wire.TLV{
		&wire.APRadioIdentifierTLV{RadioUID: radioUID},
		&wire.WSCTLV{Data: m2},
	})

	radio := local.Radios[radioUID]
	require.True(t, radio.HasConfiguredBSS())
	bss, ok := radio.BSSes[testMAC(50)]
	require.True(t, ok)
	require.Equal(t, []byte("mesh-5g"), bss.SSID)
	require.Equal(t, []byte("supersecretkey"), bss.NetworkKey)

	enrollee := enrolleeCtl.enrollees.Get(radioUID)
	require.Equal(t, wsc.StateConfigured, enrollee.FSM.Current())
	require.Nil(t, enrollee.M1)
}

func TestHandleWSCM2WithNoOutstandingM1IsDropped(t *testing.T) {
	c, db, _ := newController(t, testMAC(2), nil)
	radioUID := testMAC(10)
	db.LocalDevice().Radios = map[wire.MAC]*datamodel.Radio{
		radioUID: {UID: radioUID, BSSes: map[wire.MAC]*datamodel.BSS{}},
	}

	c.HandleWSC(testMAC(2), testMAC(1), 1, []wire.TLV{
		&wire.APRadioIdentifierTLV{RadioUID: radioUID},
		&wire.WSCTLV{Data: []byte{0x10, 0x22, 0x00, 0x01, 0x05}},
	})

	require.False(t, db.LocalDevice().Radios[radioUID].HasConfiguredBSS())
}

// decodeCMDU parses a single forged fragment back into a CMDU so a test can
// inspect which TLVs a builder call actually produced.
func decodeCMDU(t *testing.T, fragment []byte) *wire.CMDU {
	t.Helper()
	frag, err := wire.ParseFragment(testMAC(0), testMAC(0), fragment)
	require.NoError(t, err)
	cmdu, err := wire.Parse(frag.Header, [][]byte{frag.Payload})
	require.NoError(t, err)
	return cmdu
}

// extractWSCPayload pulls the single WSC TLV's raw bytes back out of a
// forged CMDU fragment so the test can feed it into the opposite role
// without re-implementing the wire codec.
func extractWSCPayload(t *testing.T, fragment []byte) []byte {
	t.Helper()
	cmdu := decodeCMDU(t, fragment)
	for _, tlv := range cmdu.TLVs {
		if w, ok := tlv.(*wire.WSCTLV); ok {
			return w.Data
		}
	}
	t.Fatal("no WSC TLV in forged fragment")
	return nil
}
