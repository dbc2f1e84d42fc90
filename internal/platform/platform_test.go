package platform

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/BroadbandForum/meshComms-sub000/internal/wire"
)

type fakeWriter struct {
	frames [][]byte
}

func (f *fakeWriter) WriteFrame(ifaceName string, frame []byte) error {
	f.frames = append(f.frames, frame)
	return nil
}

func testMAC(b byte) wire.MAC { return wire.MAC{0x02, 0, 0, 0, 0, b} }

func TestSendRawProducesEthernetFrame(t *testing.T) {
	w := &fakeWriter{}
	p := New(w, []InterfaceConfig{{Name: "eth0", MAC: testMAC(1), MediaType: wire.MediaTypeIEEE802_3ab_GigabitEthernet}})

	err := p.SendRaw(testMAC(1), testMAC(2), testMAC(1), wire.EtherType1905, []byte{0xAA, 0xBB})
	require.NoError(t, err)
	require.Len(t, w.frames, 1)
	require.Greater(t, len(w.frames[0]), 14)
}

func TestSendRawUnknownInterfaceErrors(t *testing.T) {
	w := &fakeWriter{}
	p := New(w, nil)
	err := p.SendRaw(testMAC(9), testMAC(2), testMAC(1), wire.EtherType1905, []byte{0x01})
	require.Error(t, err)
}

func TestSendLLDPProducesFrame(t *testing.T) {
	w := &fakeWriter{}
	p := New(w, []InterfaceConfig{{Name: "eth0", MAC: testMAC(1)}})
	require.NoError(t, p.SendLLDP(testMAC(1)))
	require.Len(t, w.frames, 1)
}

func TestGenericPhyInterfacesOnlyListsGenericMedia(t *testing.T) {
	w := &fakeWriter{}
	p := New(w, []InterfaceConfig{
		{Name: "eth0", MAC: testMAC(1), MediaType: wire.MediaTypeIEEE802_3ab_GigabitEthernet},
		{Name: "plc0", MAC: testMAC(2), MediaType: 0xFFF0, Generic: &GenericPHY{OUI: [3]byte{1, 2, 3}, Description: "custom PLC"}},
	})
	entries := p.GenericPhyInterfaces()
	require.Len(t, entries, 1)
	require.Equal(t, testMAC(2), entries[0].MAC)
}

func TestSetInterfacePowerStateUnknownInterfaceErrors(t *testing.T) {
	w := &fakeWriter{}
	p := New(w, nil)
	_, err := p.SetInterfacePowerState(testMAC(1), wire.PowerStateOff)
	require.Error(t, err)
}

func TestSetInterfacePowerStateAppliesChange(t *testing.T) {
	w := &fakeWriter{}
	p := New(w, []InterfaceConfig{{Name: "eth0", MAC: testMAC(1)}})
	result, err := p.SetInterfacePowerState(testMAC(1), wire.PowerStateOff)
	require.NoError(t, err)
	require.Equal(t, wire.PowerStateResultCompleted, result)
}
