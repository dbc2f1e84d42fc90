package wire

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mac(b byte) MAC {
	return MAC{0x02, 0xaa, 0xaa, 0xaa, 0xaa, b}
}

func TestForgeParseRoundTripSimple(t *testing.T) {
	cmdu := &CMDU{
		MessageVersion: MessageVersion1905_1_2013,
		MessageType:    CMDUTypeTopologyDiscovery,
		MessageID:      42,
		TLVs: []TLV{
			&ALMACAddressTLV{ALMAC: mac(0x01)},
			&MACAddressTLV{MAC: mac(0x02)},
		},
	}

	fragments, err := Forge(cmdu)
	require.NoError(t, err)
	require.Len(t, fragments, 1)

	frag, err := ParseFragment(mac(0x01), Multicast1905, fragments[0])
	require.NoError(t, err)
	assert.True(t, frag.Header.LastFragment)
	assert.False(t, frag.Header.RelayIndicator)

	parsed, err := Parse(frag.Header, [][]byte{frag.Payload})
	require.NoError(t, err)
	assert.Equal(t, cmdu.MessageType, parsed.MessageType)
	assert.Equal(t, cmdu.MessageID, parsed.MessageID)
	require.Len(t, parsed.TLVs, 2)
	assert.Equal(t, mac(0x01), parsed.TLVs[0].(*ALMACAddressTLV).ALMAC)
	assert.Equal(t, mac(0x02), parsed.TLVs[1].(*MACAddressTLV).MAC)
}

func TestForgeRejectsUnexpectedTLV(t *testing.T) {
	cmdu := &CMDU{
		MessageType: CMDUTypeTopologyQuery,
		TLVs:        []TLV{&ALMACAddressTLV{ALMAC: mac(0x01)}},
	}
	_, err := Forge(cmdu)
	assert.Error(t, err)
}

func TestParseMissingRequiredTLV(t *testing.T) {
	// S6: TOPOLOGY_DISCOVERY missing the required AL-MAC TLV.
	stream := EncodeTLVStream([]TLV{&MACAddressTLV{MAC: mac(0x02)}})
	header := Header{MessageVersion: MessageVersion1905_1_2013, MessageType: CMDUTypeTopologyDiscovery, MessageID: 1, LastFragment: true}
	_, err := Parse(header, [][]byte{stream})
	assert.Error(t, err)
}

// TestFragmentationCompleteness covers S2: a TLV stream of about 4000 bytes
// (4197: 220 three-MAC bridging groups) forged with MaxNetworkSegmentSize
// (1478) yields exactly 3 fragments, fragment IDs 0,1,2, only the last
// carries last-fragment, and reassembly reproduces the original CMDU.
func TestFragmentationCompleteness(t *testing.T) {
	var bridging DeviceBridgingCapabilityTLV
	for i := 0; i < 220; i++ {
		m := mac(byte(i % 256))
		bridging.Groups = append(bridging.Groups, []MAC{m, m, m})
	}
	cmdu := &CMDU{
		MessageVersion: MessageVersion1905_1_2013,
		MessageType:    CMDUTypeTopologyResponse,
		MessageID:      7,
		TLVs: []TLV{
			&DeviceInformationTLV{ALMAC: mac(0x01)},
			&bridging,
		},
	}

	fragments, err := Forge(cmdu)
	require.NoError(t, err)
	require.Len(t, fragments, 3)

	reassembler := NewReassembler()
	var result *CMDU
	order := []int{2, 0, 1} // deliberately out of order
	for _, i := range order {
		frag, err := ParseFragment(mac(0x01), Multicast1905, fragments[i])
		require.NoError(t, err)
		assert.Equal(t, uint8(i), frag.Header.FragmentID)
		assert.Equal(t, i == 2, frag.Header.LastFragment)
		out, err := reassembler.Add(frag, time.Now())
		require.NoError(t, err)
		if out != nil {
			result = out
		}
	}
	require.NotNil(t, result)
	require.Len(t, result.TLVs, 2)
	assert.Equal(t, mac(0x01), result.TLVs[0].(*DeviceInformationTLV).ALMAC)
	assert.Len(t, result.TLVs[1].(*DeviceBridgingCapabilityTLV).Groups, 220)
}

func TestReassemblyCanonicalHeaderMismatchDropsGroup(t *testing.T) {
	r := NewReassembler()
	f0 := Fragment{SrcMAC: mac(1), Header: Header{MessageVersion: 0, MessageType: CMDUTypeTopologyResponse, MessageID: 9, FragmentID: 0}, Payload: []byte{1, 2, 3}}
	_, err := r.Add(f0, time.Now())
	require.NoError(t, err)

	f1 := Fragment{SrcMAC: mac(1), Header: Header{MessageVersion: 1, MessageType: CMDUTypeTopologyResponse, MessageID: 9, FragmentID: 1, LastFragment: true}, Payload: []byte{4}}
	_, err = r.Add(f1, time.Now())
	assert.Error(t, err)
}

func TestReassemblyPurge(t *testing.T) {
	r := NewReassembler()
	f0 := Fragment{SrcMAC: mac(1), Header: Header{MessageType: CMDUTypeTopologyResponse, MessageID: 1, FragmentID: 0}, Payload: []byte{1}}
	start := time.Now()
	_, err := r.Add(f0, start)
	require.NoError(t, err)

	r.Purge(start.Add(ReassemblyTimeout))
	assert.Empty(t, r.groups)
}
