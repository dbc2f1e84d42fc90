// Package platform implements the thin collaborator layer named in §6: raw
// Ethernet/LLDP framing (via gopacket/layers) on top of an injected
// per-interface frame writer, plus the local interface/power-state/generic-
// PHY facts the core asks about. It satisfies send.FrameSink,
// dispatch.Platform and discovery.LLDPSender.
package platform

import (
	"fmt"
	"sync"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	log "github.com/sirupsen/logrus"

	"github.com/BroadbandForum/meshComms-sub000/internal/wire"
)

var platformLogger = log.WithFields(log.Fields{"module": "platform"})

// FrameWriter writes one already-framed Ethernet frame out a named local
// interface. A real deployment backs this with an AF_PACKET socket or a
// libpcap handle; this package only owns the framing, not the I/O.
type FrameWriter interface {
	WriteFrame(ifaceName string, frame []byte) error
}

// InterfaceConfig is the static description of one local interface this
// platform instance manages.
type InterfaceConfig struct {
	Name      string
	MAC       wire.MAC
	MediaType uint16
	Generic   *GenericPHY // non-nil if MediaType isn't one the standard enumerates
}

// GenericPHY names a non-standard local interface's identification, §4.4
// GENERIC_PHY_QUERY handler.
type GenericPHY struct {
	OUI               [3]byte
	Variant           uint8
	Description       string
	URL               string
	MediaSpecificData []byte
}

// Platform is the concrete collaborator: local interfaces plus a
// FrameWriter to actually move bytes.
type Platform struct {
	writer FrameWriter

	mu          sync.Mutex
	interfaces  map[wire.MAC]InterfaceConfig
	powerStates map[wire.MAC]uint8
}

// New returns a Platform managing the given interfaces and writing frames
// through writer.
func New(writer FrameWriter, interfaces []InterfaceConfig) *Platform {
	p := &Platform{writer: writer, interfaces: make(map[wire.MAC]InterfaceConfig), powerStates: make(map[wire.MAC]uint8)}
	for _, ifc := range interfaces {
		p.interfaces[ifc.MAC] = ifc
		p.powerStates[ifc.MAC] = wire.PowerStateOn
	}
	return p
}

func (p *Platform) ifaceName(ifaceMAC wire.MAC) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	ifc, ok := p.interfaces[ifaceMAC]
	if !ok {
		return "", fmt.Errorf("platform: unknown local interface %s", ifaceMAC.String())
	}
	return ifc.Name, nil
}

// SendRaw implements send.FrameSink: wraps payload in an Ethernet header and
// hands the serialized frame to the FrameWriter.
func (p *Platform) SendRaw(ifaceMAC, dstMAC, srcMAC wire.MAC, etherType uint16, payload []byte) error {
	name, err := p.ifaceName(ifaceMAC)
	if err != nil {
		return err
	}
	eth := &layers.Ethernet{
		SrcMAC:       srcMAC[:],
		DstMAC:       dstMAC[:],
		EthernetType: layers.EthernetType(etherType),
	}
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true}
	if err := gopacket.SerializeLayers(buf, opts, eth, gopacket.Payload(payload)); err != nil {
		return fmt.Errorf("platform: serializing Ethernet frame: %w", err)
	}
	if err := p.writer.WriteFrame(name, buf.Bytes()); err != nil {
		return fmt.Errorf("platform: writing frame on %s: %w", name, err)
	}
	return nil
}

// SendLLDP implements discovery.LLDPSender: builds the IEEE 802.1AB
// "bridge-discovery" LLDPDU §4.7 names (chassis ID, port ID, TTL) and sends
// it to the LLDP nearest-bridge multicast address.
func (p *Platform) SendLLDP(ifaceMAC wire.MAC) error {
	name, err := p.ifaceName(ifaceMAC)
	if err != nil {
		return err
	}
	eth := &layers.Ethernet{
		SrcMAC:       ifaceMAC[:],
		DstMAC:       wire.MulticastLLDPNearestBridge[:],
		EthernetType: layers.EthernetType(wire.EtherTypeLLDP),
	}
	lldp := &layers.LinkLayerDiscovery{
		ChassisID: layers.LLDPChassisID{Subtype: layers.LLDPChassisIDSubTypeMACAddr, ID: ifaceMAC[:]},
		PortID:    layers.LLDPPortID{Subtype: layers.LLDPPortIDSubTypeMACAddr, ID: ifaceMAC[:]},
		TTL:       120,
	}
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true}
	if err := gopacket.SerializeLayers(buf, opts, eth, lldp); err != nil {
		return fmt.Errorf("platform: serializing LLDP frame: %w", err)
	}
	if err := p.writer.WriteFrame(name, buf.Bytes()); err != nil {
		return fmt.Errorf("platform: writing LLDP frame on %s: %w", name, err)
	}
	return nil
}

// SetInterfacePowerState implements dispatch.Platform: records the
// requested state and reports it applied. A real backend would push this to
// the driver/radio and might report PowerStateResultAlternativeChange or
// PowerStateResultNoChange instead, §7 "platform failure".
func (p *Platform) SetInterfacePowerState(ifaceMAC wire.MAC, state uint8) (uint8, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.interfaces[ifaceMAC]; !ok {
		return wire.PowerStateResultNoChange, fmt.Errorf("platform: unknown local interface %s", ifaceMAC.String())
	}
	p.powerStates[ifaceMAC] = state
	platformLogger.WithFields(log.Fields{"interface": ifaceMAC.String(), "state": state}).Debug("applied interface power-state change")
	return wire.PowerStateResultCompleted, nil
}

// GenericPhyInterfaces implements dispatch.Platform: describes every local
// interface whose media type the standard doesn't enumerate, §4.4
// GENERIC_PHY_QUERY handler.
func (p *Platform) GenericPhyInterfaces() []wire.GenericPhyEntry {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []wire.GenericPhyEntry
	for mac, ifc := range p.interfaces {
		if ifc.Generic == nil {
			continue
		}
		out = append(out, wire.GenericPhyEntry{
			MAC:               mac,
			OUI:               ifc.Generic.OUI,
			Variant:           ifc.Generic.Variant,
			Description:       ifc.Generic.Description,
			URL:               ifc.Generic.URL,
			MediaSpecificData: ifc.Generic.MediaSpecificData,
		})
	}
	return out
}
