// Command ghnd wires together one 1905.1 Abstraction Layer node: the
// topology database, send builders, receive dispatcher, discovery
// scheduler, and AP-autoconfiguration controller, reading their static
// configuration from a YAML file. This is an example of how the pieces fit
// together, not a managed service: it stops after construction rather than
// running an event loop, since the actual socket/interface plumbing a real
// deployment needs is platform- and OS-specific.
package main

import (
	"flag"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/BroadbandForum/meshComms-sub000/internal/apconfig"
	"github.com/BroadbandForum/meshComms-sub000/internal/config"
	"github.com/BroadbandForum/meshComms-sub000/internal/datamodel"
	"github.com/BroadbandForum/meshComms-sub000/internal/dispatch"
	"github.com/BroadbandForum/meshComms-sub000/internal/discovery"
	"github.com/BroadbandForum/meshComms-sub000/internal/mid"
	"github.com/BroadbandForum/meshComms-sub000/internal/platform"
	"github.com/BroadbandForum/meshComms-sub000/internal/send"
	"github.com/BroadbandForum/meshComms-sub000/internal/wsc"
)

func main() {
	configPath := flag.String("config", "/etc/ghnd/config.yaml", "path to the node's YAML configuration")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}

	localALMAC, err := config.ParseMAC(cfg.ALMAC)
	if err != nil {
		log.WithError(err).Fatal("invalid al_mac in configuration")
	}

	db := datamodel.New(localALMAC)
	local := db.LocalDevice()
	local.FriendlyName = cfg.FriendlyName
	local.ManufacturerName = cfg.ManufacturerName
	local.ModelName = cfg.ModelName
	local.ControlURL = cfg.ControlURL

	var platformInterfaces []platform.InterfaceConfig
	for _, ifc := range cfg.Interfaces {
		ifaceMAC, err := config.ParseMAC(ifc.MAC)
		if err != nil {
			log.WithError(err).WithField("interface", ifc.Name).Fatal("invalid interface mac in configuration")
		}
		local.Interfaces = append(local.Interfaces, &datamodel.LocalInterface{MAC: ifaceMAC, MediaType: ifc.MediaType})
		platformInterfaces = append(platformInterfaces, platform.InterfaceConfig{Name: ifc.Name, MAC: ifaceMAC, MediaType: ifc.MediaType})
	}

	var registrarProfiles []wsc.RegistrarProfile
	for _, p := range cfg.RegistrarProfiles {
		profile := wsc.RegistrarProfile{
			RFBand:    p.Band,
			AuthTypes: p.AuthTypes,
			EncrTypes: p.EncrTypes,
			Credentials: []wsc.Credential{{
				SSID:       []byte(p.SSID),
				AuthType:   p.AuthTypes,
				EncrType:   p.EncrTypes,
				NetworkKey: []byte(p.NetworkKey),
			}},
		}
		if p.BSSID != "" {
			bssid, err := config.ParseMAC(p.BSSID)
			if err != nil {
				log.WithError(err).Fatal("invalid registrar profile bssid in configuration")
			}
			profile.Credentials[0].BSSID = bssid
		}
		registrarProfiles = append(registrarProfiles, profile)
	}

	plat := platform.New(stdoutFrameWriter{}, platformInterfaces)
	mids := mid.New()
	builder := send.New(db, mids, plat)
	apcfg := apconfig.New(db, builder, registrarProfiles)
	disp := dispatch.New(db, builder, plat, apcfg, nil, dispatch.WholeNetworkMapMode(cfg.WholeNetworkMap))
	sched := discovery.New(builder, plat, cfg.DiscoveryInterval)

	_ = disp
	_ = sched

	log.WithFields(log.Fields{
		"al_mac":     localALMAC.String(),
		"interfaces": len(platformInterfaces),
	}).Info("node wired up; start the reassembler/dispatch loop against your own packet source to run it")
}

// stdoutFrameWriter is a placeholder platform.FrameWriter: a real
// deployment supplies one backed by an AF_PACKET socket or libpcap handle
// per local interface.
type stdoutFrameWriter struct{}

func (stdoutFrameWriter) WriteFrame(ifaceName string, frame []byte) error {
	log.WithFields(log.Fields{"interface": ifaceName, "bytes": len(frame)}).Debug("would write frame")
	return nil
}

func init() {
	log.SetOutput(os.Stdout)
}
