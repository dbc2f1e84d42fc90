// Package apconfig implements the AP-autoconfiguration controller, §4.8: the
// search/response/WSC handshake that lets an unconfigured Multi-AP radio
// discover a registrar and receive its BSS credentials.
package apconfig

import (
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/BroadbandForum/meshComms-sub000/internal/datamodel"
	"github.com/BroadbandForum/meshComms-sub000/internal/send"
	"github.com/BroadbandForum/meshComms-sub000/internal/wire"
	"github.com/BroadbandForum/meshComms-sub000/internal/wsc"
)

var apconfigLogger = log.WithFields(log.Fields{"module": "apconfig"})

func firstOfType[T wire.TLV](tlvs []wire.TLV, typ uint8) (T, bool) {
	var zero T
	for _, t := range tlvs {
		if t.Type() == typ {
			if v, ok := t.(T); ok {
				return v, true
			}
		}
	}
	return zero, false
}

func allOfType[T wire.TLV](tlvs []wire.TLV, typ uint8) []T {
	var out []T
	for _, t := range tlvs {
		if t.Type() == typ {
			if v, ok := t.(T); ok {
				out = append(out, v)
			}
		}
	}
	return out
}

// Controller drives both roles of §4.8's state machine: the registrar side
// (answering SEARCH, matching M1 against configured profiles, building M2)
// and the enrollee side (building M1 for an unconfigured local radio,
// validating the M2 it gets back). A single node can run both roles at
// once, as Multi-AP controllers commonly do.
type Controller struct {
	db      *datamodel.Database
	builder *send.Builder

	enrollees *wsc.Registry

	mu       sync.Mutex
	profiles []wsc.RegistrarProfile // profiles this node offers as registrar, keyed implicitly by RFBand
}

// New constructs a Controller. profiles is this node's registrar
// configuration (empty if this node never acts as a registrar).
func New(db *datamodel.Database, builder *send.Builder, profiles []wsc.RegistrarProfile) *Controller {
	return &Controller{db: db, builder: builder, enrollees: wsc.NewRegistry(), profiles: profiles}
}

// HandleSearch answers an AP_AUTOCONFIG_SEARCH when this node offers a
// registrar profile for the searched band, §4.8 registrar side, spec.md:114.
func (c *Controller) HandleSearch(ifaceMAC, frameSrcMAC wire.MAC, mid uint16, tlvs []wire.TLV) {
	role, ok := firstOfType[*wire.SearchedRoleTLV](tlvs, wire.TLVTypeSearchedRole)
	if !ok || role.Role != wire.RoleRegistrar {
		return
	}
	band, ok := firstOfType[*wire.AutoconfigFreqBandTLV](tlvs, wire.TLVTypeAutoconfigFreqBand)
	if !ok {
		apconfigLogger.Warn("AP_AUTOCONFIG_SEARCH missing frequency-band TLV, dropping")
		return
	}
	almac, _ := firstOfType[*wire.ALMACAddressTLV](tlvs, wire.TLVTypeALMACAddress)
	_, hasSupportedService := firstOfType[*wire.SupportedServiceTLV](tlvs, wire.TLVTypeSupportedService)
	searchedService, hasSearchedService := firstOfType[*wire.SearchedServiceTLV](tlvs, wire.TLVTypeSearchedService)

	c.mu.Lock()
	offers := c.offersBandLocked(band.Band)
	c.mu.Unlock()
	if !offers {
		return
	}

	local := c.db.LocalDevice()
	if hasSearchedService {
		for _, svc := range searchedService.Services {
			if svc == wire.ServiceMultiAPController && !local.SupportedServices[datamodel.ServiceController] {
				return
			}
		}
	}

	var services []uint8
	if hasSupportedService || hasSearchedService {
		for svc := range local.SupportedServices {
			services = append(services, uint8(svc))
		}
	}
	dest := wire.MAC{}
	if almac != nil {
		dest = almac.ALMAC
	}
	if err := c.builder.APAutoconfigResponse(ifaceMAC, dest, mid, band.Band, services); err != nil {
		apconfigLogger.WithError(err).Warn("failed to send AP_AUTOCONFIG_RESPONSE")
	}
}

func (c *Controller) offersBandLocked(band uint8) bool {
	for _, p := range c.profiles {
		if p.RFBand == band {
			return true
		}
	}
	return false
}

// HandleResponse is the enrollee side: on receiving an AP_AUTOCONFIG_RESPONSE
// advertising a band, build M1 for every local radio on that band still
// lacking a configured BSS and send it, §4.8/§4.9.
func (c *Controller) HandleResponse(ifaceMAC, frameSrcMAC wire.MAC, tlvs []wire.TLV) {
	band, ok := firstOfType[*wire.SupportedFreqBandTLV](tlvs, wire.TLVTypeSupportedFreqBand)
	if !ok {
		apconfigLogger.Warn("AP_AUTOCONFIG_RESPONSE missing frequency-band TLV, dropping")
		return
	}

	local := c.db.LocalDevice()
	for radioUID, radio := range local.Radios {
		if radio.HasConfiguredBSS() {
			continue
		}
		if !supportsBand(radio.SupportedBands, band.Band) {
			continue
		}
		c.sendM1(ifaceMAC, frameSrcMAC, radioUID, radio, band.Band)
	}
}

func supportsBand(bands []uint8, band uint8) bool {
	for _, b := range bands {
		if b == band {
			return true
		}
	}
	return len(bands) == 0
}

func (c *Controller) sendM1(ifaceMAC, frameSrcMAC, radioUID wire.MAC, radio *datamodel.Radio, band uint8) {
	enrollee := c.enrollees.Get(radioUID)
	m1, info, err := wsc.BuildM1(wsc.DeviceData{
		MACAddress:    radioUID,
		AuthTypeFlags: 0xFFFF,
		EncrTypeFlags: 0xFFFF,
		RFBand:        band,
	})
	if err != nil {
		apconfigLogger.WithError(err).WithField("radio", radioUID.String()).Warn("failed to build WSC M1")
		return
	}

	var radioCaps *wire.APRadioBasicCapabilitiesTLV
	if radio.MaxBSS > 0 {
		radioCaps = &wire.APRadioBasicCapabilitiesTLV{RadioUID: radioUID, MaxBSSSupported: radio.MaxBSS}
	}
	if err := c.builder.APAutoconfigWSCM1(ifaceMAC, frameSrcMAC, m1, radioCaps); err != nil {
		apconfigLogger.WithError(err).WithField("radio", radioUID.String()).Warn("failed to send AP_AUTOCONFIG_WSC M1")
		return
	}
	enrollee.BeginSearch()
	enrollee.BeginM1(info)
}

// HandleWSC dispatches an AP_AUTOCONFIG_WSC CMDU's payload(s) by WSC message
// type: an M1 is handled as the registrar side, an M2 as the enrollee side,
// §4.9. A single CMDU may legitimately carry only one or the other.
func (c *Controller) HandleWSC(ifaceMAC, frameSrcMAC wire.MAC, mid uint16, tlvs []wire.TLV) {
	radioCaps, _ := firstOfType[*wire.APRadioBasicCapabilitiesTLV](tlvs, wire.TLVTypeAPRadioBasicCapabilities)
	radioID, _ := firstOfType[*wire.APRadioIdentifierTLV](tlvs, wire.TLVTypeAPRadioIdentifier)

	for _, payload := range allOfType[*wire.WSCTLV](tlvs, wire.TLVTypeWSC) {
		switch wsc.GetType(payload.Data) {
		case wsc.MsgTypeM1:
			c.handleM1(ifaceMAC, frameSrcMAC, mid, payload.Data, radioCaps)
		case wsc.MsgTypeM2:
			if radioID == nil {
				apconfigLogger.Warn("AP_AUTOCONFIG_WSC M2 missing AP-radio-identifier TLV, dropping")
				continue
			}
			c.handleM2(radioID.RadioUID, payload.Data)
		default:
			apconfigLogger.Warn("AP_AUTOCONFIG_WSC payload is neither M1 nor M2, dropping")
		}
	}
}

// handleM1 is the registrar side: match the enrollee's capabilities against
// every configured profile and reply with one M2 per match, §4.8's
// "frequency-band exact-match and auth/encryption bitmask-intersection"
// rule.
func (c *Controller) handleM1(ifaceMAC, frameSrcMAC wire.MAC, mid uint16, m1 []byte, radioCaps *wire.APRadioBasicCapabilitiesTLV) {
	info, err := wsc.ParseM1(m1)
	if err != nil {
		apconfigLogger.WithError(err).Warn("rejecting malformed WSC M1")
		return
	}

	c.mu.Lock()
	profiles := c.profiles
	c.mu.Unlock()

	var m2s [][]byte
	for _, p := range profiles {
		if !p.Matches(info.RFBand, info.AuthTypeFlags, info.EncrTypeFlags) {
			continue
		}
		m2, err := wsc.BuildM2(info, p)
		if err != nil {
			apconfigLogger.WithError(err).Warn("failed to build WSC M2 for a matched profile")
			continue
		}
		m2s = append(m2s, m2)
	}
	if len(m2s) == 0 {
		apconfigLogger.WithField("band", info.RFBand).Debug("no registrar profile matches this enrollee's M1")
		return
	}

	radioUID := info.MACAddress
	if radioCaps != nil {
		radioUID = radioCaps.RadioUID
	}
	if err := c.builder.APAutoconfigWSCM2(ifaceMAC, frameSrcMAC, mid, radioUID, m2s); err != nil {
		apconfigLogger.WithError(err).Warn("failed to send AP_AUTOCONFIG_WSC M2")
	}
}

// handleM2 is the enrollee side: authenticate and decrypt the M2 against
// the M1 this radio has outstanding, install the resulting BSS credentials,
// and mark the radio configured. Any failure rejects M2 and keeps the radio
// in M1_SENT so the backoff-driven retry can try again, §7 "WSC failure".
func (c *Controller) handleM2(radioUID wire.MAC, m2 []byte) {
	enrollee := c.enrollees.Get(radioUID)
	if enrollee.M1 == nil {
		apconfigLogger.WithField("radio", radioUID.String()).Warn("received WSC M2 with no outstanding M1, dropping")
		return
	}

	creds, err := wsc.ProcessM2(enrollee.M1, m2)
	if err != nil {
		apconfigLogger.WithError(err).WithField("radio", radioUID.String()).Warn("rejecting WSC M2")
		enrollee.RejectM2()
		return
	}

	local := c.db.LocalDevice()
	radio, ok := local.Radios[radioUID]
	if !ok {
		apconfigLogger.WithField("radio", radioUID.String()).Warn("WSC M2 accepted for a radio no longer in the local device")
		return
	}
	for _, cred := range creds {
		radio.BSSes[cred.BSSID] = &datamodel.BSS{
			BSSID:      cred.BSSID,
			SSID:       cred.SSID,
			AuthMode:   cred.AuthType,
			EncMode:    cred.EncrType,
			NetworkKey: cred.NetworkKey,
		}
	}
	enrollee.AcceptM2()
	apconfigLogger.WithField("radio", radioUID.String()).Info("WSC M2 accepted, radio configured")
}

// HandleRenew is the enrollee side's reaction to AP_AUTOCONFIG_RENEW: every
// local radio still lacking a configured BSS re-arms its search, §9's
// resolved open question ("after applying an M2, re-trigger search only for
// radios still lacking a configured BSS").
func (c *Controller) HandleRenew(ifaceMAC, frameSrcMAC wire.MAC, tlvs []wire.TLV) {
	band, ok := firstOfType[*wire.SupportedFreqBandTLV](tlvs, wire.TLVTypeSupportedFreqBand)
	if !ok {
		return
	}
	local := c.db.LocalDevice()
	var anyUnconfigured bool
	for radioUID, radio := range local.Radios {
		if radio.HasConfiguredBSS() {
			continue
		}
		anyUnconfigured = true
		c.enrollees.Get(radioUID).BeginSearch()
	}
	if !anyUnconfigured {
		return
	}
	var services []uint8
	for svc := range local.SupportedServices {
		services = append(services, uint8(svc))
	}
	if err := c.builder.APAutoconfigSearch(ifaceMAC, band.Band, services); err != nil {
		apconfigLogger.WithError(err).Warn("failed to re-search after AP_AUTOCONFIG_RENEW")
	}
}

// CheckTimeouts walks every tracked radio and re-sends its search if it has
// been sitting in SEARCH_SENT or M1_SENT longer than its current backoff
// interval, §4.8 "5s..60s exponential backoff". Call it periodically (e.g.
// from the discovery scheduler's timer loop).
func (c *Controller) CheckTimeouts(ifaceMAC wire.MAC, now time.Time, band uint8) {
	local := c.db.LocalDevice()
	var services []uint8
	for svc := range local.SupportedServices {
		services = append(services, uint8(svc))
	}

	c.enrollees.ForEach(func(radioUID wire.MAC, e *wsc.Enrollee) {
		state := e.FSM.Current()
		if state != wsc.StateSearchSent && state != wsc.StateM1Sent {
			return
		}
		if now.Sub(e.LastAttempt) < e.Backoff.ForAttempt(e.Backoff.Attempt()) {
			return
		}
		e.Backoff.Duration() // advance to the next, longer interval
		e.Timeout()
		if err := c.builder.APAutoconfigSearch(ifaceMAC, band, services); err != nil {
			apconfigLogger.WithError(err).WithField("radio", radioUID.String()).Warn("failed to resend AP_AUTOCONFIG_SEARCH after timeout")
			return
		}
		e.LastAttempt = now
	})
}
