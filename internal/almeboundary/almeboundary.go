// Package almeboundary defines the gRPC service contract for the (out of
// scope) ALME transport/listener, §6 "ALME" and §11: the three calls a
// management client can make against this node — dump the topology
// database, read a link metric, and push an interface power-state change.
// This package owns the contract only; no listener is started here.
package almeboundary

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"
	"time"

	uuid "github.com/hashicorp/go-uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"

	"github.com/BroadbandForum/meshComms-sub000/internal/datamodel"
	"github.com/BroadbandForum/meshComms-sub000/internal/wire"
)

// DumpNetworkDevicesRequest carries no fields; the snapshot is always of
// the complete topology database, §4.6.
type DumpNetworkDevicesRequest struct{}

// DumpNetworkDevicesResponse is the tablewriter-rendered snapshot plus an
// opaque session token callers can correlate in logs, §11.
type DumpNetworkDevicesResponse struct {
	Snapshot     string
	SessionToken string
}

// GetMetricRequest names the neighbor link a caller wants the most recently
// received TX/RX sample for.
type GetMetricRequest struct {
	LocalIfMAC    wire.MAC
	NeighborIfMAC wire.MAC
}

// GetMetricResponse is the most recently received sample pair, or a
// Found=false if the link isn't known.
type GetMetricResponse struct {
	Found bool
	TX    *datamodel.LinkMetricSample
	RX    *datamodel.LinkMetricSample
}

// InterfacePowerStateRequest requests a power-state change on a local
// interface, §4.4 INTERFACE_POWER_CHANGE_REQUEST's local (non-CMDU)
// counterpart.
type InterfacePowerStateRequest struct {
	IfaceMAC wire.MAC
	State    uint8 // wire.PowerState*
}

// InterfacePowerStateResponse reports the platform's result code.
type InterfacePowerStateResponse struct {
	Result uint8 // wire.PowerStateResult*
}

// Server is the boundary contract the core implements against, mirroring
// the shape a protoc-generated ALMEServer interface would take.
type Server interface {
	DumpNetworkDevices(ctx context.Context, req *DumpNetworkDevicesRequest) (*DumpNetworkDevicesResponse, error)
	GetMetric(ctx context.Context, req *GetMetricRequest) (*GetMetricResponse, error)
	InterfacePowerState(ctx context.Context, req *InterfacePowerStateRequest) (*InterfacePowerStateResponse, error)
}

// PowerStateSetter is the subset of the platform collaborator the
// InterfacePowerState call needs.
type PowerStateSetter interface {
	SetInterfacePowerState(ifaceMAC wire.MAC, state uint8) (result uint8, err error)
}

// service is the default Server implementation, reading the topology
// database and forwarding power-state changes to the platform collaborator.
type service struct {
	db       *datamodel.Database
	platform PowerStateSetter
}

// NewServer returns the default ALME Server backed by db and platform.
func NewServer(db *datamodel.Database, platform PowerStateSetter) Server {
	return &service{db: db, platform: platform}
}

func (s *service) DumpNetworkDevices(ctx context.Context, req *DumpNetworkDevicesRequest) (*DumpNetworkDevicesResponse, error) {
	token, err := uuid.GenerateUUID()
	if err != nil {
		return nil, fmt.Errorf("almeboundary: generating dump session token: %w", err)
	}
	s.db.Lock()
	snapshot := s.db.Dump(time.Now())
	s.db.Unlock()
	return &DumpNetworkDevicesResponse{Snapshot: snapshot, SessionToken: token}, nil
}

func (s *service) GetMetric(ctx context.Context, req *GetMetricRequest) (*GetMetricResponse, error) {
	devices := s.db.AllDevices()
	s.db.Lock()
	defer s.db.Unlock()
	for _, dev := range devices {
		links, ok := dev.Links[req.LocalIfMAC]
		if !ok {
			continue
		}
		nb, ok := links.Neighbors[req.NeighborIfMAC]
		if !ok || nb.Metrics == nil {
			continue
		}
		return &GetMetricResponse{Found: true, TX: nb.Metrics.TX, RX: nb.Metrics.RX}, nil
	}
	return &GetMetricResponse{Found: false}, nil
}

func (s *service) InterfacePowerState(ctx context.Context, req *InterfacePowerStateRequest) (*InterfacePowerStateResponse, error) {
	if s.platform == nil {
		return nil, fmt.Errorf("almeboundary: no platform collaborator configured")
	}
	result, err := s.platform.SetInterfacePowerState(req.IfaceMAC, req.State)
	if err != nil {
		return nil, fmt.Errorf("almeboundary: applying interface power-state change: %w", err)
	}
	return &InterfacePowerStateResponse{Result: result}, nil
}

// gobCodec is a minimal grpc.Codec implementation so this contract's plain
// Go request/response structs can cross a real grpc.Server without protoc
// codegen, §11's "contract the core implements against ... without the
// out-of-scope transport/listener" — the listener is out of scope, but the
// codec plumbing it would need is wired here so a caller only has to supply
// a net.Listener.
type gobCodec struct{}

func (gobCodec) Marshal(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (gobCodec) Unmarshal(data []byte, v interface{}) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}

func (gobCodec) Name() string { return "gob" }

func init() {
	encoding.RegisterCodec(gobCodec{})
}

// serviceDesc is the hand-written equivalent of what protoc-gen-go-grpc
// would emit for Server, §11.
var serviceDesc = grpc.ServiceDesc{
	ServiceName: "meshcomms.alme.ALME",
	HandlerType: (*Server)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "DumpNetworkDevices", Handler: dumpNetworkDevicesHandler},
		{MethodName: "GetMetric", Handler: getMetricHandler},
		{MethodName: "InterfacePowerState", Handler: interfacePowerStateHandler},
	},
}

// RegisterServer wires impl onto reg (typically a *grpc.Server) using the
// contract above. The caller still owns starting the listener.
func RegisterServer(reg grpc.ServiceRegistrar, impl Server) {
	reg.RegisterService(&serviceDesc, impl)
}

func dumpNetworkDevicesHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	req := new(DumpNetworkDevicesRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(Server).DumpNetworkDevices(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/meshcomms.alme.ALME/DumpNetworkDevices"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(Server).DumpNetworkDevices(ctx, req.(*DumpNetworkDevicesRequest))
	}
	return interceptor(ctx, req, info, handler)
}

func getMetricHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	req := new(GetMetricRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(Server).GetMetric(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/meshcomms.alme.ALME/GetMetric"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(Server).GetMetric(ctx, req.(*GetMetricRequest))
	}
	return interceptor(ctx, req, info, handler)
}

func interfacePowerStateHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	req := new(InterfacePowerStateRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(Server).InterfacePowerState(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/meshcomms.alme.ALME/InterfacePowerState"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(Server).InterfacePowerState(ctx, req.(*InterfacePowerStateRequest))
	}
	return interceptor(ctx, req, info, handler)
}
