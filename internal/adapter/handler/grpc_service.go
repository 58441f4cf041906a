package handler

import (
	"context"
	"encoding/json"

	"google.golang.org/grpc"

	"github.com/rl1809/vending-machine/internal/core/service"
)

const (
	MachineServiceName = "vending.v1.Machine"

	instantiateMethod = "/" + MachineServiceName + "/Instantiate"
	executeMethod     = "/" + MachineServiceName + "/Execute"
	queryMethod       = "/" + MachineServiceName + "/Query"
)

// Requests carry the same JSON envelopes as the HTTP API.
type InstantiateRequest struct {
	Msg json.RawMessage `json:"msg"`
}

type InstantiateResponse struct{}

type ExecuteRequest struct {
	Msg json.RawMessage `json:"msg"`
}

type ExecuteResponse = service.Result

type QueryRequest struct {
	Msg json.RawMessage `json:"msg"`
}

type QueryResponse struct {
	Data json.RawMessage `json:"data"`
}

type MachineServer interface {
	Instantiate(context.Context, *InstantiateRequest) (*InstantiateResponse, error)
	Execute(context.Context, *ExecuteRequest) (*ExecuteResponse, error)
	Query(context.Context, *QueryRequest) (*QueryResponse, error)
}

func RegisterMachineServer(s grpc.ServiceRegistrar, srv MachineServer) {
	s.RegisterService(&machineServiceDesc, srv)
}

var machineServiceDesc = grpc.ServiceDesc{
	ServiceName: MachineServiceName,
	HandlerType: (*MachineServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Instantiate", Handler: instantiateHandler},
		{MethodName: "Execute", Handler: executeHandler},
		{MethodName: "Query", Handler: queryHandler},
	},
	Streams: []grpc.StreamDesc{},
}

func instantiateHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(InstantiateRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(MachineServer).Instantiate(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: instantiateMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(MachineServer).Instantiate(ctx, req.(*InstantiateRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func executeHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ExecuteRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(MachineServer).Execute(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: executeMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(MachineServer).Execute(ctx, req.(*ExecuteRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func queryHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(QueryRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(MachineServer).Query(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: queryMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(MachineServer).Query(ctx, req.(*QueryRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// MachineClient calls the machine service with the JSON codec.
type MachineClient struct {
	cc grpc.ClientConnInterface
}

func NewMachineClient(cc grpc.ClientConnInterface) *MachineClient {
	return &MachineClient{cc: cc}
}

func (c *MachineClient) Instantiate(ctx context.Context, in *InstantiateRequest, opts ...grpc.CallOption) (*InstantiateResponse, error) {
	out := new(InstantiateResponse)
	if err := c.cc.Invoke(ctx, instantiateMethod, in, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *MachineClient) Execute(ctx context.Context, in *ExecuteRequest, opts ...grpc.CallOption) (*ExecuteResponse, error) {
	out := new(ExecuteResponse)
	if err := c.cc.Invoke(ctx, executeMethod, in, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *MachineClient) Query(ctx context.Context, in *QueryRequest, opts ...grpc.CallOption) (*QueryResponse, error) {
	out := new(QueryResponse)
	if err := c.cc.Invoke(ctx, queryMethod, in, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func withCodec(opts []grpc.CallOption) []grpc.CallOption {
	return append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
}
