package api

import (
	"context"

	"google.golang.org/grpc"
)

const (
	adminServiceName    = "coordinator.Admin"
	joinClusterMethod   = "/coordinator.Admin/JoinCluster"
	clusterStatusMethod = "/coordinator.Admin/ClusterStatus"
)

// AdminServer is the interface Server implements and the grpc handler
// functions below dispatch onto. Splitting it out from Server itself
// keeps the generated-style wiring below independent of the concrete
// implementation.
type AdminServer interface {
	JoinCluster(context.Context, *JoinClusterRequest) (*JoinClusterResponse, error)
	ClusterStatus(context.Context, *ClusterStatusRequest) (*ClusterStatusResponse, error)
}

func _Admin_JoinCluster_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(JoinClusterRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AdminServer).JoinCluster(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: joinClusterMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(AdminServer).JoinCluster(ctx, req.(*JoinClusterRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _Admin_ClusterStatus_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(ClusterStatusRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AdminServer).ClusterStatus(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: clusterStatusMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(AdminServer).ClusterStatus(ctx, req.(*ClusterStatusRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// serviceDesc is what protoc-gen-go-grpc would have emitted from an
// admin.proto this module never had. Methods and FullMethod strings
// are kept in sync with the _Admin_*_Handler functions above by hand.
var serviceDesc = grpc.ServiceDesc{
	ServiceName: adminServiceName,
	HandlerType: (*AdminServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "JoinCluster", Handler: _Admin_JoinCluster_Handler},
		{MethodName: "ClusterStatus", Handler: _Admin_ClusterStatus_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "pkg/api/service.go",
}

// AdminClient is the caller side of AdminServer, dialed against a node's
// api listener.
type AdminClient interface {
	JoinCluster(ctx context.Context, in *JoinClusterRequest) (*JoinClusterResponse, error)
	ClusterStatus(ctx context.Context, in *ClusterStatusRequest) (*ClusterStatusResponse, error)
}

type adminClient struct {
	cc *grpc.ClientConn
}

// NewAdminClient wraps cc, an already-dialed connection to a coordinator's
// admin listener.
func NewAdminClient(cc *grpc.ClientConn) AdminClient {
	return &adminClient{cc: cc}
}

func (c *adminClient) JoinCluster(ctx context.Context, in *JoinClusterRequest) (*JoinClusterResponse, error) {
	out := new(JoinClusterResponse)
	if err := c.cc.Invoke(ctx, joinClusterMethod, in, out, grpc.CallContentSubtype(codecName)); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *adminClient) ClusterStatus(ctx context.Context, in *ClusterStatusRequest) (*ClusterStatusResponse, error) {
	out := new(ClusterStatusResponse)
	if err := c.cc.Invoke(ctx, clusterStatusMethod, in, out, grpc.CallContentSubtype(codecName)); err != nil {
		return nil, err
	}
	return out, nil
}
