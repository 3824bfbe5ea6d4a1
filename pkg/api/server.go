package api

import (
	"context"
	"fmt"
	"net"
	"time"

	"google.golang.org/grpc"

	"github.com/cuemby/raftcoord/pkg/coordinator"
	"github.com/cuemby/raftcoord/pkg/log"
	"github.com/cuemby/raftcoord/pkg/metrics"
)

// Server implements AdminServer over a Coordinator. It owns its own grpc
// listener, separate from the coordinator's member registry listener:
// admin traffic never crosses the six-topic Raft wire.
type Server struct {
	coord  *coordinator.Coordinator
	tokens *TokenManager

	grpcServer *grpc.Server
}

func NewServer(coord *coordinator.Coordinator) *Server {
	return &Server{coord: coord, tokens: NewTokenManager()}
}

// ensureLeader rejects a mutating admin call unless this node currently
// leads the global cluster, the same guard the coordinator's own
// JoinMember/LeaveMember rely on the caller to have already checked.
func (s *Server) ensureLeader() error {
	if !s.coord.IsLeader() {
		return fmt.Errorf("api: not the leader, current leader is %s", s.coord.LeaderAddr())
	}
	return nil
}

// GenerateJoinToken issues a token for role, valid for ttl. It's an
// operator-facing helper, not part of AdminServer's RPC surface: the CLI
// calls it locally on the leader before handing the token to the joining
// node out of band.
func (s *Server) GenerateJoinToken(role string, ttl time.Duration) (*JoinToken, error) {
	return s.tokens.GenerateToken(role, ttl)
}

func (s *Server) JoinCluster(ctx context.Context, req *JoinClusterRequest) (*JoinClusterResponse, error) {
	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.APIRequestDuration, "JoinCluster")

	if err := s.ensureLeader(); err != nil {
		metrics.APIRequestsTotal.WithLabelValues("JoinCluster", "error").Inc()
		return &JoinClusterResponse{Accepted: false, Reason: err.Error()}, nil
	}
	if _, err := s.tokens.ValidateToken(req.Token); err != nil {
		metrics.APIRequestsTotal.WithLabelValues("JoinCluster", "error").Inc()
		return &JoinClusterResponse{Accepted: false, Reason: err.Error()}, nil
	}
	if err := s.coord.JoinMember(req.URI); err != nil {
		metrics.APIRequestsTotal.WithLabelValues("JoinCluster", "error").Inc()
		return &JoinClusterResponse{Accepted: false, Reason: err.Error()}, nil
	}

	metrics.APIRequestsTotal.WithLabelValues("JoinCluster", "ok").Inc()
	return &JoinClusterResponse{Accepted: true}, nil
}

func (s *Server) ClusterStatus(ctx context.Context, req *ClusterStatusRequest) (*ClusterStatusResponse, error) {
	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.APIRequestDuration, "ClusterStatus")

	members := s.coord.Members()
	out := make([]MemberStatus, 0, len(members))
	for _, m := range members {
		out = append(out, MemberStatus{URI: m.URI, Type: string(m.Type), Status: string(m.Status)})
	}

	metrics.APIRequestsTotal.WithLabelValues("ClusterStatus", "ok").Inc()
	return &ClusterStatusResponse{
		LocalMember: s.coord.LocalMember(),
		IsLeader:    s.coord.IsLeader(),
		LeaderAddr:  s.coord.LeaderAddr(),
		Members:     out,
	}, nil
}

// Start blocks serving the admin surface on addr until Stop is called or
// the listener fails. Callers run it in its own goroutine.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("api: listen %s: %w", addr, err)
	}

	s.grpcServer = grpc.NewServer()
	s.grpcServer.RegisterService(&serviceDesc, s)

	apiLog := log.WithComponent("api")
	apiLog.Info().Str("addr", addr).Msg("admin api listening")
	return s.grpcServer.Serve(ln)
}

// Stop drains in-flight calls and shuts the listener down.
func (s *Server) Stop() {
	if s.grpcServer != nil {
		s.grpcServer.GracefulStop()
	}
}
