package api

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/cuemby/raftcoord/pkg/config"
	"github.com/cuemby/raftcoord/pkg/coordinator"
)

func newTestServer(t *testing.T, addr string) (*Server, *coordinator.Coordinator) {
	cfg := config.Default()
	cfg.LocalMember = addr
	cfg.Members = []string{addr}

	c, err := coordinator.New(cfg)
	require.NoError(t, err)
	require.NoError(t, c.Open())
	t.Cleanup(func() { c.Close() })

	require.Eventually(t, c.IsLeader, 3*time.Second, 20*time.Millisecond)
	return NewServer(c), c
}

func dialClient(t *testing.T, apiAddr string) AdminClient {
	cc, err := grpc.NewClient(apiAddr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(codecName)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { cc.Close() })
	return NewAdminClient(cc)
}

func TestServer_ClusterStatus(t *testing.T) {
	s, _ := newTestServer(t, "127.0.0.1:19501")
	apiAddr := "127.0.0.1:19601"
	go s.Start(apiAddr)
	t.Cleanup(s.Stop)

	client := dialClient(t, apiAddr)

	var resp *ClusterStatusResponse
	require.Eventually(t, func() bool {
		var err error
		resp, err = client.ClusterStatus(context.Background(), &ClusterStatusRequest{})
		return err == nil
	}, 3*time.Second, 50*time.Millisecond)

	require.True(t, resp.IsLeader)
	require.Equal(t, "127.0.0.1:19501", resp.LocalMember)
}

func TestServer_JoinCluster_RejectsBadToken(t *testing.T) {
	s, _ := newTestServer(t, "127.0.0.1:19502")
	apiAddr := "127.0.0.1:19602"
	go s.Start(apiAddr)
	t.Cleanup(s.Stop)

	client := dialClient(t, apiAddr)

	var resp *JoinClusterResponse
	require.Eventually(t, func() bool {
		var err error
		resp, err = client.JoinCluster(context.Background(), &JoinClusterRequest{
			URI:   "127.0.0.1:19503",
			Token: "not-a-real-token",
		})
		return err == nil
	}, 3*time.Second, 50*time.Millisecond)

	require.False(t, resp.Accepted)
}

func TestServer_JoinCluster_AcceptsValidToken(t *testing.T) {
	s, c := newTestServer(t, "127.0.0.1:19504")
	apiAddr := "127.0.0.1:19604"
	go s.Start(apiAddr)
	t.Cleanup(s.Stop)

	jt, err := s.GenerateJoinToken("member", time.Minute)
	require.NoError(t, err)

	client := dialClient(t, apiAddr)

	var resp *JoinClusterResponse
	require.Eventually(t, func() bool {
		var err error
		resp, err = client.JoinCluster(context.Background(), &JoinClusterRequest{
			URI:   "127.0.0.1:19505",
			Token: jt.Token,
		})
		return err == nil
	}, 3*time.Second, 50*time.Millisecond)

	require.True(t, resp.Accepted, resp.Reason)
	_, ok := c.Member("127.0.0.1:19505")
	require.True(t, ok)
}

func TestTokenManager_ExpiredTokenRejected(t *testing.T) {
	tm := NewTokenManager()
	jt, err := tm.GenerateToken("member", -time.Second)
	require.NoError(t, err)

	_, err = tm.ValidateToken(jt.Token)
	require.Error(t, err)
}

func TestTokenManager_RevokeToken(t *testing.T) {
	tm := NewTokenManager()
	jt, err := tm.GenerateToken("member", time.Minute)
	require.NoError(t, err)

	tm.RevokeToken(jt.Token)
	_, err = tm.ValidateToken(jt.Token)
	require.Error(t, err)
}
