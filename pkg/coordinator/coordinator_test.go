package coordinator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cuemby/raftcoord/pkg/config"
	"github.com/cuemby/raftcoord/pkg/resource"
)

func newTestConfig(local string, members ...string) *config.Config {
	cfg := config.Default()
	cfg.LocalMember = local
	cfg.Members = append([]string{local}, members...)
	return cfg
}

func TestCoordinatorOpenCloseLifecycle(t *testing.T) {
	cfg := newTestConfig("127.0.0.1:19400")
	c, err := New(cfg)
	require.NoError(t, err)

	require.NoError(t, c.Open())
	require.True(t, c.IsOpen())
	require.NoError(t, c.Open()) // idempotent

	require.NoError(t, c.Close())
	require.False(t, c.IsOpen())
	require.NoError(t, c.Close()) // idempotent
}

func TestCoordinatorSingleNodeBecomesLeader(t *testing.T) {
	cfg := newTestConfig("127.0.0.1:19401")
	c, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, c.Open())
	defer c.Close()

	require.Eventually(t, c.IsLeader, 3*time.Second, 20*time.Millisecond)
}

func TestGetResource_ComputeIfAbsent(t *testing.T) {
	cfg := newTestConfig("127.0.0.1:19402")
	c, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, c.Open())
	defer c.Close()

	h1, err := c.GetResource("counter", config.ResourceConfig{Kind: resource.AtomicBoolean})
	require.NoError(t, err)

	h2, err := c.GetResource("counter", config.ResourceConfig{Kind: resource.AtomicBoolean})
	require.NoError(t, err)

	require.Same(t, h1, h2)
}

func TestGetResource_UnknownKindFails(t *testing.T) {
	cfg := newTestConfig("127.0.0.1:19403")
	c, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, c.Open())
	defer c.Close()

	_, err = c.GetResource("bad", config.ResourceConfig{Kind: "NOT_A_KIND"})
	require.Error(t, err)
	var cfgErr *resource.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
}

func TestGetResource_InvalidReplicasFails(t *testing.T) {
	cfg := newTestConfig("127.0.0.1:19404", "127.0.0.1:19405", "127.0.0.1:19406")
	c, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, c.Open())
	defer c.Close()

	_, err = c.GetResource("bad-replicas", config.ResourceConfig{
		Kind:     resource.Set,
		Replicas: []string{"127.0.0.1:19499"},
	})
	require.Error(t, err)
	var cfgErr *resource.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
}

func TestAcquireResource_UnknownResourceFails(t *testing.T) {
	cfg := newTestConfig("127.0.0.1:19407")
	c, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, c.Open())
	defer c.Close()

	err = c.AcquireResource("never-registered")
	require.Error(t, err)
	var unknown *UnknownResourceError
	require.ErrorAs(t, err, &unknown)
}

func TestAcquireResource_NotOpenFails(t *testing.T) {
	cfg := newTestConfig("127.0.0.1:19408")
	c, err := New(cfg)
	require.NoError(t, err)

	err = c.AcquireResource("whatever")
	require.ErrorIs(t, err, ErrNotOpen)
}

func TestAcquireReleaseResource_IsolationAndIdempotence(t *testing.T) {
	cfg := newTestConfig("127.0.0.1:19409")
	c, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, c.Open())
	defer c.Close()

	_, err = c.GetResource("a", config.ResourceConfig{Kind: resource.AtomicBoolean})
	require.NoError(t, err)
	_, err = c.GetResource("b", config.ResourceConfig{Kind: resource.AtomicBoolean})
	require.NoError(t, err)

	require.NoError(t, c.AcquireResource("a"))
	require.NoError(t, c.AcquireResource("a")) // idempotent
	require.NoError(t, c.AcquireResource("b"))

	entryA := c.resources["a"]
	entryB := c.resources["b"]
	require.Eventually(t, entryA.cluster.IsLeader, 3*time.Second, 20*time.Millisecond)
	require.Eventually(t, entryB.cluster.IsLeader, 3*time.Second, 20*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	setCmd, err := resource.EncodeCommand("set", true)
	require.NoError(t, err)
	_, err = entryA.rc.Commit(ctx, setCmd)
	require.NoError(t, err)

	getCmd, err := resource.EncodeCommand("get", struct{}{})
	require.NoError(t, err)

	gotA, err := entryA.rc.Query(ctx, getCmd)
	require.NoError(t, err)
	gotB, err := entryB.rc.Query(ctx, getCmd)
	require.NoError(t, err)
	require.NotEqual(t, gotA, gotB) // b never received a's write

	require.NoError(t, c.ReleaseResource("a"))
	require.NoError(t, c.ReleaseResource("a")) // idempotent
	require.False(t, entryA.cluster.IsOpen())
}

func TestReleaseResource_UnknownResourceFails(t *testing.T) {
	cfg := newTestConfig("127.0.0.1:19410")
	c, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, c.Open())
	defer c.Close()

	err = c.ReleaseResource("never-registered")
	var unknown *UnknownResourceError
	require.ErrorAs(t, err, &unknown)
}

func TestMembershipJoinAndLeavePropagateToRegistry(t *testing.T) {
	cfg := newTestConfig("127.0.0.1:19411")
	c, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, c.Open())
	defer c.Close()

	require.Eventually(t, c.IsLeader, 3*time.Second, 20*time.Millisecond)

	joined := "127.0.0.1:19412"
	require.NoError(t, c.JoinMember(joined))

	_, ok := c.registry.Member(joined)
	require.True(t, ok)

	require.NoError(t, c.LeaveMember(joined))
	_, ok = c.registry.Member(joined)
	require.False(t, ok)
}

func TestMembers_SeededFromConfiguredSetOnOpen(t *testing.T) {
	local := "127.0.0.1:19413"
	peer := "127.0.0.1:19414"
	cfg := newTestConfig(local, peer)
	c, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, c.Open())
	defer c.Close()

	localInfo, ok := c.Member(local)
	require.True(t, ok)
	require.Equal(t, local, localInfo.URI)

	peerInfo, ok := c.Member(peer)
	require.True(t, ok)
	require.Equal(t, peer, peerInfo.URI)

	members := c.Members()
	require.Len(t, members, 2)
}

func TestMembers_SingleNodeIncludesLocal(t *testing.T) {
	local := "127.0.0.1:19415"
	cfg := newTestConfig(local)
	c, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, c.Open())
	defer c.Close()

	_, ok := c.Member(local)
	require.True(t, ok)
	require.Len(t, c.Members(), 1)
}

func TestNew_InvalidConfigFails(t *testing.T) {
	cfg := config.Default()
	_, err := New(cfg)
	require.Error(t, err)
	require.True(t, errors.As(err, new(*resource.ConfigurationError)))
}
