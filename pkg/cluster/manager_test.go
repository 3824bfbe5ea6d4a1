package cluster

import (
	"testing"
	"time"

	"github.com/hashicorp/raft"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/raftcoord/pkg/engine"
	"github.com/cuemby/raftcoord/pkg/member"
	"github.com/cuemby/raftcoord/pkg/router"
)

type nopApplier struct{}

func (nopApplier) Apply(cmd []byte) ([]byte, error)  { return nil, nil }
func (nopApplier) Query(req []byte) ([]byte, error)  { return nil, nil }
func (nopApplier) Snapshot() ([]byte, error)         { return nil, nil }
func (nopApplier) Restore(snapshot []byte) error     { return nil }

func newTestManager(t *testing.T, localURI string) *Manager {
	reg := member.NewRegistry(localURI)
	t.Cleanup(func() { reg.Close() })

	rc, err := engine.Open("0", localURI, localURI, nopApplier{}, engine.InMemoryStores())
	require.NoError(t, err)

	rt := router.New(reg.LocalEndpoint(), func(uri string) (router.Peer, bool) {
		ep, ok := reg.Member(uri)
		return ep, ok
	})
	return New("0", localURI, rc, rt)
}

func TestManagerOpenCloseLifecycle(t *testing.T) {
	m := newTestManager(t, "127.0.0.1:17100")
	require.NoError(t, m.Open())
	require.Error(t, m.Open()) // already open
	require.NoError(t, m.Close())
}

func TestManagerMembershipListeners(t *testing.T) {
	m := newTestManager(t, "127.0.0.1:17101")
	require.NoError(t, m.Open())
	defer m.Close()

	require.NoError(t, m.rc.Bootstrap([]raft.Server{{ID: "127.0.0.1:17101", Address: "127.0.0.1:17101"}}))
	require.Eventually(t, m.IsLeader, 3*time.Second, 20*time.Millisecond)

	events := make(chan MembershipEvent, 4)
	handle := m.AddMembershipListener(func(ev MembershipEvent) { events <- ev })
	defer m.RemoveMembershipListener(handle)

	require.NoError(t, m.AddMember(member.Info{URI: "127.0.0.1:17102", Type: member.Active, Status: member.Alive}))
	ev := <-events
	require.True(t, ev.Joined)
	require.Equal(t, "127.0.0.1:17102", ev.Member.URI)

	require.NoError(t, m.RemoveMember("127.0.0.1:17102"))
	ev = <-events
	require.False(t, ev.Joined)
}
