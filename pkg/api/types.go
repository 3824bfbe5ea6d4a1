package api

// JoinClusterRequest asks the leader to admit uri as a voting member of
// the global cluster, authorized by a token issued through
// Server.GenerateJoinToken.
type JoinClusterRequest struct {
	URI   string
	Token string
}

// JoinClusterResponse reports whether the join was accepted. Reason is
// set whenever Accepted is false: wrong leader, bad or expired token, or
// a rejected AddMember call.
type JoinClusterResponse struct {
	Accepted bool
	Reason   string
}

// ClusterStatusRequest has no fields today; kept as a type rather than
// passing nil so the handler signature matches the rest of the surface.
type ClusterStatusRequest struct{}

// ClusterStatusResponse is a point-in-time view of the global cluster as
// seen from the node that answered the call.
type ClusterStatusResponse struct {
	LocalMember string
	IsLeader    bool
	LeaderAddr  string
	Members     []MemberStatus
}

// MemberStatus is one entry of ClusterStatusResponse.Members.
type MemberStatus struct {
	URI    string
	Type   string
	Status string
}
