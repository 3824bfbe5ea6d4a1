// Package api implements the coordinator's admin surface: the small
// operator-facing RPC interface used to add a node to the cluster and to
// read back its current status, kept separate from the six-topic Raft
// wire protocol the coordinator's clusters speak to each other.
//
// This surface is exposed over grpc-go's transport (google.golang.org/grpc),
// but not through protoc-generated message types: there is no .proto
// source for it, and none is checked in anywhere this module could ground
// one on. Messages are plain Go structs registered under a gob codec
// (codec.go) instead, with the service wired onto grpc.ServiceDesc by
// hand the same way protoc-gen-go-grpc would, minus the generated file.
package api
