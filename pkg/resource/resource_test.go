package resource

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewResourceUnknownKindIsConfigurationError(t *testing.T) {
	_, err := NewResource(Kind("BOGUS"), "x")
	require.Error(t, err)
	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
}

func TestAtomicBooleanSetAndGet(t *testing.T) {
	res, err := NewResource(AtomicBoolean, "flag")
	require.NoError(t, err)

	cmd, err := EncodeCommand("set", true)
	require.NoError(t, err)
	decoded, err := DecodeCommand(cmd)
	require.NoError(t, err)
	_, err = res.Apply(decoded)
	require.NoError(t, err)

	getCmd, err := DecodeCommand(mustEncode(t, "get", struct{}{}))
	require.NoError(t, err)
	out, err := res.Query(getCmd)
	require.NoError(t, err)
	var got bool
	require.NoError(t, decodeArgs(Command{Args: out}, &got))
	require.True(t, got)
}

func TestAtomicBooleanCompareAndSet(t *testing.T) {
	res, _ := NewResource(AtomicBoolean, "flag")
	decoded, _ := DecodeCommand(mustEncode(t, "compareAndSet", struct{ Expect, Update bool }{false, true}))
	out, err := res.Apply(decoded)
	require.NoError(t, err)
	var ok bool
	require.NoError(t, decodeArgs(Command{Args: out}, &ok))
	require.True(t, ok)
}

func TestMapPutGetRemove(t *testing.T) {
	res, _ := NewResource(Map, "m")

	putCmd, _ := DecodeCommand(mustEncode(t, "put", struct {
		Key   string
		Value []byte
	}{"k", []byte("v")}))
	_, err := res.Apply(putCmd)
	require.NoError(t, err)

	getCmd, _ := DecodeCommand(mustEncode(t, "get", "k"))
	out, err := res.Query(getCmd)
	require.NoError(t, err)
	var got []byte
	require.NoError(t, decodeArgs(Command{Args: out}, &got))
	require.Equal(t, []byte("v"), got)

	removeCmd, _ := DecodeCommand(mustEncode(t, "remove", "k"))
	_, err = res.Apply(removeCmd)
	require.NoError(t, err)

	out, err = res.Query(getCmd)
	require.NoError(t, err)
	got = nil
	require.NoError(t, decodeArgs(Command{Args: out}, &got))
	require.Nil(t, got)
}

func TestSetAddContainsRemove(t *testing.T) {
	res, _ := NewResource(Set, "s")

	addCmd, _ := DecodeCommand(mustEncode(t, "add", "alice"))
	_, err := res.Apply(addCmd)
	require.NoError(t, err)

	containsCmd, _ := DecodeCommand(mustEncode(t, "contains", "alice"))
	out, err := res.Query(containsCmd)
	require.NoError(t, err)
	var ok bool
	require.NoError(t, decodeArgs(Command{Args: out}, &ok))
	require.True(t, ok)
}

func TestStateLogAppendAndEntries(t *testing.T) {
	res, _ := NewResource(StateLog, "log")

	appendCmd, _ := DecodeCommand(mustEncode(t, "append", []byte("e1")))
	_, err := res.Apply(appendCmd)
	require.NoError(t, err)

	entriesCmd, _ := DecodeCommand(mustEncode(t, "entries", struct{}{}))
	out, err := res.Query(entriesCmd)
	require.NoError(t, err)
	var entries [][]byte
	require.NoError(t, decodeArgs(Command{Args: out}, &entries))
	require.Equal(t, [][]byte{[]byte("e1")}, entries)
}

func TestHolderSnapshotRestore(t *testing.T) {
	res, _ := NewResource(AtomicReference, "ref")
	h := NewHolder(res)

	setCmd, _ := EncodeCommand("set", []byte("hello"))
	_, err := h.Apply(setCmd)
	require.NoError(t, err)

	snap, err := h.Snapshot()
	require.NoError(t, err)

	other, _ := NewResource(AtomicReference, "ref")
	h2 := NewHolder(other)
	require.NoError(t, h2.Restore(snap))

	getCmd, _ := EncodeCommand("get", struct{}{})
	out, err := h2.Query(getCmd)
	require.NoError(t, err)
	var got []byte
	require.NoError(t, decodeArgs(Command{Args: out}, &got))
	require.Equal(t, []byte("hello"), got)
}

func mustEncode(t *testing.T, method string, args interface{}) []byte {
	b, err := EncodeCommand(method, args)
	require.NoError(t, err)
	return b
}
