package flowcontrol_test

import (
	"testing"

	"github.com/ericpruitt/hupmon/internal/flowcontrol"
	"github.com/stretchr/testify/require"
)

func TestFilterNoControlBytes(t *testing.T) {
	buf := []byte("hello")
	n, tx := flowcontrol.Filter(buf, true)
	require.Equal(t, 5, n)
	require.True(t, tx)
	require.Equal(t, "hello", string(buf[:n]))
}

func TestFilterStripsXOFFAndDisables(t *testing.T) {
	buf := []byte{'A', 'B', flowcontrol.XOFF, 'C'}
	n, tx := flowcontrol.Filter(buf, true)
	require.False(t, tx)
	require.Equal(t, "ABC", string(buf[:n]))
}

func TestFilterXONReenables(t *testing.T) {
	buf := []byte{flowcontrol.XON, 'Z'}
	n, tx := flowcontrol.Filter(buf, false)
	require.True(t, tx)
	require.Equal(t, "Z", string(buf[:n]))
}

func TestFilterPreservesOrderAcrossMultipleControlBytes(t *testing.T) {
	buf := []byte{'1', flowcontrol.XOFF, '2', flowcontrol.XON, '3', flowcontrol.XOFF, '4'}
	n, tx := flowcontrol.Filter(buf, true)
	require.False(t, tx)
	require.Equal(t, "1234", string(buf[:n]))
}

func TestFilterEmptyBuffer(t *testing.T) {
	n, tx := flowcontrol.Filter(nil, true)
	require.Equal(t, 0, n)
	require.True(t, tx)
}
