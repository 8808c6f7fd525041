package exchange

import (
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lafeng/keyx/artifact"
	"github.com/Lafeng/keyx/exception"
)

func freePort(t *testing.T, network string) int {
	switch network {
	case "udp":
		pc, err := net.ListenPacket("udp", "127.0.0.1:0")
		require.NoError(t, err)
		defer pc.Close()
		return port(pc.LocalAddr())
	default:
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		defer ln.Close()
		return port(ln.Addr())
	}
}

func newTestConfig(t *testing.T, role Role, transport, variant string, p int) *Config {
	c := NewConfig()
	c.SetRole(role)
	c.Host = "127.0.0.1"
	c.Port = p
	c.Transport = transport
	c.Variant = variant
	c.Group = 14
	c.Timeout = "10s"
	c.ValidatePeer = true
	require.NoError(t, c.Validate())
	return c
}

func readText(t *testing.T, file string) string {
	b, err := os.ReadFile(file)
	require.NoError(t, err)
	return string(b)
}

func runLoopback(t *testing.T, transport, variant string, p int) {
	srvConf := newTestConfig(t, ROLE_RESPONDER, transport, variant, p)
	cliConf := newTestConfig(t, ROLE_INITIATOR, transport, variant, p)
	srvDir, cliDir := t.TempDir(), t.TempDir()

	ln, err := Listen(srvConf)
	require.NoError(t, err)

	done := make(chan outcome, 1)
	go func() {
		res, err := Serve(srvConf, ln, artifact.NewWriter(srvDir, ROLE_RESPONDER.FileStem()))
		done <- outcome{res, err}
	}()
	res, err := Connect(cliConf, artifact.NewWriter(cliDir, ROLE_INITIATOR.FileStem()))
	require.NoError(t, err)
	srv := <-done
	require.NoError(t, srv.err)
	assert.Equal(t, srv.res.SessionKey, res.SessionKey)

	serverKey := readText(t, filepath.Join(srvDir, "server.shared"))
	clientKey := readText(t, filepath.Join(cliDir, "client.shared"))
	assert.Equal(t, serverKey, clientKey)
	assert.Len(t, serverKey, 64)
	assert.FileExists(t, filepath.Join(srvDir, "server.priv"))
	assert.FileExists(t, filepath.Join(cliDir, "client.pub"))
}

func TestLoopbackTCP(t *testing.T) {
	runLoopback(t, "tcp", "ECDH", freePort(t, "tcp"))
	runLoopback(t, "tcp", "DH", freePort(t, "tcp"))
}

func TestLoopbackKCP(t *testing.T) {
	runLoopback(t, "kcp", "ECDH", freePort(t, "udp"))
}

func TestPeerWrongRole(t *testing.T) {
	p := freePort(t, "tcp")
	srvConf := newTestConfig(t, ROLE_RESPONDER, "tcp", "ECDH", p)
	cliConf := newTestConfig(t, ROLE_INITIATOR, "tcp", "ECDH", p)

	_, err := Connect(srvConf, nil)
	assert.ErrorIs(t, err, ILLEGAL_STATE)
	_, err = Listen(cliConf)
	assert.ErrorIs(t, err, ILLEGAL_STATE)
}

func TestConnectUnreachable(t *testing.T) {
	cliConf := newTestConfig(t, ROLE_INITIATOR, "tcp", "ECDH", freePort(t, "tcp"))
	dir := t.TempDir()
	stale := filepath.Join(dir, "client.shared")
	require.NoError(t, os.WriteFile(stale, []byte("old"), 0600))

	_, err := Connect(cliConf, artifact.NewWriter(dir, "client"))
	assert.ErrorIs(t, err, PEER_UNREACHABLE)
	assert.Equal(t, 3, exception.ExitCode(err))
	assert.Contains(t, err.Error(), "Initiator to "+cliConf.GetTransport().String())
	// nothing was produced, the earlier session key is gone
	assert.NoFileExists(t, filepath.Join(dir, "client.priv"))
	assert.NoFileExists(t, stale)
}

func TestServeAcceptTimeout(t *testing.T) {
	srvConf := newTestConfig(t, ROLE_RESPONDER, "tcp", "ECDH", freePort(t, "tcp"))
	srvConf.timeout = 50 * time.Millisecond
	dir := t.TempDir()
	stale := filepath.Join(dir, "server.shared")
	require.NoError(t, os.WriteFile(stale, []byte("old"), 0600))

	ln, err := Listen(srvConf)
	require.NoError(t, err)
	_, err = Serve(srvConf, ln, artifact.NewWriter(dir, "server"))
	assert.ErrorIs(t, err, TRANSPORT_ERROR)
	assert.Contains(t, err.Error(), "Responder on ")
	assert.NoFileExists(t, stale)
}
