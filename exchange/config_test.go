package exchange

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lafeng/keyx/exception"
)

func writeFile(t *testing.T, name, content string) string {
	file := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(file, []byte(content), 0644))
	return file
}

func TestConfigDefaults(t *testing.T) {
	c := NewConfig()
	assert.Equal(t, DEFAULT_HOST, c.Host)
	assert.Equal(t, DEFAULT_PORT, c.Port)
	assert.Equal(t, "ECDH", c.Variant)
	assert.Equal(t, "P-256", c.Curve)
	assert.Equal(t, 16, c.Group)
	assert.False(t, c.ValidatePeer)

	c.SetRole(ROLE_INITIATOR)
	require.NoError(t, c.Validate())
	assert.Equal(t, "ECDH-P-256", c.Method().Name())
	assert.Equal(t, time.Duration(0), c.TimeoutDuration())
	assert.Equal(t, "tcp://localhost:12345", c.GetTransport().String())
}

const responderIni = `
[keyx.Responder]
Host         = 127.0.0.1
Port         = 2222
Variant      = DH
Group        = 14
Timeout      = 30s
ValidatePeer = true
OutputDir    = keys
`

func TestLoadConfigFile(t *testing.T) {
	file := writeFile(t, "keyx.ini", responderIni)
	cc, err := LoadConfig(file)
	require.NoError(t, err)
	assert.Equal(t, file, cc.FilePath())

	role, err := cc.Initialize(ROLE_AUTO)
	require.NoError(t, err)
	assert.Equal(t, ROLE_RESPONDER, role)

	c := cc.Config()
	require.NoError(t, c.Validate())
	assert.Equal(t, 2222, c.Port)
	assert.Equal(t, "DH-14", c.Method().Name())
	assert.Equal(t, 30*time.Second, c.TimeoutDuration())
	assert.True(t, c.ValidatePeer)
	assert.Equal(t, "keys", c.OutputDir)
	// untouched fields keep defaults
	assert.Equal(t, "P-256", c.Curve)

	info := cc.Info()
	assert.Contains(t, info, "DH-14")
	assert.Contains(t, info, "2048 bits")
	assert.Contains(t, info, "Responder")
}

func TestLoadConfigRoleMismatch(t *testing.T) {
	file := writeFile(t, "keyx.ini", responderIni)
	cc, err := LoadConfig(file)
	require.NoError(t, err)
	_, err = cc.Initialize(ROLE_INITIATOR)
	assert.ErrorIs(t, err, UNEXPECTED_ROLE)
	assert.Equal(t, 2, exception.ExitCode(err))
}

func TestLoadConfigMissing(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "none.ini"))
	assert.Equal(t, exception.ConfigurationError, exception.KindOf(err))

	file := writeFile(t, "keyx.ini", "[other]\nPort = 2000\n")
	cc, err := LoadConfig(file)
	require.NoError(t, err)
	_, err = cc.Initialize(ROLE_AUTO)
	assert.ErrorIs(t, err, CONF_MISS)
}

func TestInitializeWithoutFile(t *testing.T) {
	var cc = new(ConfigContext)
	_, err := cc.Initialize(ROLE_AUTO)
	assert.Equal(t, exception.ConfigurationError, exception.KindOf(err))

	role, err := cc.Initialize(ROLE_INITIATOR)
	require.NoError(t, err)
	assert.Equal(t, ROLE_INITIATOR, role)
	assert.Equal(t, ROLE_INITIATOR, cc.Config().Role())
	assert.Equal(t, "client", role.FileStem())
	assert.Equal(t, "server", ROLE_RESPONDER.FileStem())
}

func TestConfigValidateRejects(t *testing.T) {
	var cases = map[string]func(*Config){
		"port low":   func(c *Config) { c.Port = 80 },
		"port high":  func(c *Config) { c.Port = 70000 },
		"variant":    func(c *Config) { c.Variant = "RSA" },
		"curve":      func(c *Config) { c.Curve = "P-521" },
		"group":      func(c *Config) { c.Variant, c.Group = "DH", 5 },
		"group zero": func(c *Config) { c.Variant, c.Group = "DH", 0 },
		"timeout":    func(c *Config) { c.Timeout = "soon" },
		"negative":   func(c *Config) { c.Timeout = "-1" },
		"transport":  func(c *Config) { c.Transport = "udp://" },
		"kcp mode":   func(c *Config) { c.Transport = "kcp:///warp" },
		"url port":   func(c *Config) { c.Transport = "tcp://:99" },
		"empty host": func(c *Config) { c.Host = "" },
		"no role":    func(c *Config) { c.role = 0 },
		"bad host":   func(c *Config) { c.Host = "[::1" },
	}
	for name, mutate := range cases {
		c := NewConfig()
		c.SetRole(ROLE_RESPONDER)
		mutate(c)
		err := c.Validate()
		require.Error(t, err, name)
		assert.Equal(t, exception.ConfigurationError, exception.KindOf(err), name)
		assert.Equal(t, 2, exception.ExitCode(err), name)
	}
}

func TestConfigTransportPortWins(t *testing.T) {
	c := NewConfig()
	c.SetRole(ROLE_RESPONDER)
	c.Port = 80
	c.Transport = "kcp://:2000/fast"
	require.NoError(t, c.Validate())
	assert.Equal(t, "kcp://localhost:2000/fast", c.GetTransport().String())

	c.Port = 2000
	c.Transport = "kcp://:80/fast"
	assert.Error(t, c.Validate())
}

func TestParseTimeout(t *testing.T) {
	for text, want := range map[string]time.Duration{
		"":      0,
		"0":     0,
		"15":    15 * time.Second,
		"250ms": 250 * time.Millisecond,
		" 2m ":  2 * time.Minute,
	} {
		d, err := parseTimeout(text)
		require.NoError(t, err, text)
		assert.Equal(t, want, d, text)
	}
}

func TestConfigTemplate(t *testing.T) {
	file := filepath.Join(t.TempDir(), "keyx.ini")
	require.NoError(t, CreateConfigTemplate(file, ROLE_INITIATOR))

	cc, err := LoadConfig(file)
	require.NoError(t, err)
	role, err := cc.Initialize(ROLE_INITIATOR)
	require.NoError(t, err)
	assert.Equal(t, ROLE_INITIATOR, role)
	c := cc.Config()
	require.NoError(t, c.Validate())
	assert.Equal(t, DEFAULT_PORT, c.Port)
	assert.Equal(t, "tcp", c.Transport)

	raw, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "[keyx.Initiator]")
	assert.Contains(t, string(raw), "DH or ECDH")
}
