package ssh

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/equipoapa2-hub/autopic/config"
)

func writeKey(t *testing.T, passphrase string) (string, ssh.PublicKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	var block *pem.Block
	if passphrase == "" {
		block, err = ssh.MarshalPrivateKey(priv, "test")
	} else {
		block, err = ssh.MarshalPrivateKeyWithPassphrase(priv, "test", []byte(passphrase))
	}
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "id_ed25519")
	require.NoError(t, os.WriteFile(path, pem.EncodeToMemory(block), 0600))

	sshPub, err := ssh.NewPublicKey(pub)
	require.NoError(t, err)
	return path, sshPub
}

func TestBuildAuthMethods(t *testing.T) {
	plain, _ := writeKey(t, "")
	methods, err := buildAuthMethods(config.SSHConfig{KeyPath: plain})
	require.NoError(t, err)
	assert.Len(t, methods, 1)

	locked, _ := writeKey(t, "s3cret")
	_, err = buildAuthMethods(config.SSHConfig{KeyPath: locked, KeyPassphrase: "s3cret"})
	require.NoError(t, err)

	_, err = buildAuthMethods(config.SSHConfig{KeyPath: locked})
	assert.ErrorContains(t, err, "parse ssh key")

	_, err = buildAuthMethods(config.SSHConfig{})
	assert.ErrorContains(t, err, "no SSH authentication")
}

func TestHostKeyCallback(t *testing.T) {
	_, hostKey := writeKey(t, "")
	_, otherKey := writeKey(t, "")

	path := filepath.Join(t.TempDir(), "known_hosts")
	line := knownhosts.Line([]string{knownhosts.Normalize("bastion.example:22")}, hostKey)
	require.NoError(t, os.WriteFile(path, []byte(line+"\n"), 0600))

	cb, err := hostKeyCallback(path)
	require.NoError(t, err)

	addr := &net.TCPAddr{IP: net.IPv4(10, 0, 0, 1), Port: 22}
	assert.NoError(t, cb("bastion.example:22", addr, hostKey))
	assert.Error(t, cb("bastion.example:22", addr, otherKey), "mismatched key must be rejected")
	assert.Error(t, cb("unknown.example:22", addr, hostKey), "unknown host must be rejected")

	_, err = hostKeyCallback(filepath.Join(t.TempDir(), "missing"))
	assert.ErrorContains(t, err, "load known_hosts")
}

func TestNewTunnel_DefaultsPort(t *testing.T) {
	key, hostKey := writeKey(t, "")
	kh := filepath.Join(t.TempDir(), "known_hosts")
	require.NoError(t, os.WriteFile(kh, []byte(knownhosts.Line([]string{"bastion"}, hostKey)+"\n"), 0600))

	tun, err := NewTunnel(config.SSHConfig{Host: "bastion", User: "ops", KeyPath: key, KnownHostsPath: kh}, "db.internal", 5432, nil)
	require.NoError(t, err)
	assert.Equal(t, "bastion:22", tun.sshAddr)
	assert.Equal(t, "db.internal:5432", tun.remoteAddr)

	tun.Stop()
	tun.Stop()
}
