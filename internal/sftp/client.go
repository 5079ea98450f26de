// Package sftp wraps the remote file operations the poller and the outbound
// sender need behind a small interface.
package sftp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path"
	"strconv"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"

	gormModels "infinite-experiment/edigate/internal/models/gorm"
)

// Client is a connected remote file system
type Client interface {
	ReadDir(dir string) ([]os.FileInfo, error)
	ReadFile(p string) ([]byte, error)
	WriteFile(p string, data []byte) error
	MkdirAll(dir string) error
	Rename(oldPath, newPath string) error
	Close() error
}

// Config holds the connection settings of one partner
type Config struct {
	Host       string
	Port       int
	Username   string
	Password   string
	PrivateKey string
	// HostKey is an authorized_keys formatted public key. When empty the
	// server key is not checked.
	HostKey string
}

// Addr returns host:port, defaulting the port to 22
func (c Config) Addr() string {
	port := c.Port
	if port == 0 {
		port = 22
	}
	return net.JoinHostPort(c.Host, strconv.Itoa(port))
}

// ConfigFromPartner extracts the SFTP settings of a trading partner
func ConfigFromPartner(p *gormModels.TradingPartner) Config {
	return Config{
		Host:       p.SFTPHost,
		Port:       p.SFTPPort,
		Username:   p.SFTPUsername,
		Password:   p.SFTPPassword,
		PrivateKey: p.SFTPPrivateKey,
		HostKey:    p.SFTPHostKey,
	}
}

// Dialer opens client connections
type Dialer interface {
	Dial(ctx context.Context, cfg Config) (Client, error)
}

// DialerFunc adapts a function to Dialer
type DialerFunc func(ctx context.Context, cfg Config) (Client, error)

func (f DialerFunc) Dial(ctx context.Context, cfg Config) (Client, error) {
	return f(ctx, cfg)
}

// SSHDialer connects over SSH using github.com/pkg/sftp
type SSHDialer struct {
	Timeout time.Duration
}

// NewSSHDialer creates a dialer with a connect timeout
func NewSSHDialer(timeout time.Duration) *SSHDialer {
	return &SSHDialer{Timeout: timeout}
}

func (d *SSHDialer) Dial(ctx context.Context, cfg Config) (Client, error) {
	if cfg.Host == "" || cfg.Username == "" {
		return nil, errors.New("sftp host and username are required")
	}

	auth, err := authMethods(cfg)
	if err != nil {
		return nil, err
	}
	hostKeyCallback, err := hostKeyCallback(cfg.HostKey)
	if err != nil {
		return nil, err
	}

	sshConfig := &ssh.ClientConfig{
		User:            cfg.Username,
		Auth:            auth,
		HostKeyCallback: hostKeyCallback,
		Timeout:         d.Timeout,
	}

	netDialer := &net.Dialer{Timeout: d.Timeout}
	conn, err := netDialer.DialContext(ctx, "tcp", cfg.Addr())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.Addr(), err)
	}
	if d.Timeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(d.Timeout))
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, cfg.Addr(), sshConfig)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("ssh handshake with %s failed: %w", cfg.Addr(), err)
	}
	_ = conn.SetDeadline(time.Time{})
	sshClient := ssh.NewClient(sshConn, chans, reqs)

	sftpClient, err := sftp.NewClient(sshClient)
	if err != nil {
		sshClient.Close()
		return nil, fmt.Errorf("failed to start sftp subsystem: %w", err)
	}
	return &remoteClient{ssh: sshClient, sftp: sftpClient}, nil
}

func authMethods(cfg Config) ([]ssh.AuthMethod, error) {
	var methods []ssh.AuthMethod
	if cfg.PrivateKey != "" {
		signer, err := ssh.ParsePrivateKey([]byte(cfg.PrivateKey))
		if err != nil {
			return nil, fmt.Errorf("invalid sftp private key: %w", err)
		}
		methods = append(methods, ssh.PublicKeys(signer))
	}
	if cfg.Password != "" {
		methods = append(methods, ssh.Password(cfg.Password))
	}
	if len(methods) == 0 {
		return nil, errors.New("sftp password or private key is required")
	}
	return methods, nil
}

func hostKeyCallback(hostKey string) (ssh.HostKeyCallback, error) {
	if hostKey == "" {
		return ssh.InsecureIgnoreHostKey(), nil
	}
	pub, _, _, _, err := ssh.ParseAuthorizedKey([]byte(hostKey))
	if err != nil {
		return nil, fmt.Errorf("invalid sftp host key: %w", err)
	}
	return ssh.FixedHostKey(pub), nil
}

type remoteClient struct {
	ssh  *ssh.Client
	sftp *sftp.Client
}

func (c *remoteClient) ReadDir(dir string) ([]os.FileInfo, error) {
	return c.sftp.ReadDir(dir)
}

func (c *remoteClient) ReadFile(p string) ([]byte, error) {
	f, err := c.sftp.Open(p)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// WriteFile uploads to a temporary name and renames it into place so the
// partner never picks up a partial file.
func (c *remoteClient) WriteFile(p string, data []byte) error {
	tmp := path.Join(path.Dir(p), "."+path.Base(p)+".part")
	f, err := c.sftp.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return c.Rename(tmp, p)
}

func (c *remoteClient) MkdirAll(dir string) error {
	return c.sftp.MkdirAll(dir)
}

// Rename prefers the posix-rename extension, which overwrites an existing
// target, and falls back to a plain rename.
func (c *remoteClient) Rename(oldPath, newPath string) error {
	if err := c.sftp.PosixRename(oldPath, newPath); err == nil {
		return nil
	}
	return c.sftp.Rename(oldPath, newPath)
}

func (c *remoteClient) Close() error {
	err := c.sftp.Close()
	if cerr := c.ssh.Close(); err == nil {
		err = cerr
	}
	return err
}
