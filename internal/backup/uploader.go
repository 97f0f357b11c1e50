package backup

import (
	"context"
	"fmt"
	"io"
	"net"
	"path"
	"strconv"
	"time"

	"github.com/pkg/sftp"
	"github.com/sunflowerpos/sunflower/config"
	"go.uber.org/zap"
	"golang.org/x/crypto/ssh"
)

// Uploader copies a backup file to off-site storage.
type Uploader interface {
	Upload(ctx context.Context, name string, r io.Reader) error
}

// SftpUploader writes backups to a directory on an SFTP server. Each upload
// opens its own connection; nightly jobs do not justify a pooled session.
type SftpUploader struct {
	addr   string
	dir    string
	config *ssh.ClientConfig
}

func NewSftpUploader(cfg config.SftpConfig) (*SftpUploader, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("sftp host is required")
	}
	port := cfg.Port
	if port <= 0 {
		port = 22
	}
	return &SftpUploader{
		addr: net.JoinHostPort(cfg.Host, strconv.Itoa(port)),
		dir:  cfg.Dir,
		config: &ssh.ClientConfig{
			User:            cfg.User,
			Auth:            []ssh.AuthMethod{ssh.Password(cfg.Password)},
			HostKeyCallback: ssh.InsecureIgnoreHostKey(), // TODO: accept a pinned host key from SftpConfig
			Timeout:         15 * time.Second,
		},
	}, nil
}

func (u *SftpUploader) Upload(ctx context.Context, name string, r io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	conn, err := ssh.Dial("tcp", u.addr, u.config)
	if err != nil {
		return fmt.Errorf("sftp connection failed: %w", err)
	}
	defer conn.Close()

	client, err := sftp.NewClient(conn)
	if err != nil {
		return fmt.Errorf("sftp session failed: %w", err)
	}
	defer client.Close()

	if u.dir != "" {
		if err := client.MkdirAll(u.dir); err != nil {
			return fmt.Errorf("sftp mkdir %s: %w", u.dir, err)
		}
	}
	remote := path.Join(u.dir, name)
	f, err := client.Create(remote)
	if err != nil {
		return fmt.Errorf("sftp create %s: %w", remote, err)
	}
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("sftp write %s: %w", remote, err)
	}

	zap.L().Info("backup uploaded",
		zap.String("namespace", "backup"),
		zap.String("host", u.addr),
		zap.String("file", remote),
		zap.Int64("bytes", n))
	return nil
}
