package export

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"time"

	"github.com/jlaffaye/ftp"
)

// FTPPublisher uploads finished workbooks to an FTP drop.
type FTPPublisher struct {
	Addr     string // host:port
	User     string
	Password string
	Dir      string
	Timeout  time.Duration
}

// Publish stores data as name in the drop directory.
func (p *FTPPublisher) Publish(ctx context.Context, name string, data []byte) error {
	timeout := p.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	conn, err := ftp.Dial(p.Addr, ftp.DialWithTimeout(timeout), ftp.DialWithContext(ctx))
	if err != nil {
		return fmt.Errorf("ftp dial: %w", err)
	}
	defer conn.Quit()

	user, pass := p.User, p.Password
	if user == "" {
		user, pass = "anonymous", "anonymous"
	}
	if err := conn.Login(user, pass); err != nil {
		return fmt.Errorf("ftp login: %w", err)
	}

	target := name
	if p.Dir != "" {
		target = path.Join(p.Dir, name)
	}
	if err := conn.Stor(target, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("ftp stor %s: %w", target, err)
	}
	return nil
}
