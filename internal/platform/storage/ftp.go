package storage

import (
	"context"
	"io"
	"net/url"
	"strings"
	"time"

	perr "seqrun/internal/platform/errors"

	"github.com/jlaffaye/ftp"
)

// FTPDialer opens an FTP connection; swappable in tests
type FTPDialer func(ctx context.Context, host string) (FTPConn, error)

// FTPConn is the slice of the FTP client the store needs
type FTPConn interface {
	Retr(path string) (*ftp.Response, error)
	FileSize(path string) (int64, error)
	Quit() error
}

// dialFTP connects and logs in anonymously, the convention for public
// sequence archives
func dialFTP(ctx context.Context, host string) (FTPConn, error) {
	conn, err := ftp.Dial(host, ftp.DialWithContext(ctx), ftp.DialWithTimeout(30*time.Second))
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeUnavailable, "ftp dial failed")
	}
	if err := conn.Login("anonymous", "anonymous"); err != nil {
		_ = conn.Quit()
		return nil, perr.Wrap(err, perr.ErrorCodePermission, "ftp login failed")
	}
	return conn, nil
}

// splitFTP splits ftp://host[:port]/path into dial target and remote path
func splitFTP(raw string) (host, p string, err error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", perr.Invalidf("bad URL %q: %v", raw, err)
	}
	host = u.Host
	if !strings.Contains(host, ":") {
		host += ":21"
	}
	return host, u.Path, nil
}

// ftpGet opens an FTP location as a byte stream; the connection is held open
// until the stream is closed
func (s *Store) ftpGet(ctx context.Context, raw string) (io.ReadCloser, error) {
	host, p, err := splitFTP(raw)
	if err != nil {
		return nil, perr.WithLoc(err, raw)
	}
	conn, err := s.FTP(ctx, host)
	if err != nil {
		return nil, perr.WithLoc(err, raw)
	}
	resp, err := conn.Retr(p)
	if err != nil {
		_ = conn.Quit()
		return nil, perr.WithLoc(classifyFTPErr(err, raw), raw)
	}
	return &ftpStream{resp: resp, conn: conn}, nil
}

// ftpHead probes an FTP location via SIZE
func (s *Store) ftpHead(ctx context.Context, raw string) (int64, error) {
	host, p, err := splitFTP(raw)
	if err != nil {
		return 0, perr.WithLoc(err, raw)
	}
	conn, err := s.FTP(ctx, host)
	if err != nil {
		return 0, perr.WithLoc(err, raw)
	}
	defer conn.Quit()
	n, err := conn.FileSize(p)
	if err != nil {
		return 0, perr.WithLoc(classifyFTPErr(err, raw), raw)
	}
	return n, nil
}

func classifyFTPErr(err error, raw string) error {
	if _, ok := perr.As(err); ok {
		return err
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "550"):
		return perr.Wrapf(err, perr.ErrorCodeNotFound, "%s not found", raw)
	case strings.Contains(msg, "530"), strings.Contains(msg, "532"):
		return perr.Wrapf(err, perr.ErrorCodePermission, "access to %s denied", raw)
	}
	return perr.Wrap(err, perr.ErrorCodeUnavailable, "ftp transfer failed")
}

// ftpStream ties the data connection lifetime to the control connection
type ftpStream struct {
	resp *ftp.Response
	conn FTPConn
}

func (f *ftpStream) Read(p []byte) (int, error) { return f.resp.Read(p) }

func (f *ftpStream) Close() error {
	err := f.resp.Close()
	_ = f.conn.Quit()
	return err
}
