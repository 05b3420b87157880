package verify

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"

	"golang.org/x/sys/unix"
)

// HTTPCheck probes an endpoint with GET and compares the status code.
type HTTPCheck struct {
	name      string
	component string
	url       string
	expect    int
	client    *http.Client
}

func NewHTTPCheck(component, url string, expect int) *HTTPCheck {
	if expect <= 0 {
		expect = http.StatusOK
	}
	return &HTTPCheck{
		name:      fmt.Sprintf("http %s", url),
		component: component,
		url:       url,
		expect:    expect,
		client:    &http.Client{},
	}
}

func (c *HTTPCheck) Name() string      { return c.name }
func (c *HTTPCheck) Component() string { return c.component }

func (c *HTTPCheck) Run(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != c.expect {
		return fmt.Errorf("HTTP %d (expected %d)", resp.StatusCode, c.expect)
	}
	return nil
}

// TCPCheck verifies that a TCP port accepts connections.
type TCPCheck struct {
	component string
	address   string
}

func NewTCPCheck(component, address string) *TCPCheck {
	return &TCPCheck{component: component, address: address}
}

func (c *TCPCheck) Name() string      { return fmt.Sprintf("tcp %s", c.address) }
func (c *TCPCheck) Component() string { return c.component }

func (c *TCPCheck) Run(ctx context.Context) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", c.address)
	if err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}
	return conn.Close()
}

// FileCheck verifies that a path exists on disk.
type FileCheck struct {
	component string
	path      string
}

func NewFileCheck(component, path string) *FileCheck {
	return &FileCheck{component: component, path: path}
}

func (c *FileCheck) Name() string      { return fmt.Sprintf("file %s", c.path) }
func (c *FileCheck) Component() string { return c.component }

func (c *FileCheck) Run(_ context.Context) error {
	if _, err := os.Stat(c.path); err != nil {
		return fmt.Errorf("path check failed: %w", err)
	}
	return nil
}

// DiskSpaceCheck verifies the filesystem holding path has free headroom.
type DiskSpaceCheck struct {
	component string
	path      string
	minBytes  uint64
}

func NewDiskSpaceCheck(component, path string, minBytes uint64) *DiskSpaceCheck {
	return &DiskSpaceCheck{component: component, path: path, minBytes: minBytes}
}

func (c *DiskSpaceCheck) Name() string      { return fmt.Sprintf("disk %s", c.path) }
func (c *DiskSpaceCheck) Component() string { return c.component }

func (c *DiskSpaceCheck) Run(_ context.Context) error {
	var stat unix.Statfs_t
	if err := unix.Statfs(c.path, &stat); err != nil {
		return fmt.Errorf("statfs failed: %w", err)
	}
	free := stat.Bavail * uint64(stat.Bsize)
	if free < c.minBytes {
		return fmt.Errorf("only %d bytes free, need at least %d", free, c.minBytes)
	}
	return nil
}
