package verify

import (
	"context"
	"errors"
	"math"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yairfalse/seppo/internal/logger"
)

type stubCheck struct {
	name      string
	component string
	run       func(ctx context.Context) error
}

func (c *stubCheck) Name() string                  { return c.name }
func (c *stubCheck) Component() string             { return c.component }
func (c *stubCheck) Run(ctx context.Context) error { return c.run(ctx) }

type fakeSystemdConn struct {
	state  string
	err    error
	closed bool
}

func (f *fakeSystemdConn) ActiveState(_ context.Context, _ string) (string, error) {
	return f.state, f.err
}

func (f *fakeSystemdConn) Close() error {
	f.closed = true
	return nil
}

func TestSuiteRunAllMixedResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/bad" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	existing := filepath.Join(t.TempDir(), "app.conf")
	require.NoError(t, os.WriteFile(existing, []byte("x"), 0o644))

	suite := NewSuite(logger.NewSimple(),
		NewHTTPCheck("frontend", server.URL+"/ok", http.StatusOK),
		NewHTTPCheck("frontend", server.URL+"/bad", http.StatusOK),
		NewFileCheck("config", existing),
	)

	report := suite.RunAll(context.Background())
	require.Len(t, report.Checks, 3)

	summary := report.Summary()
	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 2, summary.Passed)
	assert.Equal(t, 1, summary.Failed)
	assert.InDelta(t, 2.0/3.0, summary.SuccessRate, 0.001)

	failed := report.FailedChecks()
	require.Len(t, failed, 1)
	assert.Equal(t, "frontend", failed[0].Component)
	assert.Contains(t, failed[0].Message, "HTTP 500 (expected 200)")
}

func TestSuiteCheckTimeout(t *testing.T) {
	suite := NewSuite(logger.NewSimple(), &stubCheck{
		name:      "slow",
		component: "database",
		run: func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		},
	})
	suite.SetCheckTimeout(30 * time.Millisecond)

	report := suite.RunAll(context.Background())
	require.Len(t, report.Checks, 1)
	assert.False(t, report.Checks[0].Passed)
	assert.Contains(t, report.Checks[0].Message, "deadline")
}

func TestSuitePanicCountsAsFailure(t *testing.T) {
	suite := NewSuite(logger.NewSimple(),
		&stubCheck{
			name:      "boom",
			component: "monitoring",
			run:       func(context.Context) error { panic("probe exploded") },
		},
		&stubCheck{
			name:      "fine",
			component: "monitoring",
			run:       func(context.Context) error { return nil },
		},
	)

	report := suite.RunAll(context.Background())
	require.Len(t, report.Checks, 2)
	assert.False(t, report.Checks[0].Passed)
	assert.Contains(t, report.Checks[0].Message, "check panic")
	assert.True(t, report.Checks[1].Passed)
}

func TestVerifyComponentFiltersChecks(t *testing.T) {
	suite := NewSuite(logger.NewSimple(),
		&stubCheck{
			name:      "frontend ok",
			component: "frontend",
			run:       func(context.Context) error { return nil },
		},
		&stubCheck{
			name:      "database down",
			component: "database",
			run:       func(context.Context) error { return errors.New("connection refused") },
		},
	)

	assert.NoError(t, suite.VerifyComponent(context.Background(), "frontend"))

	err := suite.VerifyComponent(context.Background(), "database")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database down")
	assert.Contains(t, err.Error(), "connection refused")

	// No checks bound to the component means nothing to fail.
	assert.NoError(t, suite.VerifyComponent(context.Background(), "ssl"))
}

func TestTCPCheck(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	address := listener.Addr().String()

	check := NewTCPCheck("database", address)
	assert.NoError(t, check.Run(context.Background()))

	require.NoError(t, listener.Close())
	err = check.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection failed")
}

func TestFileCheck(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "present.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	assert.NoError(t, NewFileCheck("config", path).Run(context.Background()))

	err := NewFileCheck("config", filepath.Join(dir, "absent.txt")).Run(context.Background())
	require.Error(t, err)
}

func TestDiskSpaceCheck(t *testing.T) {
	dir := t.TempDir()

	assert.NoError(t, NewDiskSpaceCheck("database", dir, 1).Run(context.Background()))

	err := NewDiskSpaceCheck("database", dir, math.MaxUint64).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bytes free")
}

func TestSystemdCheckStates(t *testing.T) {
	newCheck := func(conn *fakeSystemdConn, dialErr error) *SystemdCheck {
		return &SystemdCheck{
			component: "monitoring",
			unit:      "prometheus",
			connect: func() (systemdConn, error) {
				if dialErr != nil {
					return nil, dialErr
				}
				return conn, nil
			},
		}
	}

	active := &fakeSystemdConn{state: "active"}
	assert.NoError(t, newCheck(active, nil).Run(context.Background()))
	assert.True(t, active.closed)

	err := newCheck(&fakeSystemdConn{state: "inactive"}, nil).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unit prometheus is inactive")

	err = newCheck(nil, errors.New("no bus")).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no bus")
}

func TestFromSpecDispatch(t *testing.T) {
	cases := []struct {
		spec CheckSpec
		want string
	}{
		{CheckSpec{Type: "http", Component: "frontend", URL: "http://localhost/healthz"}, "http http://localhost/healthz"},
		{CheckSpec{Type: "tcp", Component: "database", Address: "localhost:5432"}, "tcp localhost:5432"},
		{CheckSpec{Type: "systemd", Component: "monitoring", Unit: "prometheus"}, "systemd prometheus"},
		{CheckSpec{Type: "file", Component: "ssl", Path: "/etc/ssl/seppo/primary.crt"}, "file /etc/ssl/seppo/primary.crt"},
		{CheckSpec{Type: "disk", Component: "database", Path: "/var/lib/postgresql"}, "disk /var/lib/postgresql"},
	}
	for _, tc := range cases {
		check, err := FromSpec(tc.spec)
		require.NoError(t, err, tc.spec.Type)
		assert.Equal(t, tc.want, check.Name())
		assert.Equal(t, tc.spec.Component, check.Component())
	}
}

func TestFromSpecRejectsBadSpecs(t *testing.T) {
	_, err := FromSpec(CheckSpec{Type: "icmp", Component: "frontend"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown check type")

	_, err = FromSpec(CheckSpec{Type: "http", Component: "frontend"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no url")

	_, err = FromSpec(CheckSpec{Type: "http", URL: "http://localhost"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no component")

	_, err = FromSpecs([]CheckSpec{
		{Type: "file", Component: "config", Path: "/etc/app.conf"},
		{Type: "tcp", Component: "database"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no address")
}
