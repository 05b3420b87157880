package adapters

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/yairfalse/seppo/internal/logger"
	"github.com/yairfalse/seppo/pkg/types"
)

// SSLConfig drives certificate issuance.
type SSLConfig struct {
	Domains    []string `mapstructure:"domains"`
	Email      string   `mapstructure:"email"`
	CertDir    string   `mapstructure:"cert_dir"`
	SelfSigned bool     `mapstructure:"self_signed"`
}

// SSLAdapter issues certificates for the configured domains, through
// certbot in production or openssl when self-signed certificates are
// good enough (local and staging targets).
type SSLAdapter struct {
	runner CommandRunner
	config SSLConfig
	logger logger.Logger
}

func NewSSLAdapter(runner CommandRunner, config SSLConfig, log logger.Logger) *SSLAdapter {
	return &SSLAdapter{runner: runner, config: config, logger: log}
}

func (a *SSLAdapter) Type() types.ComponentType { return types.ComponentSSL }

func (a *SSLAdapter) Deploy(ctx context.Context, component types.Component) (*types.DeployOutput, error) {
	if len(a.config.Domains) == 0 {
		return nil, fmt.Errorf("no domains configured for certificate issuance")
	}

	if a.config.SelfSigned {
		if err := a.issueSelfSigned(ctx); err != nil {
			return nil, err
		}
	} else {
		if err := a.issueCertbot(ctx); err != nil {
			return nil, err
		}
	}

	mode := "certbot"
	if a.config.SelfSigned {
		mode = "self-signed"
	}
	return &types.DeployOutput{
		Message: fmt.Sprintf("certificates issued for %s", strings.Join(a.config.Domains, ", ")),
		Details: map[string]string{
			"domains": strings.Join(a.config.Domains, ","),
			"mode":    mode,
		},
	}, nil
}

func (a *SSLAdapter) issueCertbot(ctx context.Context) error {
	args := []string{"certonly", "--standalone", "--non-interactive", "--agree-tos"}
	if a.config.Email != "" {
		args = append(args, "--email", a.config.Email)
	} else {
		args = append(args, "--register-unsafely-without-email")
	}
	for _, domain := range a.config.Domains {
		args = append(args, "-d", domain)
	}
	if _, err := a.runner.Run(ctx, "certbot", args...); err != nil {
		return fmt.Errorf("certificate issuance failed: %w", err)
	}
	return nil
}

func (a *SSLAdapter) issueSelfSigned(ctx context.Context) error {
	certDir := a.config.CertDir
	if certDir == "" {
		certDir = "/etc/ssl/seppo"
	}
	primary := a.config.Domains[0]
	args := []string{
		"req", "-x509", "-nodes", "-newkey", "rsa:2048", "-days", "365",
		"-keyout", filepath.Join(certDir, primary+".key"),
		"-out", filepath.Join(certDir, primary+".crt"),
		"-subj", "/CN=" + primary,
	}
	if _, err := a.runner.Run(ctx, "openssl", args...); err != nil {
		return fmt.Errorf("self-signed certificate generation failed: %w", err)
	}
	a.logger.WithField("domain", primary).Info("self-signed certificate generated")
	return nil
}
