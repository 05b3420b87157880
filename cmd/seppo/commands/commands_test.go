package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yairfalse/seppo/internal/adapters"
	seppoerrors "github.com/yairfalse/seppo/internal/errors"
	"github.com/yairfalse/seppo/pkg/config"
	"github.com/yairfalse/seppo/pkg/types"
)

func configuredComponents() []types.Component {
	return []types.Component{
		{Name: "dependencies", Type: types.ComponentDependencies, Enabled: true},
		{Name: "database", Type: types.ComponentDatabase, Enabled: true},
		{Name: "frontend", Type: types.ComponentFrontend, Enabled: true},
		{Name: "ssl", Type: types.ComponentSSL, Enabled: true},
	}
}

func TestFilterComponents(t *testing.T) {
	tests := []struct {
		name    string
		names   []string
		want    []string
		wantErr bool
	}{
		{
			name:  "subset in request order",
			names: []string{"frontend", "database"},
			want:  []string{"frontend", "database"},
		},
		{
			name:  "single component",
			names: []string{"ssl"},
			want:  []string{"ssl"},
		},
		{
			name:    "unknown component",
			names:   []string{"database", "haproxy"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			selected, err := filterComponents(configuredComponents(), tt.names)

			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, seppoerrors.IsType(err, seppoerrors.ErrorTypeConfiguration))
				return
			}

			require.NoError(t, err)
			var got []string
			for i := range selected {
				got = append(got, selected[i].Name)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFilterComponentsErrorNamesConfigured(t *testing.T) {
	_, err := filterComponents(configuredComponents(), []string{"haproxy"})
	require.Error(t, err)

	// The error guides the operator to the names that would work.
	assert.Contains(t, err.Error(), `component "haproxy" is not configured`)
	assert.Contains(t, err.Error(), "dependencies, database, frontend, ssl")
}

func TestDeriveClaims(t *testing.T) {
	cfg := &config.Config{
		Adapters: config.AdaptersConfig{
			Frontend: adapters.FrontendConfig{Port: 8443},
			SSL:      adapters.SSLConfig{Domains: []string{"example.com", "www.example.com"}},
		},
	}

	ports, domains := deriveClaims(cfg, configuredComponents())

	require.Len(t, ports, 1)
	assert.Equal(t, 8443, ports[0].Port)
	assert.Equal(t, "frontend", ports[0].Component)

	require.Len(t, domains, 2)
	assert.Equal(t, "example.com", domains[0].Domain)
	assert.Equal(t, "www.example.com", domains[1].Domain)
	for _, claim := range domains {
		assert.Equal(t, "ssl", claim.Component)
	}
}

func TestDeriveClaimsWithoutAdapterSettings(t *testing.T) {
	ports, domains := deriveClaims(&config.Config{}, configuredComponents())
	assert.Empty(t, ports, "no frontend port configured means no port claim")
	assert.Empty(t, domains, "no certificate domains means no domain claims")
}

func TestDeriveClaimsIgnoresOtherComponentTypes(t *testing.T) {
	cfg := &config.Config{
		Adapters: config.AdaptersConfig{
			Frontend: adapters.FrontendConfig{Port: 8080},
			SSL:      adapters.SSLConfig{Domains: []string{"example.com"}},
		},
	}
	components := []types.Component{
		{Name: "database", Type: types.ComponentDatabase, Enabled: true},
		{Name: "monitoring", Type: types.ComponentMonitoring, Enabled: true},
	}

	ports, domains := deriveClaims(cfg, components)
	assert.Empty(t, ports)
	assert.Empty(t, domains)
}
