package config_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/Cogwheel-Validator/spectra-sender/sender/config"
	"github.com/Cogwheel-Validator/spectra-sender/sender/models"
	"github.com/zeebo/assert"
)

const networksTOML = `
[[networks]]
slug = "ethereum"
name = "Ethereum"
network_id = 1
is_root = true
explorer_url = "https://etherscan.io"

[[networks]]
slug = "Optimism"
name = "Optimism"
network_id = 10

[[networks]]
slug = "arbitrum"
name = "Arbitrum"
network_id = 42161

[[tokens]]
symbol = "USDC"
decimals = 6

[[tokens]]
symbol = "ETH"
decimals = 18
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	assert.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFromFile_TOML(t *testing.T) {
	path := writeFile(t, "networks.toml", networksTOML)

	networks, err := config.NewNetworkLoader(t.TempDir()).LoadFromFile(path)
	assert.NoError(t, err)
	assert.Equal(t, len(networks.All()), 3)
	assert.Equal(t, networks.Root().Slug, "ethereum")

	op, ok := networks.Network("optimism")
	assert.True(t, ok)
	assert.Equal(t, op.NetworkID, uint64(10))
	assert.False(t, op.IsRoot)

	usdc, ok := networks.Token("hUSDC")
	assert.True(t, ok)
	assert.Equal(t, usdc.Symbol, "USDC")
	assert.Equal(t, usdc.Decimals, int32(6))

	_, ok = networks.Network("polygon")
	assert.False(t, ok)
}

func TestLoadFromFile_JSON(t *testing.T) {
	path := writeFile(t, "networks.json", `{
		"networks": [
			{"slug": "ethereum", "name": "Ethereum", "network_id": 1, "is_root": true},
			{"slug": "gnosis", "name": "Gnosis", "network_id": 100}
		],
		"tokens": [{"symbol": "DAI", "decimals": 18}]
	}`)

	networks, err := config.NewNetworkLoader(t.TempDir()).LoadFromFile(path)
	assert.NoError(t, err)
	_, ok := networks.Token("WXDAI")
	assert.True(t, ok)
}

func TestBuildNetworks_Invalid(t *testing.T) {
	root := models.Network{Slug: "ethereum", NetworkID: 1, IsRoot: true}
	l2 := models.Network{Slug: "optimism", NetworkID: 10}
	usdc := models.Token{Symbol: "USDC", Decimals: 6}

	tests := []struct {
		name   string
		config config.NetworksConfig
	}{
		{"no networks", config.NetworksConfig{Tokens: []models.Token{usdc}}},
		{"no tokens", config.NetworksConfig{Networks: []models.Network{root, l2}}},
		{"no root", config.NetworksConfig{Networks: []models.Network{l2}, Tokens: []models.Token{usdc}}},
		{"two roots", config.NetworksConfig{
			Networks: []models.Network{root, {Slug: "other", NetworkID: 5, IsRoot: true}},
			Tokens:   []models.Token{usdc},
		}},
		{"duplicate slug", config.NetworksConfig{
			Networks: []models.Network{root, l2, {Slug: "Optimism", NetworkID: 11}},
			Tokens:   []models.Token{usdc},
		}},
		{"duplicate id", config.NetworksConfig{
			Networks: []models.Network{root, l2, {Slug: "base", NetworkID: 10}},
			Tokens:   []models.Token{usdc},
		}},
		{"missing id", config.NetworksConfig{
			Networks: []models.Network{root, {Slug: "base"}},
			Tokens:   []models.Token{usdc},
		}},
		{"unknown token", config.NetworksConfig{
			Networks: []models.Network{root, l2},
			Tokens:   []models.Token{{Symbol: "FOO", Decimals: 18}},
		}},
		{"bad decimals", config.NetworksConfig{
			Networks: []models.Network{root, l2},
			Tokens:   []models.Token{{Symbol: "USDC", Decimals: 99}},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.BuildNetworks(&tt.config)
			assert.Error(t, err)
		})
	}
}

func TestLoad_LocalFile(t *testing.T) {
	path := writeFile(t, "networks.toml", networksTOML)
	networks, err := config.NewNetworkLoader(t.TempDir()).Load(context.Background(), path)
	assert.NoError(t, err)
	assert.Equal(t, networks.Root().Slug, "ethereum")
}

func TestLoad_Remote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(networksTOML))
	}))
	defer srv.Close()

	cacheDir := t.TempDir()
	networks, err := config.NewNetworkLoader(cacheDir).Load(context.Background(), srv.URL+"/networks.toml")
	assert.NoError(t, err)
	assert.Equal(t, len(networks.All()), 3)

	_, err = os.Stat(filepath.Join(cacheDir, "networks.toml"))
	assert.NoError(t, err)
}
