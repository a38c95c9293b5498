package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Cogwheel-Validator/spectra-sender/sender/models"
	"github.com/Cogwheel-Validator/spectra-sender/sender/tokens"
	getter "github.com/hashicorp/go-getter"
	"github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog"
)

var log zerolog.Logger

func init() {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log = zerolog.New(out).With().Timestamp().Str("component", "config").Logger()
}

// SetLogger replaces the package logger.
func SetLogger(l zerolog.Logger) {
	log = l.With().Str("component", "config").Logger()
}

// Networks is the validated set of networks and tokens a sender can use.
type Networks struct {
	networks []models.Network
	bySlug   map[string]models.Network
	tokens   map[string]models.Token
	root     models.Network
}

// Network returns the network with slug.
func (n *Networks) Network(slug string) (*models.Network, bool) {
	network, ok := n.bySlug[strings.ToLower(slug)]
	if !ok {
		return nil, false
	}
	return &network, true
}

// Token returns the token with symbol. Wrapped symbols resolve to their
// canonical token.
func (n *Networks) Token(symbol string) (*models.Token, bool) {
	token, ok := n.tokens[symbol]
	if !ok {
		token, ok = n.tokens[tokens.CanonicalSymbol(symbol)]
	}
	if !ok {
		return nil, false
	}
	return &token, true
}

// Root returns the settlement network.
func (n *Networks) Root() models.Network {
	return n.root
}

// All returns every network in file order.
func (n *Networks) All() []models.Network {
	return append([]models.Network(nil), n.networks...)
}

// NetworkLoader loads the networks file.
type NetworkLoader struct {
	// CacheDir holds downloaded networks files
	CacheDir string
	// Timeout bounds a remote download
	Timeout time.Duration
}

// NewNetworkLoader creates a loader that downloads remote sources into cacheDir.
func NewNetworkLoader(cacheDir string) *NetworkLoader {
	return &NetworkLoader{CacheDir: cacheDir, Timeout: 120 * time.Second}
}

// Load reads source, downloading it first when it is not a local file. Remote
// sources use go-getter syntax, e.g. https://host/networks.toml or
// git::https://github.com/org/repo//networks.toml.
func (l *NetworkLoader) Load(ctx context.Context, source string) (*Networks, error) {
	if info, err := os.Stat(source); err == nil && !info.IsDir() {
		return l.LoadFromFile(source)
	}

	path, err := l.fetch(ctx, source)
	if err != nil {
		return nil, err
	}
	return l.LoadFromFile(path)
}

func (l *NetworkLoader) fetch(ctx context.Context, source string) (string, error) {
	if err := os.MkdirAll(l.CacheDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create cache dir: %w", err)
	}

	// keep the extension so the parser can be picked from it
	name := "networks.toml"
	if strings.HasSuffix(strings.SplitN(source, "?", 2)[0], ".json") {
		name = "networks.json"
	}
	dst := filepath.Join(l.CacheDir, name)

	timeout := l.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	pwd, _ := os.Getwd()
	client := getter.Client{
		Ctx:  ctx,
		Src:  source,
		Dst:  dst,
		Pwd:  pwd,
		Mode: getter.ClientModeFile,
	}
	log.Info().Str("source", source).Str("dst", dst).Msg("Downloading networks file")
	if err := client.Get(); err != nil {
		return "", fmt.Errorf("failed to download networks file: %w", err)
	}
	return dst, nil
}

// LoadFromFile parses a TOML file, or JSON by extension, and validates it.
func (l *NetworkLoader) LoadFromFile(filePath string) (*Networks, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read networks file: %w", err)
	}

	var config NetworksConfig
	if strings.HasSuffix(filePath, ".json") {
		if err := json.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse JSON networks file: %w", err)
		}
	} else {
		if err := toml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse TOML networks file: %w", err)
		}
	}

	networks, err := BuildNetworks(&config)
	if err != nil {
		return nil, err
	}
	log.Info().
		Int("networks", len(networks.networks)).
		Int("tokens", len(networks.tokens)).
		Str("root", networks.root.Slug).
		Msg("Networks loaded")
	return networks, nil
}

// BuildNetworks validates config. There must be exactly one root network, and
// slugs and network ids must be unique.
func BuildNetworks(config *NetworksConfig) (*Networks, error) {
	if config == nil || len(config.Networks) == 0 {
		return nil, fmt.Errorf("no networks in config")
	}
	if len(config.Tokens) == 0 {
		return nil, fmt.Errorf("no tokens in config")
	}

	n := &Networks{
		bySlug: make(map[string]models.Network, len(config.Networks)),
		tokens: make(map[string]models.Token, len(config.Tokens)),
	}
	ids := make(map[uint64]string, len(config.Networks))
	roots := 0

	for i, network := range config.Networks {
		if network.Slug == "" {
			return nil, fmt.Errorf("network %d has no slug", i)
		}
		network.Slug = strings.ToLower(network.Slug)
		if network.Name == "" {
			network.Name = network.Slug
		}
		if network.NetworkID == 0 {
			return nil, fmt.Errorf("network %s has no network_id", network.Slug)
		}
		if _, dup := n.bySlug[network.Slug]; dup {
			return nil, fmt.Errorf("duplicate network slug %s", network.Slug)
		}
		if other, dup := ids[network.NetworkID]; dup {
			return nil, fmt.Errorf("networks %s and %s share network_id %d", other, network.Slug, network.NetworkID)
		}
		ids[network.NetworkID] = network.Slug
		if network.IsRoot {
			roots++
			n.root = network
		}
		n.bySlug[network.Slug] = network
		n.networks = append(n.networks, network)
	}
	if roots != 1 {
		return nil, fmt.Errorf("expected exactly one root network, got %d", roots)
	}

	for _, token := range config.Tokens {
		if !tokens.IsKnown(token.Symbol) {
			return nil, fmt.Errorf("unsupported token %q", token.Symbol)
		}
		if token.Decimals < 0 || token.Decimals > 36 {
			return nil, fmt.Errorf("token %s has invalid decimals %d", token.Symbol, token.Decimals)
		}
		if _, dup := n.tokens[token.Symbol]; dup {
			return nil, fmt.Errorf("duplicate token %s", token.Symbol)
		}
		n.tokens[token.Symbol] = token
	}
	return n, nil
}
