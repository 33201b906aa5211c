package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	OutputHuman = "human"
	OutputJSON  = "json"

	DefaultTransport   = "usb"
	DefaultUDPAddress  = "127.0.0.1:21324"
	DefaultPipePath    = "/tmp/pipe.trezor"
	DefaultBridgeURL   = "http://127.0.0.1:21325"
	DefaultReleasesURL = "https://wallet.trezor.io/data/firmware/releases.json"
	DefaultFirmwareURL = "https://wallet.trezor.io/"
)

type GlobalFlags struct {
	ConfigPath string
	Transport  string
	Path       string
	JSON       bool
	Verbose    bool
	Timeout    string
	// EnableCommands is a comma-separated allowlist of command names.
	EnableCommands string
}

type Settings struct {
	Transport      string
	DevicePath     string
	OutputMode     string
	Verbose        bool
	Timeout        time.Duration
	RPCURL         string
	RPCByChainID   map[uint64]string
	ReleasesURL    string
	FirmwareBase   string
	NEMNode        string
	TxAPIByCoin    map[string]string
	BridgeURL      string
	UDPAddress     string
	PipePath       string
	ConfigFilePath string
	EnableCommands []string
}

type fileConfig struct {
	Transport string `yaml:"transport"`
	Path      string `yaml:"path"`
	Output    string `yaml:"output"`
	Verbose   *bool  `yaml:"verbose"`
	Timeout   string `yaml:"timeout"`
	Ethereum  struct {
		RPCURL string            `yaml:"rpc_url"`
		Chains map[uint64]string `yaml:"chains"`
	} `yaml:"ethereum"`
	Firmware struct {
		ReleasesURL string `yaml:"releases_url"`
		BaseURL     string `yaml:"base_url"`
	} `yaml:"firmware"`
	NEM struct {
		Node string `yaml:"node"`
	} `yaml:"nem"`
	TxAPI          map[string]string `yaml:"tx_api"`
	EnableCommands []string          `yaml:"enable_commands"`
	Transports struct {
		Bridge struct {
			URL string `yaml:"url"`
		} `yaml:"bridge"`
		UDP struct {
			Address string `yaml:"address"`
		} `yaml:"udp"`
		Pipe struct {
			Path string `yaml:"path"`
		} `yaml:"pipe"`
	} `yaml:"transports"`
}

// defaultTxAPI holds the Insight-style endpoints used to fetch previous
// transactions while signing.
var defaultTxAPI = map[string]string{
	"bitcoin":  "https://btc-bitcore1.trezor.io/api/",
	"testnet":  "https://testnet-bitcore3.trezor.io/api/",
	"litecoin": "https://ltc-bitcore1.trezor.io/api/",
	"dash":     "https://dash-bitcore1.trezor.io/api/",
}

// Load resolves settings from defaults, the optional YAML file and the global
// flags, in that order.
func Load(flags GlobalFlags) (Settings, error) {
	settings := defaultSettings()

	cfgPath, err := resolveConfigPath(flags.ConfigPath)
	if err != nil {
		return Settings{}, err
	}
	explicit := strings.TrimSpace(flags.ConfigPath) != ""
	if err := applyFileConfig(cfgPath, explicit, &settings); err != nil {
		return Settings{}, err
	}

	if err := applyFlags(flags, &settings); err != nil {
		return Settings{}, err
	}

	if settings.Timeout <= 0 {
		settings.Timeout = 30 * time.Second
	}
	return settings, nil
}

func defaultSettings() Settings {
	txAPI := make(map[string]string, len(defaultTxAPI))
	for k, v := range defaultTxAPI {
		txAPI[k] = v
	}
	settings := Settings{
		Transport:    DefaultTransport,
		OutputMode:   OutputHuman,
		Timeout:      30 * time.Second,
		RPCByChainID: map[uint64]string{},
		ReleasesURL:  DefaultReleasesURL,
		FirmwareBase: DefaultFirmwareURL,
		TxAPIByCoin:  txAPI,
		BridgeURL:    DefaultBridgeURL,
		UDPAddress:   DefaultUDPAddress,
		PipePath:     DefaultPipePath,
	}
	return settings
}

func resolveConfigPath(input string) (string, error) {
	if strings.TrimSpace(input) != "" {
		return input, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "trezorctl", "config.yaml"), nil
}

func applyFileConfig(path string, explicit bool, settings *Settings) error {
	buf, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	settings.ConfigFilePath = path

	var cfg fileConfig
	if err := yaml.Unmarshal(buf, &cfg); err != nil {
		return fmt.Errorf("parse config yaml: %w", err)
	}

	if cfg.Transport != "" {
		settings.Transport = strings.ToLower(cfg.Transport)
	}
	if cfg.Path != "" {
		settings.DevicePath = cfg.Path
	}
	if cfg.Output != "" {
		settings.OutputMode = strings.ToLower(cfg.Output)
	}
	if cfg.Verbose != nil {
		settings.Verbose = *cfg.Verbose
	}
	if cfg.Timeout != "" {
		d, err := time.ParseDuration(cfg.Timeout)
		if err != nil {
			return fmt.Errorf("config timeout: %w", err)
		}
		settings.Timeout = d
	}
	if cfg.Ethereum.RPCURL != "" {
		settings.RPCURL = cfg.Ethereum.RPCURL
	}
	for chainID, url := range cfg.Ethereum.Chains {
		settings.RPCByChainID[chainID] = url
	}
	if cfg.Firmware.ReleasesURL != "" {
		settings.ReleasesURL = cfg.Firmware.ReleasesURL
	}
	if cfg.Firmware.BaseURL != "" {
		settings.FirmwareBase = cfg.Firmware.BaseURL
	}
	if cfg.NEM.Node != "" {
		settings.NEMNode = cfg.NEM.Node
	}
	if len(cfg.EnableCommands) > 0 {
		settings.EnableCommands = cfg.EnableCommands
	}
	for coin, url := range cfg.TxAPI {
		settings.TxAPIByCoin[strings.ToLower(coin)] = url
	}
	if cfg.Transports.Bridge.URL != "" {
		settings.BridgeURL = cfg.Transports.Bridge.URL
	}
	if cfg.Transports.UDP.Address != "" {
		settings.UDPAddress = cfg.Transports.UDP.Address
	}
	if cfg.Transports.Pipe.Path != "" {
		settings.PipePath = cfg.Transports.Pipe.Path
	}

	if settings.OutputMode != OutputHuman && settings.OutputMode != OutputJSON {
		return fmt.Errorf("config output must be %s or %s", OutputHuman, OutputJSON)
	}
	return nil
}

func applyFlags(flags GlobalFlags, settings *Settings) error {
	if v := strings.TrimSpace(flags.Transport); v != "" {
		settings.Transport = strings.ToLower(v)
	}
	if flags.Path != "" {
		settings.DevicePath = flags.Path
	}
	if flags.JSON {
		settings.OutputMode = OutputJSON
	}
	if flags.Verbose {
		settings.Verbose = true
	}
	if strings.TrimSpace(flags.EnableCommands) != "" {
		allowed := []string{}
		for _, part := range strings.Split(flags.EnableCommands, ",") {
			if v := strings.TrimSpace(part); v != "" {
				allowed = append(allowed, v)
			}
		}
		settings.EnableCommands = allowed
	}
	if flags.Timeout != "" {
		d, err := time.ParseDuration(flags.Timeout)
		if err != nil {
			return fmt.Errorf("parse --timeout: %w", err)
		}
		settings.Timeout = d
	}
	return nil
}

// TxAPI returns the previous-transaction API base for a coin, if known.
func (s Settings) TxAPI(coin string) (string, bool) {
	url, ok := s.TxAPIByCoin[strings.ToLower(coin)]
	return url, ok && url != ""
}
