package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadPrecedenceFlagsOverFile(t *testing.T) {
	tmp := t.TempDir()
	configPath := filepath.Join(tmp, "config.yaml")
	body := "transport: udp\noutput: human\ntimeout: 5s\nethereum:\n  chains:\n    11155111: http://localhost:8545\ntx_api:\n  Bitcoin: http://insight.local/api/\n"
	if err := os.WriteFile(configPath, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	settings, err := Load(GlobalFlags{ConfigPath: configPath, Transport: "bridge", JSON: true})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if settings.Transport != "bridge" {
		t.Fatalf("expected flag to win, got transport=%s", settings.Transport)
	}
	if settings.OutputMode != OutputJSON {
		t.Fatalf("expected json output, got %s", settings.OutputMode)
	}
	if settings.Timeout != 5*time.Second {
		t.Fatalf("expected timeout from file, got %s", settings.Timeout)
	}
	if settings.RPCByChainID[11155111] != "http://localhost:8545" {
		t.Fatalf("expected chain rpc from file, got %#v", settings.RPCByChainID)
	}
	if url, ok := settings.TxAPI("bitcoin"); !ok || url != "http://insight.local/api/" {
		t.Fatalf("expected tx api override, got %q", url)
	}
	if url, ok := settings.TxAPI("testnet"); !ok || url == "" {
		t.Fatal("expected default testnet tx api to survive")
	}
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	settings, err := Load(GlobalFlags{})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if settings.Transport != DefaultTransport || settings.OutputMode != OutputHuman {
		t.Fatalf("unexpected defaults: %+v", settings)
	}
	if settings.UDPAddress != DefaultUDPAddress || settings.PipePath != DefaultPipePath {
		t.Fatalf("unexpected transport defaults: %+v", settings)
	}
	if settings.ConfigFilePath != "" {
		t.Fatalf("expected no config file, got %s", settings.ConfigFilePath)
	}
}

func TestLoadExplicitMissingConfigFails(t *testing.T) {
	_, err := Load(GlobalFlags{ConfigPath: filepath.Join(t.TempDir(), "missing.yaml")})
	if err == nil {
		t.Fatal("expected error for missing explicit config")
	}
}

func TestLoadRejectsBadOutput(t *testing.T) {
	tmp := t.TempDir()
	configPath := filepath.Join(tmp, "config.yaml")
	if err := os.WriteFile(configPath, []byte("output: plain\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(GlobalFlags{ConfigPath: configPath}); err == nil {
		t.Fatal("expected error for unsupported output")
	}
}

func TestLoadBadTimeoutFlag(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	if _, err := Load(GlobalFlags{Timeout: "soon"}); err == nil {
		t.Fatal("expected error for bad --timeout")
	}
}

func TestLoadEnableCommands(t *testing.T) {
	tmp := t.TempDir()
	configPath := filepath.Join(tmp, "config.yaml")
	body := "enable_commands:\n  - get-address\n  - ping\n"
	if err := os.WriteFile(configPath, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	settings, err := Load(GlobalFlags{ConfigPath: configPath})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(settings.EnableCommands) != 2 || settings.EnableCommands[1] != "ping" {
		t.Fatalf("unexpected allowlist from file: %#v", settings.EnableCommands)
	}

	settings, err = Load(GlobalFlags{ConfigPath: configPath, EnableCommands: " list, ,version "})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(settings.EnableCommands) != 2 || settings.EnableCommands[0] != "list" || settings.EnableCommands[1] != "version" {
		t.Fatalf("expected flag allowlist to win, got %#v", settings.EnableCommands)
	}
}

func TestLoadDefaultPathIgnoresXDGVariables(t *testing.T) {
	home := t.TempDir()
	xdg := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", xdg)
	if err := os.MkdirAll(filepath.Join(xdg, "trezorctl"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(xdg, "trezorctl", "config.yaml"), []byte("transport: udp\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	settings, err := Load(GlobalFlags{})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if settings.Transport != DefaultTransport || settings.ConfigFilePath != "" {
		t.Fatalf("expected environment to be ignored, got transport=%s file=%s", settings.Transport, settings.ConfigFilePath)
	}

	if err := os.MkdirAll(filepath.Join(home, ".config", "trezorctl"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(home, ".config", "trezorctl", "config.yaml"), []byte("transport: bridge\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	settings, err = Load(GlobalFlags{})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if settings.Transport != "bridge" {
		t.Fatalf("expected home config to load, got %s", settings.Transport)
	}
}
