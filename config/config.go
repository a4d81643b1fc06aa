package config

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"

	ferrors "saffaucet/errors"
	"saffaucet/logx"
)

// Provider returns a fresh FaucetConfig per dispatch. The file-backed
// implementation re-reads on every call so operators can rotate parameters
// without a restart.
type Provider interface {
	Load() (*FaucetConfig, error)
}

type FileProvider struct {
	path string
}

func NewFileProvider(path string) *FileProvider {
	return &FileProvider{path: path}
}

// Load reads and validates faucet.yml, applying env overrides for secret
// material (FAUCET_FUNDING_KEY, FAUCET_RPC_ENDPOINT, FAUCET_DAILY_LIMIT).
func (p *FileProvider) Load() (*FaucetConfig, error) {
	file, err := os.Open(p.path)
	if err != nil {
		return nil, ferrors.NewConfigError(fmt.Sprintf("cannot open faucet config %s: %v", p.path, err))
	}
	defer file.Close()

	var cfgFile ConfigFile
	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(&cfgFile); err != nil {
		return nil, ferrors.NewConfigError(fmt.Sprintf("cannot decode faucet config: %v", err))
	}

	cfg := cfgFile.Faucet
	applyEnvOverrides(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnvOverrides(cfg *FaucetConfig) {
	if v := strings.TrimSpace(os.Getenv("FAUCET_FUNDING_KEY")); v != "" {
		cfg.FundingKey = v
		cfg.FundingKeyFile = ""
	}
	if v := strings.TrimSpace(os.Getenv("FAUCET_RPC_ENDPOINT")); v != "" {
		cfg.RPCEndpoint = v
	}
	if v := strings.TrimSpace(os.Getenv("FAUCET_DAILY_LIMIT")); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			logx.Warn("config", "ignoring invalid FAUCET_DAILY_LIMIT: ", v)
			return
		}
		cfg.DailyLimit = limit
	}
}

// Validate checks the snapshot for the fields every dispatch needs. A failed
// check fails the current request, never the process.
func Validate(cfg *FaucetConfig) error {
	switch {
	case cfg.FundingKey == "" && cfg.FundingKeyFile == "":
		return ferrors.NewConfigError("funding key material is required")
	case cfg.RPCEndpoint == "":
		return ferrors.NewConfigError("rpc_endpoint is required")
	case cfg.Denom == "":
		return ferrors.NewConfigError("denom is required")
	case cfg.Amount == "":
		return ferrors.NewConfigError("amount is required")
	case cfg.AddressPrefix == "":
		return ferrors.NewConfigError("address_prefix is required")
	case cfg.DailyLimit <= 0:
		return ferrors.NewConfigError("daily_limit must be positive")
	}
	return nil
}

// FundingSeed resolves the configured key material to an ed25519 seed.
func (cfg *FaucetConfig) FundingSeed() (ed25519.PrivateKey, error) {
	material := cfg.FundingKey
	if material == "" {
		data, err := os.ReadFile(cfg.FundingKeyFile)
		if err != nil {
			return nil, ferrors.NewConfigError(fmt.Sprintf("cannot read funding key file: %v", err))
		}
		material = strings.TrimSpace(string(data))
	}

	seed, err := hex.DecodeString(material)
	if err != nil {
		return nil, ferrors.NewConfigError("funding key is not valid hex")
	}
	if len(seed) != ed25519.SeedSize {
		return nil, ferrors.NewConfigError(fmt.Sprintf("funding key must be a %d-byte seed, got %d", ed25519.SeedSize, len(seed)))
	}
	return ed25519.NewKeyFromSeed(seed), nil
}

// DispatchTuning holds the dispatcher's timing knobs, loaded from the
// [dispatch] section of an .ini file. Zero-value fields fall back to the
// defaults below.
type DispatchTuning struct {
	PollIntervalMs     int `ini:"poll_interval_ms"`
	StabilityThreshold int `ini:"stability_threshold"`
	SettleDelayMs      int `ini:"settle_delay_ms"`
	StabilizeTimeoutMs int `ini:"stabilize_timeout_ms"`
	ConfirmTimeoutMs   int `ini:"confirm_timeout_ms"`
	MaxAttempts        int `ini:"max_attempts"`
	SequenceBackoffMs  int `ini:"sequence_backoff_ms"`
	TransportBackoffMs int `ini:"transport_backoff_ms"`
}

// DefaultDispatchTuning returns the stock dispatch timings.
func DefaultDispatchTuning() *DispatchTuning {
	return &DispatchTuning{
		PollIntervalMs:     800,
		StabilityThreshold: 5,
		SettleDelayMs:      1000,
		StabilizeTimeoutMs: 10000,
		ConfirmTimeoutMs:   15000,
		MaxAttempts:        5,
		SequenceBackoffMs:  5000,
		TransportBackoffMs: 1000,
	}
}

// LoadDispatchTuning reads dispatch tuning from an .ini file.
func LoadDispatchTuning(path string) (*DispatchTuning, error) {
	cfg, err := ini.Load(path)
	if err != nil {
		return nil, err
	}
	tuning := DefaultDispatchTuning()
	if err := cfg.Section("dispatch").MapTo(tuning); err != nil {
		return nil, err
	}
	return tuning, nil
}

func (t *DispatchTuning) PollInterval() time.Duration     { return time.Duration(t.PollIntervalMs) * time.Millisecond }
func (t *DispatchTuning) SettleDelay() time.Duration      { return time.Duration(t.SettleDelayMs) * time.Millisecond }
func (t *DispatchTuning) StabilizeTimeout() time.Duration { return time.Duration(t.StabilizeTimeoutMs) * time.Millisecond }
func (t *DispatchTuning) ConfirmTimeout() time.Duration   { return time.Duration(t.ConfirmTimeoutMs) * time.Millisecond }
func (t *DispatchTuning) SequenceBackoff() time.Duration  { return time.Duration(t.SequenceBackoffMs) * time.Millisecond }
func (t *DispatchTuning) TransportBackoff() time.Duration { return time.Duration(t.TransportBackoffMs) * time.Millisecond }
