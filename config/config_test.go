package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testFaucetYAML = `faucet:
  funding_key: abababababababababababababababababababababababababababababababab
  rpc_endpoint: http://localhost:1317
  denom: usaf
  amount: "250000000"
  address_prefix: addr_safro
  memo: testnet faucet
  explorer_url: https://explorer.safro.test/tx/
  daily_limit: 3
`

func writeTestConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "faucet.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestFileProviderLoadsAndValidates(t *testing.T) {
	provider := NewFileProvider(writeTestConfig(t, testFaucetYAML))

	cfg, err := provider.Load()
	require.NoError(t, err)
	assert.Equal(t, "usaf", cfg.Denom)
	assert.Equal(t, "addr_safro", cfg.AddressPrefix)
	assert.Equal(t, 3, cfg.DailyLimit)
	assert.Equal(t, "250000000", cfg.Amount)
}

func TestFileProviderRereadsOnEveryLoad(t *testing.T) {
	path := writeTestConfig(t, testFaucetYAML)
	provider := NewFileProvider(path)

	cfg, err := provider.Load()
	require.NoError(t, err)
	require.Equal(t, 3, cfg.DailyLimit)

	updated := strings.Replace(testFaucetYAML, "daily_limit: 3", "daily_limit: 7", 1)
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o600))

	cfg, err = provider.Load()
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.DailyLimit)
}

func TestEnvOverridesWinOverFile(t *testing.T) {
	t.Setenv("FAUCET_DAILY_LIMIT", "9")
	t.Setenv("FAUCET_RPC_ENDPOINT", "http://node.internal:1317")

	provider := NewFileProvider(writeTestConfig(t, testFaucetYAML))
	cfg, err := provider.Load()
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.DailyLimit)
	assert.Equal(t, "http://node.internal:1317", cfg.RPCEndpoint)
}

func TestValidateRejectsIncompleteConfig(t *testing.T) {
	base := func() *FaucetConfig {
		return &FaucetConfig{
			FundingKey:    strings.Repeat("ab", 32),
			RPCEndpoint:   "http://localhost:1317",
			Denom:         "usaf",
			Amount:        "250000000",
			AddressPrefix: "addr_safro",
			DailyLimit:    3,
		}
	}

	assert.NoError(t, Validate(base()))

	missingKey := base()
	missingKey.FundingKey = ""
	assert.Error(t, Validate(missingKey))

	zeroLimit := base()
	zeroLimit.DailyLimit = 0
	assert.Error(t, Validate(zeroLimit))

	noDenom := base()
	noDenom.Denom = ""
	assert.Error(t, Validate(noDenom))
}

func TestFundingSeedResolvesHexAndFile(t *testing.T) {
	cfg := &FaucetConfig{FundingKey: strings.Repeat("ab", 32)}
	key, err := cfg.FundingSeed()
	require.NoError(t, err)
	assert.Len(t, key, 64)

	keyFile := filepath.Join(t.TempDir(), "funding.key")
	require.NoError(t, os.WriteFile(keyFile, []byte(strings.Repeat("cd", 32)+"\n"), 0o600))
	fromFile := &FaucetConfig{FundingKeyFile: keyFile}
	key, err = fromFile.FundingSeed()
	require.NoError(t, err)
	assert.Len(t, key, 64)

	badHex := &FaucetConfig{FundingKey: "not-hex"}
	_, err = badHex.FundingSeed()
	assert.Error(t, err)

	shortSeed := &FaucetConfig{FundingKey: "abcd"}
	_, err = shortSeed.FundingSeed()
	assert.Error(t, err)
}

func TestLoadDispatchTuningMergesWithDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dispatch.ini")
	require.NoError(t, os.WriteFile(path, []byte("[dispatch]\npoll_interval_ms = 250\nmax_attempts = 3\n"), 0o600))

	tuning, err := LoadDispatchTuning(path)
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, tuning.PollInterval())
	assert.Equal(t, 3, tuning.MaxAttempts)
	assert.Equal(t, 5, tuning.StabilityThreshold)
	assert.Equal(t, time.Second, tuning.SettleDelay())
	assert.Equal(t, 15*time.Second, tuning.ConfirmTimeout())
}
