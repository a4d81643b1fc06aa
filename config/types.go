package config

// FaucetConfig is the per-dispatch snapshot of faucet parameters. It is read
// fresh before each dispatch and never cached beyond one request's lifetime.
type FaucetConfig struct {
	// FundingKey is the hex-encoded ed25519 seed of the custodial funding
	// account. Exactly one of FundingKey / FundingKeyFile must be set.
	FundingKey     string `yaml:"funding_key"`
	FundingKeyFile string `yaml:"funding_key_file"`

	RPCEndpoint   string `yaml:"rpc_endpoint"`
	Denom         string `yaml:"denom"`
	Amount        string `yaml:"amount"`
	AddressPrefix string `yaml:"address_prefix"`
	Memo          string `yaml:"memo"`
	ExplorerURL   string `yaml:"explorer_url"`

	// DailyLimit is the max successful dispatches per 24h window, applied
	// independently to the requester IP and the recipient address.
	DailyLimit int `yaml:"daily_limit"`
}

// ConfigFile is the top-level structure for faucet.yml
type ConfigFile struct {
	Faucet FaucetConfig `yaml:"faucet"`
}
