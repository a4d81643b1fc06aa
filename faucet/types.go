package faucet

// DispatchRequest is one inbound faucet request, constructed per call and
// discarded after dispatch completes.
type DispatchRequest struct {
	RecipientAddress string
	RequesterIP      string
	UserAgent        string
}

// Success is the full metadata of a confirmed dispatch. Balance and gas
// fields are decimal strings; they are never narrowed to floats.
type Success struct {
	TxHash          string
	ChainID         string
	Height          uint64
	GasUsed         uint64
	GasWanted       uint64
	Amount          string
	Denom           string
	Memo            string
	SenderAddress   string
	ReceiverAddress string
	SenderBalance   string
	ReceiverBalance string
	ExplorerTxURL   string
}

// Request outcomes used for metrics labels.
const (
	OutcomeSuccess        = "success"
	OutcomeQuotaDenied    = "quota_denied"
	OutcomeValidationFail = "validation_failed"
	OutcomeDispatchFail   = "dispatch_failed"
	OutcomeConfigError    = "config_error"
)
