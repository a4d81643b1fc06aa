package chain

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	ferrors "saffaucet/errors"
	"saffaucet/jsonx"
	"saffaucet/wallet"
)

const defaultRequestTimeout = 10 * time.Second

// RestGateway talks to the node's JSON API. Each instance is a fresh session
// with no client-side sequence state.
type RestGateway struct {
	endpoint string
	client   *resty.Client
}

var _ Gateway = (*RestGateway)(nil)

// NewRestGateway dials the node's JSON API at endpoint.
func NewRestGateway(endpoint string) Gateway {
	client := resty.New().
		SetBaseURL(endpoint).
		SetTimeout(defaultRequestTimeout).
		SetHeader("Content-Type", "application/json")

	return &RestGateway{
		endpoint: endpoint,
		client:   client,
	}
}

type accountResponse struct {
	Address  string `json:"address"`
	Sequence uint64 `json:"sequence"`
	Balances []Coin `json:"balances"`
	Error    string `json:"error,omitempty"`
}

type statusResponse struct {
	ChainID string `json:"chain_id"`
	Error   string `json:"error,omitempty"`
}

type broadcastResponse struct {
	Ok        bool   `json:"ok"`
	TxHash    string `json:"tx_hash"`
	Height    uint64 `json:"height,string"`
	GasUsed   uint64 `json:"gas_used,string"`
	GasWanted uint64 `json:"gas_wanted,string"`
	Code      string `json:"code,omitempty"`
	Error     string `json:"error,omitempty"`
}

func (g *RestGateway) GetSequence(ctx context.Context, address string) (uint64, error) {
	account, err := g.getAccount(ctx, address)
	if err != nil {
		return 0, err
	}
	return account.Sequence, nil
}

func (g *RestGateway) GetBalances(ctx context.Context, address string) ([]Coin, error) {
	account, err := g.getAccount(ctx, address)
	if err != nil {
		return nil, err
	}
	return account.Balances, nil
}

func (g *RestGateway) getAccount(ctx context.Context, address string) (*accountResponse, error) {
	resp, err := g.client.R().
		SetContext(ctx).
		SetQueryParam("address", address).
		Get("/account")
	if err != nil {
		return nil, ferrors.NewTransportError(fmt.Sprintf("account query failed: %v", err))
	}

	var account accountResponse
	if err := jsonx.Unmarshal(resp.Body(), &account); err != nil {
		return nil, ferrors.NewTransportError(fmt.Sprintf("malformed account response: %v", err))
	}
	if resp.IsError() {
		return nil, ferrors.NewTransportError(fmt.Sprintf("account query returned %d: %s", resp.StatusCode(), account.Error))
	}
	return &account, nil
}

func (g *RestGateway) GetChainID(ctx context.Context) (string, error) {
	resp, err := g.client.R().
		SetContext(ctx).
		Get("/status")
	if err != nil {
		return "", ferrors.NewTransportError(fmt.Sprintf("status query failed: %v", err))
	}

	var status statusResponse
	if err := jsonx.Unmarshal(resp.Body(), &status); err != nil {
		return "", ferrors.NewTransportError(fmt.Sprintf("malformed status response: %v", err))
	}
	if resp.IsError() || status.ChainID == "" {
		return "", ferrors.NewTransportError(fmt.Sprintf("status query returned %d: %s", resp.StatusCode(), status.Error))
	}
	return status.ChainID, nil
}

func (g *RestGateway) Broadcast(ctx context.Context, signed *wallet.SignedTransfer) (*BroadcastResult, error) {
	body, err := jsonx.Marshal(signed)
	if err != nil {
		return nil, ferrors.NewTransportError(fmt.Sprintf("cannot encode signed transfer: %v", err))
	}

	resp, err := g.client.R().
		SetContext(ctx).
		SetBody(body).
		Post("/txs")
	if err != nil {
		return nil, ferrors.NewTransportError(fmt.Sprintf("broadcast failed: %v", err))
	}

	var result broadcastResponse
	if err := jsonx.Unmarshal(resp.Body(), &result); err != nil {
		return nil, ferrors.NewTransportError(fmt.Sprintf("malformed broadcast response: %v", err))
	}

	if resp.IsError() || !result.Ok {
		return nil, classifyNodeError(result.Code, result.Error)
	}

	return &BroadcastResult{
		TxHash:    result.TxHash,
		Height:    result.Height,
		GasUsed:   result.GasUsed,
		GasWanted: result.GasWanted,
	}, nil
}
