package wallet

import (
	"crypto/ed25519"
	"crypto/sha256"
	"errors"
	"fmt"
	"strings"

	"github.com/holiman/uint256"
	"github.com/mr-tron/base58"
	"golang.org/x/crypto/ripemd160"
)

var ErrUnsupportedKey = errors.New("wallet: unsupported private key length")

// TransferTx is the single bank transfer a faucet dispatch signs.
type TransferTx struct {
	Sender    string       `json:"sender"`
	Recipient string       `json:"recipient"`
	Amount    *uint256.Int `json:"amount"`
	Denom     string       `json:"denom"`
	Memo      string       `json:"memo"`
	Sequence  uint64       `json:"sequence"`
	Timestamp uint64       `json:"timestamp"`
}

// SignedTransfer carries the transfer plus its detached signature material.
type SignedTransfer struct {
	Tx     *TransferTx `json:"tx"`
	PubKey string      `json:"pub_key"`
	Sig    string      `json:"sig"`
}

// Wallet owns the funding account's signing key for one dispatch. It is
// rebuilt per attempt; nothing here survives across requests.
type Wallet struct {
	priv    ed25519.PrivateKey
	address string
}

func NewWallet(priv ed25519.PrivateKey, addressPrefix string) (*Wallet, error) {
	if len(priv) != ed25519.PrivateKeySize {
		return nil, ErrUnsupportedKey
	}
	pub := priv.Public().(ed25519.PublicKey)
	return &Wallet{
		priv:    priv,
		address: DeriveAddress(pub, addressPrefix),
	}, nil
}

func (w *Wallet) Address() string {
	return w.address
}

// DeriveAddress computes prefix + base58(ripemd160(sha256(pubkey))).
func DeriveAddress(pub ed25519.PublicKey, prefix string) string {
	sha := sha256.Sum256(pub)
	hasher := ripemd160.New()
	hasher.Write(sha[:])
	return prefix + base58.Encode(hasher.Sum(nil))
}

// ValidateAddress reports whether addr carries the configured chain prefix
// followed by a non-empty body; a bare prefix with no key-hash payload is
// rejected. Pure; performs no chain interaction.
func ValidateAddress(addr, requiredPrefix string) bool {
	if addr == "" || requiredPrefix == "" {
		return false
	}
	return strings.HasPrefix(addr, requiredPrefix) && len(addr) > len(requiredPrefix)
}

// Serialize produces the canonical signing payload for a transfer.
func Serialize(tx *TransferTx) []byte {
	metadata := fmt.Sprintf("%s|%s|%s|%s|%s|%d|%d",
		tx.Sender, tx.Recipient, tx.Amount.String(), tx.Denom, tx.Memo, tx.Sequence, tx.Timestamp)
	return []byte(metadata)
}

// SignTransfer signs tx with the wallet's key. The sender field must match
// the wallet's own address.
func (w *Wallet) SignTransfer(tx *TransferTx) (*SignedTransfer, error) {
	if tx.Sender != w.address {
		return nil, fmt.Errorf("wallet: sender %s does not match wallet address %s", tx.Sender, w.address)
	}
	if tx.Amount == nil || tx.Amount.IsZero() {
		return nil, fmt.Errorf("wallet: amount must be greater than zero")
	}

	signature := ed25519.Sign(w.priv, Serialize(tx))
	pub := w.priv.Public().(ed25519.PublicKey)

	return &SignedTransfer{
		Tx:     tx,
		PubKey: base58.Encode(pub),
		Sig:    base58.Encode(signature),
	}, nil
}

// Verify checks a signed transfer against its embedded public key.
func Verify(st *SignedTransfer) bool {
	pub, err := base58.Decode(st.PubKey)
	if err != nil || len(pub) != ed25519.PublicKeySize {
		return false
	}
	sig, err := base58.Decode(st.Sig)
	if err != nil {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(pub), Serialize(st.Tx), sig)
}
