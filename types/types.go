package types

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
)

// Version of the IbetWST contract the intents are built for.
const WSTVersion = "1"

// BridgeMessage is the marker an ibet Lock event carries in its data field when
// the lock was made for the bridge.
type BridgeMessage struct {
	Message string `json:"message"`
}

const BridgeMessageText = "ibet_wst_bridge"

var BridgeMarker = BridgeMessage{Message: BridgeMessageText}

// IsBridgeMarker reports whether data deep-equals {"message":"ibet_wst_bridge"}.
// Extra keys or a different message do not match.
func IsBridgeMarker(data string) bool {
	var m map[string]interface{}
	if err := json.Unmarshal([]byte(data), &m); err != nil {
		return false
	}
	if len(m) != 1 {
		return false
	}
	msg, ok := m["message"].(string)
	return ok && msg == BridgeMessageText
}

// MonitoredTokenPair links an ibet token to its wrapped token on Ethereum.
type MonitoredTokenPair struct {
	IssuerAddress    string
	IbetTokenAddress string
	IbetABI          string
	WSTAddress       string
}

// TxStatus is the lifecycle of an outgoing transaction intent.
type TxStatus int

const (
	TxPending TxStatus = iota
	TxSent
	TxSucceeded
	TxFailed
)

func (s TxStatus) String() string {
	switch s {
	case TxPending:
		return "pending"
	case TxSent:
		return "sent"
	case TxSucceeded:
		return "succeeded"
	case TxFailed:
		return "failed"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Authorization is an EIP-712 signature made by the authorizer of an intent.
// Nonce, R and S are hex strings without 0x prefix.
type Authorization struct {
	Nonce string `json:"nonce"`
	V     uint8  `json:"v"`
	R     string `json:"r"`
	S     string `json:"s"`
}

func (a Authorization) NonceBytes() ([32]byte, error) {
	return decodeHex32("nonce", a.Nonce)
}

func (a Authorization) RS() (r, s [32]byte, err error) {
	if r, err = decodeHex32("r", a.R); err != nil {
		return
	}
	s, err = decodeHex32("s", a.S)
	return
}

func decodeHex32(name, s string) ([32]byte, error) {
	var out [32]byte
	b, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return out, fmt.Errorf("authorization %s: %w", name, err)
	}
	if len(b) != 32 {
		return out, fmt.Errorf("authorization %s: want 32 bytes, got %d", name, len(b))
	}
	copy(out[:], b)
	return out, nil
}

// TradeState mirrors the contract's trade enum (0..3).
type TradeState string

const (
	TradePending   TradeState = "Pending"
	TradeExecuted  TradeState = "Executed"
	TradeCancelled TradeState = "Cancelled"
	TradeRejected  TradeState = "Rejected"
)

func TradeStateFromContract(v uint8) (TradeState, error) {
	switch v {
	case 0:
		return TradePending, nil
	case 1:
		return TradeExecuted, nil
	case 2:
		return TradeCancelled, nil
	case 3:
		return TradeRejected, nil
	}
	return "", fmt.Errorf("unknown trade state %d", v)
}

// Trade is the full on-chain state of a WST trade.
type Trade struct {
	SellerSTAccount string
	BuyerSTAccount  string
	SCTokenAddress  string
	SellerSCAccount string
	BuyerSCAccount  string
	STValue         *big.Int
	SCValue         *big.Int
	State           TradeState
	Memo            string
}

// NodeRecord is the health state of one RPC endpoint.
type NodeRecord struct {
	Network     string
	EndpointURI string
	Priority    int
	IsSynced    bool
}
