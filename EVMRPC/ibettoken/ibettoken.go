// Package ibettoken binds the part of the ibet security token interface the
// bridge uses: the Lock event and the issuer's forced unlock/relock calls.
package ibettoken

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"ibetwstbridge/types"
)

const EventLock = "Lock"

// GasLimit for forced unlock and relock; ibet runs with a zero gas price.
const GasLimit = 6000000

const ABIJSON = `[
{"type":"event","name":"Lock","anonymous":false,"inputs":[{"indexed":true,"name":"accountAddress","type":"address"},{"indexed":true,"name":"lockAddress","type":"address"},{"indexed":false,"name":"value","type":"uint256"},{"indexed":false,"name":"data","type":"string"}]},
{"type":"function","name":"forceUnlock","inputs":[{"name":"lockAddress","type":"address"},{"name":"accountAddress","type":"address"},{"name":"recipientAddress","type":"address"},{"name":"value","type":"uint256"},{"name":"data","type":"string"}],"outputs":[],"stateMutability":"nonpayable"},
{"type":"function","name":"forceChangeLockedAccount","inputs":[{"name":"lockAddress","type":"address"},{"name":"beforeAccountAddress","type":"address"},{"name":"afterAccountAddress","type":"address"},{"name":"value","type":"uint256"},{"name":"data","type":"string"}],"outputs":[],"stateMutability":"nonpayable"}
]`

var defaultABI = mustParse(ABIJSON)

func mustParse(s string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic(fmt.Sprintf("ibet token abi: %v", err))
	}
	return parsed
}

// DefaultABI returns a copy of the built-in interface ABI.
func DefaultABI() *abi.ABI {
	parsed := defaultABI
	return &parsed
}

// ParseABI reads a token ABI as stored in the token registry. Only an empty
// value falls back to the built-in interface; an ABI without a Lock event is
// kept as is and scanning it yields no events.
func ParseABI(raw string) (*abi.ABI, error) {
	if strings.TrimSpace(raw) == "" {
		return DefaultABI(), nil
	}
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parse token abi: %w", err)
	}
	return &parsed, nil
}

func dataJSON(m types.BridgeMessage) (string, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func PackForceUnlock(p types.ForceUnlockParams) ([]byte, error) {
	data, err := dataJSON(p.Data)
	if err != nil {
		return nil, err
	}
	return defaultABI.Pack("forceUnlock",
		common.HexToAddress(p.LockAddress),
		common.HexToAddress(p.AccountAddress),
		common.HexToAddress(p.RecipientAddress),
		nonNil(p.Value),
		data,
	)
}

func PackForceChangeLockedAccount(p types.ForceChangeLockedAccountParams) ([]byte, error) {
	data, err := dataJSON(p.Data)
	if err != nil {
		return nil, err
	}
	return defaultABI.Pack("forceChangeLockedAccount",
		common.HexToAddress(p.LockAddress),
		common.HexToAddress(p.BeforeAccountAddress),
		common.HexToAddress(p.AfterAccountAddress),
		nonNil(p.Value),
		data,
	)
}

func nonNil(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
