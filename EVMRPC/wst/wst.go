// Package wst binds the IbetWST contract: its events, the getTrade view and the
// *WithAuthorization calls a relayer submits.
package wst

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"ibetwstbridge/eip712"
	"ibetwstbridge/types"
)

const (
	EventTransfer       = "Transfer"
	EventBurn           = "Burn"
	EventTradeRequested = "TradeRequested"
	EventTradeAccepted  = "TradeAccepted"
	EventTradeCancelled = "TradeCancelled"
	EventTradeRejected  = "TradeRejected"
)

// gas limits per call
const (
	GasDeploy          = 3000000
	GasAddWhitelist    = 150000
	GasDeleteWhitelist = 80000
	GasMint            = 125000
	GasBurn            = 82000
	GasForceBurn       = 82000
	GasRequestTrade    = 324000
	GasCancelTrade     = 113000
	GasAcceptTrade     = 182000
	GasRejectTrade     = 113000
)

const authInputs = `{"name":"nonce","type":"bytes32"},{"name":"v","type":"uint8"},{"name":"r","type":"bytes32"},{"name":"s","type":"bytes32"}`

const ABIJSON = `[
{"type":"constructor","inputs":[{"name":"name","type":"string"},{"name":"initialOwner","type":"address"}],"stateMutability":"nonpayable"},
{"type":"event","name":"Transfer","anonymous":false,"inputs":[{"indexed":true,"name":"from","type":"address"},{"indexed":true,"name":"to","type":"address"},{"indexed":false,"name":"value","type":"uint256"}]},
{"type":"event","name":"Burn","anonymous":false,"inputs":[{"indexed":true,"name":"from","type":"address"},{"indexed":false,"name":"value","type":"uint256"}]},
{"type":"event","name":"TradeRequested","anonymous":false,"inputs":[{"indexed":true,"name":"index","type":"uint256"}]},
{"type":"event","name":"TradeAccepted","anonymous":false,"inputs":[{"indexed":true,"name":"index","type":"uint256"}]},
{"type":"event","name":"TradeCancelled","anonymous":false,"inputs":[{"indexed":true,"name":"index","type":"uint256"}]},
{"type":"event","name":"TradeRejected","anonymous":false,"inputs":[{"indexed":true,"name":"index","type":"uint256"}]},
{"type":"function","name":"name","inputs":[],"outputs":[{"name":"","type":"string"}],"stateMutability":"view"},
{"type":"function","name":"getTrade","inputs":[{"name":"index","type":"uint256"}],"outputs":[
	{"name":"sellerSTAccountAddress","type":"address"},{"name":"buyerSTAccountAddress","type":"address"},
	{"name":"SCTokenAddress","type":"address"},{"name":"sellerSCAccountAddress","type":"address"},
	{"name":"buyerSCAccountAddress","type":"address"},{"name":"STValue","type":"uint256"},
	{"name":"SCValue","type":"uint256"},{"name":"state","type":"uint8"},{"name":"memo","type":"string"}],"stateMutability":"view"},
{"type":"function","name":"addAccountWhiteListWithAuthorization","inputs":[{"name":"STAccountAddress","type":"address"},{"name":"SCAccountAddressIn","type":"address"},{"name":"SCAccountAddressOut","type":"address"},` + authInputs + `],"outputs":[],"stateMutability":"nonpayable"},
{"type":"function","name":"deleteAccountWhiteListWithAuthorization","inputs":[{"name":"STAccountAddress","type":"address"},` + authInputs + `],"outputs":[],"stateMutability":"nonpayable"},
{"type":"function","name":"mintWithAuthorization","inputs":[{"name":"to","type":"address"},{"name":"value","type":"uint256"},` + authInputs + `],"outputs":[],"stateMutability":"nonpayable"},
{"type":"function","name":"burnWithAuthorization","inputs":[{"name":"from","type":"address"},{"name":"value","type":"uint256"},` + authInputs + `],"outputs":[],"stateMutability":"nonpayable"},
{"type":"function","name":"forceBurnFromWithAuthorization","inputs":[{"name":"account","type":"address"},{"name":"value","type":"uint256"},` + authInputs + `],"outputs":[],"stateMutability":"nonpayable"},
{"type":"function","name":"requestTradeWithAuthorization","inputs":[{"name":"sellerSTAccountAddress","type":"address"},{"name":"buyerSTAccountAddress","type":"address"},{"name":"SCTokenAddress","type":"address"},{"name":"sellerSCAccountAddress","type":"address"},{"name":"buyerSCAccountAddress","type":"address"},{"name":"STValue","type":"uint256"},{"name":"SCValue","type":"uint256"},{"name":"memo","type":"string"},` + authInputs + `],"outputs":[],"stateMutability":"nonpayable"},
{"type":"function","name":"cancelTradeWithAuthorization","inputs":[{"name":"index","type":"uint256"},` + authInputs + `],"outputs":[],"stateMutability":"nonpayable"},
{"type":"function","name":"acceptTradeWithAuthorization","inputs":[{"name":"index","type":"uint256"},` + authInputs + `],"outputs":[],"stateMutability":"nonpayable"},
{"type":"function","name":"rejectTradeWithAuthorization","inputs":[{"name":"index","type":"uint256"},` + authInputs + `],"outputs":[],"stateMutability":"nonpayable"}
]`

// Contract carries the IbetWST ABI and, when loaded from an artifact, its
// creation bytecode.
type Contract struct {
	ABI      abi.ABI
	Bytecode []byte
}

// Default uses the built-in ABI. It cannot deploy.
func Default() *Contract {
	parsed, err := abi.JSON(strings.NewReader(ABIJSON))
	if err != nil {
		panic(fmt.Sprintf("wst abi: %v", err))
	}
	return &Contract{ABI: parsed}
}

type artifact struct {
	ABI      json.RawMessage `json:"abi"`
	Bytecode string          `json:"bytecode"`
}

// LoadArtifact reads a compiled contract JSON with "abi" and "bytecode" keys.
func LoadArtifact(path string) (*Contract, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read artifact: %w", err)
	}
	var a artifact
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, fmt.Errorf("decode artifact: %w", err)
	}
	parsed, err := abi.JSON(strings.NewReader(string(a.ABI)))
	if err != nil {
		return nil, fmt.Errorf("parse artifact abi: %w", err)
	}
	code, err := hexutil.Decode(a.Bytecode)
	if err != nil {
		return nil, fmt.Errorf("decode artifact bytecode: %w", err)
	}
	return &Contract{ABI: parsed, Bytecode: code}, nil
}

// Caller runs read-only calls, *EVMRPC.Client implements it.
type Caller interface {
	Call(ctx context.Context, contract common.Address, contractABI *abi.ABI, method string, args ...interface{}) ([]interface{}, error)
}

func (c *Contract) Name(ctx context.Context, caller Caller, address common.Address) (string, error) {
	out, err := caller.Call(ctx, address, &c.ABI, "name")
	if err != nil {
		return "", err
	}
	if len(out) != 1 {
		return "", fmt.Errorf("name: unexpected %d outputs", len(out))
	}
	name, ok := out[0].(string)
	if !ok {
		return "", fmt.Errorf("name: unexpected output %T", out[0])
	}
	return name, nil
}

// DomainSeparator reads name() from the contract on every call.
func (c *Contract) DomainSeparator(ctx context.Context, caller Caller, address common.Address, chainID *big.Int) (common.Hash, error) {
	name, err := c.Name(ctx, caller, address)
	if err != nil {
		return common.Hash{}, fmt.Errorf("domain separator: %w", err)
	}
	return eip712.DomainSeparator(eip712.Domain{
		Name:              name,
		Version:           eip712.DomainVersion,
		ChainID:           chainID,
		VerifyingContract: address,
	})
}

func (c *Contract) GetTrade(ctx context.Context, caller Caller, address common.Address, index *big.Int) (types.Trade, error) {
	out, err := caller.Call(ctx, address, &c.ABI, "getTrade", index)
	if err != nil {
		return types.Trade{}, err
	}
	return UnpackTrade(out)
}

// UnpackTrade converts the nine getTrade outputs into a Trade.
func UnpackTrade(out []interface{}) (types.Trade, error) {
	if len(out) != 9 {
		return types.Trade{}, fmt.Errorf("getTrade: unexpected %d outputs", len(out))
	}
	var (
		addrs [5]common.Address
		ok    bool
	)
	for i := range addrs {
		if addrs[i], ok = out[i].(common.Address); !ok {
			return types.Trade{}, fmt.Errorf("getTrade: output %d is %T", i, out[i])
		}
	}
	stValue, ok1 := out[5].(*big.Int)
	scValue, ok2 := out[6].(*big.Int)
	rawState, ok3 := out[7].(uint8)
	memo, ok4 := out[8].(string)
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return types.Trade{}, fmt.Errorf("getTrade: unexpected output types")
	}
	state, err := types.TradeStateFromContract(rawState)
	if err != nil {
		return types.Trade{}, err
	}
	return types.Trade{
		SellerSTAccount: addrs[0].Hex(),
		BuyerSTAccount:  addrs[1].Hex(),
		SCTokenAddress:  addrs[2].Hex(),
		SellerSCAccount: addrs[3].Hex(),
		BuyerSCAccount:  addrs[4].Hex(),
		STValue:         stValue,
		SCValue:         scValue,
		State:           state,
		Memo:            memo,
	}, nil
}
