package types

import (
	"encoding/json"
	"fmt"
	"math/big"
)

// OpType is the kind of an outgoing IbetWST transaction.
type OpType string

const (
	OpDeploy          OpType = "deploy"
	OpAddWhitelist    OpType = "add_whitelist"
	OpDeleteWhitelist OpType = "delete_whitelist"
	OpMint            OpType = "mint"
	OpBurn            OpType = "burn"
	OpForceBurn       OpType = "force_burn"
	OpRequestTrade    OpType = "request_trade"
	OpCancelTrade     OpType = "cancel_trade"
	OpAcceptTrade     OpType = "accept_trade"
	OpRejectTrade     OpType = "reject_trade"
)

// OpParams is implemented by the parameter struct of every OpType.
type OpParams interface {
	OpType() OpType
}

type DeployParams struct {
	Name         string `json:"name"`
	InitialOwner string `json:"initial_owner"`
}

type AddWhitelistParams struct {
	STAccountAddress    string `json:"st_account_address"`
	SCAccountAddressIn  string `json:"sc_account_address_in"`
	SCAccountAddressOut string `json:"sc_account_address_out"`
}

type DeleteWhitelistParams struct {
	STAccountAddress string `json:"st_account_address"`
}

type MintParams struct {
	ToAddress string   `json:"to_address"`
	Value     *big.Int `json:"value"`
}

type BurnParams struct {
	FromAddress string   `json:"from_address"`
	Value       *big.Int `json:"value"`
}

type ForceBurnParams struct {
	AccountAddress string   `json:"account_address"`
	Value          *big.Int `json:"value"`
}

type RequestTradeParams struct {
	SellerSTAccountAddress string   `json:"seller_st_account_address"`
	BuyerSTAccountAddress  string   `json:"buyer_st_account_address"`
	SCTokenAddress         string   `json:"sc_token_address"`
	SellerSCAccountAddress string   `json:"seller_sc_account_address"`
	BuyerSCAccountAddress  string   `json:"buyer_sc_account_address"`
	STValue                *big.Int `json:"st_value"`
	SCValue                *big.Int `json:"sc_value"`
	Memo                   string   `json:"memo"`
}

// CancelTrade, AcceptTrade and RejectTrade only carry the trade index.
type CancelTradeParams struct {
	Index *big.Int `json:"index"`
}

type AcceptTradeParams struct {
	Index *big.Int `json:"index"`
}

type RejectTradeParams struct {
	Index *big.Int `json:"index"`
}

func (DeployParams) OpType() OpType          { return OpDeploy }
func (AddWhitelistParams) OpType() OpType    { return OpAddWhitelist }
func (DeleteWhitelistParams) OpType() OpType { return OpDeleteWhitelist }
func (MintParams) OpType() OpType            { return OpMint }
func (BurnParams) OpType() OpType            { return OpBurn }
func (ForceBurnParams) OpType() OpType       { return OpForceBurn }
func (RequestTradeParams) OpType() OpType    { return OpRequestTrade }
func (CancelTradeParams) OpType() OpType     { return OpCancelTrade }
func (AcceptTradeParams) OpType() OpType     { return OpAcceptTrade }
func (RejectTradeParams) OpType() OpType     { return OpRejectTrade }

var opParamsFactory = map[OpType]func() OpParams{
	OpDeploy:          func() OpParams { return &DeployParams{} },
	OpAddWhitelist:    func() OpParams { return &AddWhitelistParams{} },
	OpDeleteWhitelist: func() OpParams { return &DeleteWhitelistParams{} },
	OpMint:            func() OpParams { return &MintParams{} },
	OpBurn:            func() OpParams { return &BurnParams{} },
	OpForceBurn:       func() OpParams { return &ForceBurnParams{} },
	OpRequestTrade:    func() OpParams { return &RequestTradeParams{} },
	OpCancelTrade:     func() OpParams { return &CancelTradeParams{} },
	OpAcceptTrade:     func() OpParams { return &AcceptTradeParams{} },
	OpRejectTrade:     func() OpParams { return &RejectTradeParams{} },
}

// RequiresAuthorization is false only for deploy, which the relayer signs itself.
func (t OpType) RequiresAuthorization() bool {
	return t != OpDeploy
}

func (t OpType) Valid() bool {
	_, ok := opParamsFactory[t]
	return ok
}

// DecodeOpParams parses stored tx params into the struct registered for t.
// The returned value is a pointer, e.g. *MintParams.
func DecodeOpParams(t OpType, raw []byte) (OpParams, error) {
	factory, ok := opParamsFactory[t]
	if !ok {
		return nil, fmt.Errorf("unknown op type %q", t)
	}
	p := factory()
	if err := json.Unmarshal(raw, p); err != nil {
		return nil, fmt.Errorf("decode %s params: %w", t, err)
	}
	return p, nil
}

func EncodeOpParams(p OpParams) ([]byte, error) {
	return json.Marshal(p)
}

// InboundOpType is the kind of an ibet transaction made for the bridge.
type InboundOpType string

const (
	InboundForceUnlock              InboundOpType = "force_unlock"
	InboundForceChangeLockedAccount InboundOpType = "force_change_locked_account"
)

type ForceUnlockParams struct {
	LockAddress      string        `json:"lock_address"`
	AccountAddress   string        `json:"account_address"`
	RecipientAddress string        `json:"recipient_address"`
	Value            *big.Int      `json:"value"`
	Data             BridgeMessage `json:"data"`
}

type ForceChangeLockedAccountParams struct {
	LockAddress          string        `json:"lock_address"`
	BeforeAccountAddress string        `json:"before_account_address"`
	AfterAccountAddress  string        `json:"after_account_address"`
	Value                *big.Int      `json:"value"`
	Data                 BridgeMessage `json:"data"`
}
