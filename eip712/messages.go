package eip712

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"ibetwstbridge/types"
)

type Mint struct {
	To     common.Address
	Amount *big.Int
	Nonce  [32]byte
}

func (Mint) TypeString() string {
	return "MintWithAuthorization(address to,uint256 amount,bytes32 nonce)"
}

func (m Mint) fields() (abi.Arguments, []interface{}) {
	return abi.Arguments{{Type: addressT}, {Type: uint256T}, {Type: bytes32T}},
		[]interface{}{m.To, m.Amount, m.Nonce}
}

type Burn struct {
	From  common.Address
	Value *big.Int
	Nonce [32]byte
}

func (Burn) TypeString() string {
	return "BurnWithAuthorization(address from,uint256 value,bytes32 nonce)"
}

func (m Burn) fields() (abi.Arguments, []interface{}) {
	return abi.Arguments{{Type: addressT}, {Type: uint256T}, {Type: bytes32T}},
		[]interface{}{m.From, m.Value, m.Nonce}
}

type ForceBurnFrom struct {
	Account common.Address
	Value   *big.Int
	Nonce   [32]byte
}

func (ForceBurnFrom) TypeString() string {
	return "ForceBurnFromWithAuthorization(address account,uint256 value,bytes32 nonce)"
}

func (m ForceBurnFrom) fields() (abi.Arguments, []interface{}) {
	return abi.Arguments{{Type: addressT}, {Type: uint256T}, {Type: bytes32T}},
		[]interface{}{m.Account, m.Value, m.Nonce}
}

type AddAccountWhiteList struct {
	STAccount    common.Address
	SCAccountIn  common.Address
	SCAccountOut common.Address
	Nonce        [32]byte
}

func (AddAccountWhiteList) TypeString() string {
	return "AddAccountWhiteListWithAuthorization(address STAccountAddress,address SCAccountAddressIn,address SCAccountAddressOut,bytes32 nonce)"
}

func (m AddAccountWhiteList) fields() (abi.Arguments, []interface{}) {
	return abi.Arguments{{Type: addressT}, {Type: addressT}, {Type: addressT}, {Type: bytes32T}},
		[]interface{}{m.STAccount, m.SCAccountIn, m.SCAccountOut, m.Nonce}
}

type DeleteAccountWhiteList struct {
	STAccount common.Address
	Nonce     [32]byte
}

func (DeleteAccountWhiteList) TypeString() string {
	return "DeleteAccountWhiteListWithAuthorization(address STAccountAddress,bytes32 nonce)"
}

func (m DeleteAccountWhiteList) fields() (abi.Arguments, []interface{}) {
	return abi.Arguments{{Type: addressT}, {Type: bytes32T}},
		[]interface{}{m.STAccount, m.Nonce}
}

// Transfer and Receive share their fields, only the type name differs.
type Transfer struct {
	From        common.Address
	To          common.Address
	Value       *big.Int
	ValidAfter  *big.Int
	ValidBefore *big.Int
	Nonce       [32]byte
}

func (Transfer) TypeString() string {
	return "TransferWithAuthorization(address from,address to,uint256 value,uint256 validAfter,uint256 validBefore,bytes32 nonce)"
}

func (m Transfer) fields() (abi.Arguments, []interface{}) {
	return transferFields(m)
}

type Receive Transfer

func (Receive) TypeString() string {
	return "ReceiveWithAuthorization(address from,address to,uint256 value,uint256 validAfter,uint256 validBefore,bytes32 nonce)"
}

func (m Receive) fields() (abi.Arguments, []interface{}) {
	return transferFields(Transfer(m))
}

func transferFields(m Transfer) (abi.Arguments, []interface{}) {
	return abi.Arguments{{Type: addressT}, {Type: addressT}, {Type: uint256T}, {Type: uint256T}, {Type: uint256T}, {Type: bytes32T}},
		[]interface{}{m.From, m.To, m.Value, m.ValidAfter, m.ValidBefore, m.Nonce}
}

type RequestTrade struct {
	SellerSTAccount common.Address
	BuyerSTAccount  common.Address
	SCToken         common.Address
	SellerSCAccount common.Address
	BuyerSCAccount  common.Address
	STValue         *big.Int
	SCValue         *big.Int
	Memo            string
	Nonce           [32]byte
}

func (RequestTrade) TypeString() string {
	return "RequestTradeWithAuthorization(address sellerSTAccountAddress,address buyerSTAccountAddress,address SCTokenAddress,address sellerSCAccountAddress,address buyerSCAccountAddress,uint256 STValue,uint256 SCValue,string memory memo,bytes32 nonce)"
}

func (m RequestTrade) fields() (abi.Arguments, []interface{}) {
	return abi.Arguments{
			{Type: addressT}, {Type: addressT}, {Type: addressT}, {Type: addressT}, {Type: addressT},
			{Type: uint256T}, {Type: uint256T}, {Type: stringT}, {Type: bytes32T},
		},
		[]interface{}{
			m.SellerSTAccount, m.BuyerSTAccount, m.SCToken, m.SellerSCAccount, m.BuyerSCAccount,
			m.STValue, m.SCValue, m.Memo, m.Nonce,
		}
}

// TradeAction covers cancel, accept and reject, which all sign over the index.
type TradeAction struct {
	Action string // Cancel, Accept or Reject
	Index  *big.Int
	Nonce  [32]byte
}

func (m TradeAction) TypeString() string {
	return m.Action + "TradeWithAuthorization(uint256 index,bytes32 nonce)"
}

func (m TradeAction) fields() (abi.Arguments, []interface{}) {
	return abi.Arguments{{Type: uint256T}, {Type: bytes32T}},
		[]interface{}{m.Index, m.Nonce}
}

var messageBuilders = map[types.OpType]func(types.OpParams, [32]byte) (Message, error){
	types.OpMint: func(p types.OpParams, nonce [32]byte) (Message, error) {
		mp, err := paramsAs[types.MintParams](p)
		if err != nil {
			return nil, err
		}
		to, err := ParseAddress(mp.ToAddress)
		if err != nil {
			return nil, err
		}
		if err := checkValue("value", mp.Value); err != nil {
			return nil, err
		}
		return Mint{To: to, Amount: mp.Value, Nonce: nonce}, nil
	},
	types.OpBurn: func(p types.OpParams, nonce [32]byte) (Message, error) {
		bp, err := paramsAs[types.BurnParams](p)
		if err != nil {
			return nil, err
		}
		from, err := ParseAddress(bp.FromAddress)
		if err != nil {
			return nil, err
		}
		if err := checkValue("value", bp.Value); err != nil {
			return nil, err
		}
		return Burn{From: from, Value: bp.Value, Nonce: nonce}, nil
	},
	types.OpForceBurn: func(p types.OpParams, nonce [32]byte) (Message, error) {
		fp, err := paramsAs[types.ForceBurnParams](p)
		if err != nil {
			return nil, err
		}
		account, err := ParseAddress(fp.AccountAddress)
		if err != nil {
			return nil, err
		}
		if err := checkValue("value", fp.Value); err != nil {
			return nil, err
		}
		return ForceBurnFrom{Account: account, Value: fp.Value, Nonce: nonce}, nil
	},
	types.OpAddWhitelist: func(p types.OpParams, nonce [32]byte) (Message, error) {
		wp, err := paramsAs[types.AddWhitelistParams](p)
		if err != nil {
			return nil, err
		}
		addrs, err := parseAddresses(wp.STAccountAddress, wp.SCAccountAddressIn, wp.SCAccountAddressOut)
		if err != nil {
			return nil, err
		}
		return AddAccountWhiteList{STAccount: addrs[0], SCAccountIn: addrs[1], SCAccountOut: addrs[2], Nonce: nonce}, nil
	},
	types.OpDeleteWhitelist: func(p types.OpParams, nonce [32]byte) (Message, error) {
		wp, err := paramsAs[types.DeleteWhitelistParams](p)
		if err != nil {
			return nil, err
		}
		st, err := ParseAddress(wp.STAccountAddress)
		if err != nil {
			return nil, err
		}
		return DeleteAccountWhiteList{STAccount: st, Nonce: nonce}, nil
	},
	types.OpRequestTrade: func(p types.OpParams, nonce [32]byte) (Message, error) {
		tp, err := paramsAs[types.RequestTradeParams](p)
		if err != nil {
			return nil, err
		}
		addrs, err := parseAddresses(
			tp.SellerSTAccountAddress, tp.BuyerSTAccountAddress, tp.SCTokenAddress,
			tp.SellerSCAccountAddress, tp.BuyerSCAccountAddress,
		)
		if err != nil {
			return nil, err
		}
		if err := checkValue("st_value", tp.STValue); err != nil {
			return nil, err
		}
		if err := checkValue("sc_value", tp.SCValue); err != nil {
			return nil, err
		}
		return RequestTrade{
			SellerSTAccount: addrs[0],
			BuyerSTAccount:  addrs[1],
			SCToken:         addrs[2],
			SellerSCAccount: addrs[3],
			BuyerSCAccount:  addrs[4],
			STValue:         tp.STValue,
			SCValue:         tp.SCValue,
			Memo:            tp.Memo,
			Nonce:           nonce,
		}, nil
	},
	types.OpCancelTrade: func(p types.OpParams, nonce [32]byte) (Message, error) {
		tp, err := paramsAs[types.CancelTradeParams](p)
		if err != nil {
			return nil, err
		}
		return tradeAction("Cancel", tp.Index, nonce)
	},
	types.OpAcceptTrade: func(p types.OpParams, nonce [32]byte) (Message, error) {
		tp, err := paramsAs[types.AcceptTradeParams](p)
		if err != nil {
			return nil, err
		}
		return tradeAction("Accept", tp.Index, nonce)
	},
	types.OpRejectTrade: func(p types.OpParams, nonce [32]byte) (Message, error) {
		tp, err := paramsAs[types.RejectTradeParams](p)
		if err != nil {
			return nil, err
		}
		return tradeAction("Reject", tp.Index, nonce)
	},
}

func tradeAction(action string, index *big.Int, nonce [32]byte) (Message, error) {
	if err := checkValue("index", index); err != nil {
		return nil, err
	}
	return TradeAction{Action: action, Index: index, Nonce: nonce}, nil
}

// MessageFor converts stored intent params into the typed-data message the
// contract verifies.
func MessageFor(p types.OpParams, nonce [32]byte) (Message, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: nil params", ErrInvalidValue)
	}
	build, ok := messageBuilders[p.OpType()]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoDigest, p.OpType())
	}
	return build(p, nonce)
}

// BuildDigest is MessageFor followed by Digest.
func BuildDigest(domainSeparator common.Hash, p types.OpParams, nonce [32]byte) (common.Hash, error) {
	msg, err := MessageFor(p, nonce)
	if err != nil {
		return common.Hash{}, err
	}
	return Digest(domainSeparator, msg)
}

func paramsAs[T any](p types.OpParams) (T, error) {
	switch v := any(p).(type) {
	case T:
		return v, nil
	case *T:
		if v != nil {
			return *v, nil
		}
	}
	var zero T
	return zero, fmt.Errorf("%w: unexpected params %T", ErrInvalidValue, p)
}

func parseAddresses(in ...string) ([]common.Address, error) {
	out := make([]common.Address, len(in))
	for i, s := range in {
		addr, err := ParseAddress(s)
		if err != nil {
			return nil, err
		}
		out[i] = addr
	}
	return out, nil
}
