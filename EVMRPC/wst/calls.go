package wst

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"ibetwstbridge/eip712"
	"ibetwstbridge/types"
)

var ErrNoBytecode = errors.New("contract bytecode not loaded")

// Call is packed calldata plus the gas limit used for it.
type Call struct {
	Data     []byte
	GasLimit uint64
}

type callPacker func(c *Contract, p types.OpParams, nonce, r, s [32]byte, v uint8) (Call, error)

var callPackers = map[types.OpType]callPacker{
	types.OpAddWhitelist: func(c *Contract, p types.OpParams, nonce, r, s [32]byte, v uint8) (Call, error) {
		wp, err := as[types.AddWhitelistParams](p)
		if err != nil {
			return Call{}, err
		}
		addrs, err := addresses(wp.STAccountAddress, wp.SCAccountAddressIn, wp.SCAccountAddressOut)
		if err != nil {
			return Call{}, err
		}
		return c.pack(GasAddWhitelist, "addAccountWhiteListWithAuthorization", addrs[0], addrs[1], addrs[2], nonce, v, r, s)
	},
	types.OpDeleteWhitelist: func(c *Contract, p types.OpParams, nonce, r, s [32]byte, v uint8) (Call, error) {
		wp, err := as[types.DeleteWhitelistParams](p)
		if err != nil {
			return Call{}, err
		}
		addrs, err := addresses(wp.STAccountAddress)
		if err != nil {
			return Call{}, err
		}
		return c.pack(GasDeleteWhitelist, "deleteAccountWhiteListWithAuthorization", addrs[0], nonce, v, r, s)
	},
	types.OpMint: func(c *Contract, p types.OpParams, nonce, r, s [32]byte, v uint8) (Call, error) {
		mp, err := as[types.MintParams](p)
		if err != nil {
			return Call{}, err
		}
		addrs, err := addresses(mp.ToAddress)
		if err != nil {
			return Call{}, err
		}
		return c.pack(GasMint, "mintWithAuthorization", addrs[0], value(mp.Value), nonce, v, r, s)
	},
	types.OpBurn: func(c *Contract, p types.OpParams, nonce, r, s [32]byte, v uint8) (Call, error) {
		bp, err := as[types.BurnParams](p)
		if err != nil {
			return Call{}, err
		}
		addrs, err := addresses(bp.FromAddress)
		if err != nil {
			return Call{}, err
		}
		return c.pack(GasBurn, "burnWithAuthorization", addrs[0], value(bp.Value), nonce, v, r, s)
	},
	types.OpForceBurn: func(c *Contract, p types.OpParams, nonce, r, s [32]byte, v uint8) (Call, error) {
		fp, err := as[types.ForceBurnParams](p)
		if err != nil {
			return Call{}, err
		}
		addrs, err := addresses(fp.AccountAddress)
		if err != nil {
			return Call{}, err
		}
		return c.pack(GasForceBurn, "forceBurnFromWithAuthorization", addrs[0], value(fp.Value), nonce, v, r, s)
	},
	types.OpRequestTrade: func(c *Contract, p types.OpParams, nonce, r, s [32]byte, v uint8) (Call, error) {
		tp, err := as[types.RequestTradeParams](p)
		if err != nil {
			return Call{}, err
		}
		addrs, err := addresses(
			tp.SellerSTAccountAddress, tp.BuyerSTAccountAddress, tp.SCTokenAddress,
			tp.SellerSCAccountAddress, tp.BuyerSCAccountAddress,
		)
		if err != nil {
			return Call{}, err
		}
		return c.pack(GasRequestTrade, "requestTradeWithAuthorization",
			addrs[0], addrs[1], addrs[2], addrs[3], addrs[4],
			value(tp.STValue), value(tp.SCValue), tp.Memo, nonce, v, r, s)
	},
	types.OpCancelTrade: func(c *Contract, p types.OpParams, nonce, r, s [32]byte, v uint8) (Call, error) {
		tp, err := as[types.CancelTradeParams](p)
		if err != nil {
			return Call{}, err
		}
		return c.pack(GasCancelTrade, "cancelTradeWithAuthorization", value(tp.Index), nonce, v, r, s)
	},
	types.OpAcceptTrade: func(c *Contract, p types.OpParams, nonce, r, s [32]byte, v uint8) (Call, error) {
		tp, err := as[types.AcceptTradeParams](p)
		if err != nil {
			return Call{}, err
		}
		return c.pack(GasAcceptTrade, "acceptTradeWithAuthorization", value(tp.Index), nonce, v, r, s)
	},
	types.OpRejectTrade: func(c *Contract, p types.OpParams, nonce, r, s [32]byte, v uint8) (Call, error) {
		tp, err := as[types.RejectTradeParams](p)
		if err != nil {
			return Call{}, err
		}
		return c.pack(GasRejectTrade, "rejectTradeWithAuthorization", value(tp.Index), nonce, v, r, s)
	},
}

// PackAuthorized builds the *WithAuthorization call for p signed by auth.
func (c *Contract) PackAuthorized(p types.OpParams, auth types.Authorization) (Call, error) {
	pack, ok := callPackers[p.OpType()]
	if !ok {
		return Call{}, fmt.Errorf("no authorized call for %s", p.OpType())
	}
	nonce, err := auth.NonceBytes()
	if err != nil {
		return Call{}, err
	}
	r, s, err := auth.RS()
	if err != nil {
		return Call{}, err
	}
	return pack(c, p, nonce, r, s, auth.V)
}

// PackDeploy appends the constructor arguments to the creation bytecode.
func (c *Contract) PackDeploy(p types.DeployParams) (Call, error) {
	if len(c.Bytecode) == 0 {
		return Call{}, ErrNoBytecode
	}
	owner, err := eip712.ParseAddress(p.InitialOwner)
	if err != nil {
		return Call{}, err
	}
	args, err := c.ABI.Pack("", p.Name, owner)
	if err != nil {
		return Call{}, fmt.Errorf("pack constructor: %w", err)
	}
	data := append(append([]byte{}, c.Bytecode...), args...)
	return Call{Data: data, GasLimit: GasDeploy}, nil
}

func (c *Contract) pack(gas uint64, method string, args ...interface{}) (Call, error) {
	data, err := c.ABI.Pack(method, args...)
	if err != nil {
		return Call{}, fmt.Errorf("pack %s: %w", method, err)
	}
	return Call{Data: data, GasLimit: gas}, nil
}

func as[T any](p types.OpParams) (T, error) {
	switch v := any(p).(type) {
	case T:
		return v, nil
	case *T:
		if v != nil {
			return *v, nil
		}
	}
	var zero T
	return zero, fmt.Errorf("unexpected params %T", p)
}

func addresses(in ...string) ([]common.Address, error) {
	out := make([]common.Address, len(in))
	for i, s := range in {
		addr, err := eip712.ParseAddress(s)
		if err != nil {
			return nil, err
		}
		out[i] = addr
	}
	return out, nil
}

// value keeps abi packing from dereferencing a nil amount.
func value(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
