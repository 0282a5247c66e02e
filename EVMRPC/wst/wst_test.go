package wst

import (
	"context"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ibetwstbridge/eip712"
	"ibetwstbridge/types"
)

type stubCaller struct {
	outputs map[string][]interface{}
	calls   []string
}

func (s *stubCaller) Call(ctx context.Context, contract common.Address, contractABI *abi.ABI, method string, args ...interface{}) ([]interface{}, error) {
	s.calls = append(s.calls, method)
	return s.outputs[method], nil
}

func testAuth() types.Authorization {
	return types.Authorization{
		Nonce: strings.Repeat("01", 32),
		V:     27,
		R:     strings.Repeat("02", 32),
		S:     strings.Repeat("03", 32),
	}
}

func TestPackAuthorizedMint(t *testing.T) {
	c := Default()
	call, err := c.PackAuthorized(&types.MintParams{ToAddress: "0x00000000000000000000000000000000000000aa", Value: big.NewInt(1000)}, testAuth())
	require.NoError(t, err)
	assert.Equal(t, uint64(GasMint), call.GasLimit)

	method := c.ABI.Methods["mintWithAuthorization"]
	assert.Equal(t, method.ID, call.Data[:4])
	args, err := method.Inputs.Unpack(call.Data[4:])
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress("0xaa"), args[0])
	assert.Equal(t, int64(1000), args[1].(*big.Int).Int64())
	assert.Equal(t, uint8(27), args[3])
}

func TestPackAuthorizedAllOps(t *testing.T) {
	c := Default()
	addr := "0x00000000000000000000000000000000000000aa"
	tests := []struct {
		params types.OpParams
		method string
	}{
		{types.AddWhitelistParams{STAccountAddress: addr, SCAccountAddressIn: addr, SCAccountAddressOut: addr}, "addAccountWhiteListWithAuthorization"},
		{types.DeleteWhitelistParams{STAccountAddress: addr}, "deleteAccountWhiteListWithAuthorization"},
		{types.BurnParams{FromAddress: addr, Value: big.NewInt(1)}, "burnWithAuthorization"},
		{types.ForceBurnParams{AccountAddress: addr, Value: big.NewInt(1)}, "forceBurnFromWithAuthorization"},
		{types.RequestTradeParams{
			SellerSTAccountAddress: addr, BuyerSTAccountAddress: addr, SCTokenAddress: addr,
			SellerSCAccountAddress: addr, BuyerSCAccountAddress: addr,
			STValue: big.NewInt(1), SCValue: big.NewInt(2), Memo: "m",
		}, "requestTradeWithAuthorization"},
		{types.CancelTradeParams{Index: big.NewInt(1)}, "cancelTradeWithAuthorization"},
		{types.AcceptTradeParams{Index: big.NewInt(1)}, "acceptTradeWithAuthorization"},
		{types.RejectTradeParams{Index: big.NewInt(1)}, "rejectTradeWithAuthorization"},
	}
	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			call, err := c.PackAuthorized(tt.params, testAuth())
			require.NoError(t, err)
			assert.Equal(t, c.ABI.Methods[tt.method].ID, call.Data[:4])
			assert.NotZero(t, call.GasLimit)
		})
	}
}

func TestPackAuthorizedErrors(t *testing.T) {
	c := Default()
	_, err := c.PackAuthorized(types.DeployParams{Name: "x"}, testAuth())
	assert.Error(t, err)

	bad := testAuth()
	bad.R = "zz"
	_, err = c.PackAuthorized(types.CancelTradeParams{Index: big.NewInt(1)}, bad)
	assert.Error(t, err)

	_, err = c.PackAuthorized(types.MintParams{ToAddress: "0x12", Value: big.NewInt(1)}, testAuth())
	assert.ErrorIs(t, err, eip712.ErrInvalidAddress)
}

func TestPackDeploy(t *testing.T) {
	c := Default()
	_, err := c.PackDeploy(types.DeployParams{Name: "WST", InitialOwner: "0x00000000000000000000000000000000000000aa"})
	assert.ErrorIs(t, err, ErrNoBytecode)

	c.Bytecode = []byte{0x60, 0x80}
	call, err := c.PackDeploy(types.DeployParams{Name: "WST", InitialOwner: "0x00000000000000000000000000000000000000aa"})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x60, 0x80}, call.Data[:2])
	assert.Equal(t, uint64(GasDeploy), call.GasLimit)
	args, err := c.ABI.Constructor.Inputs.Unpack(call.Data[2:])
	require.NoError(t, err)
	assert.Equal(t, "WST", args[0])
}

func TestUnpackTrade(t *testing.T) {
	out := []interface{}{
		common.HexToAddress("0x01"), common.HexToAddress("0x02"), common.HexToAddress("0x03"),
		common.HexToAddress("0x04"), common.HexToAddress("0x05"),
		big.NewInt(100), big.NewInt(200), uint8(1), "memo",
	}
	trade, err := UnpackTrade(out)
	require.NoError(t, err)
	assert.Equal(t, types.TradeExecuted, trade.State)
	assert.Equal(t, common.HexToAddress("0x03").Hex(), trade.SCTokenAddress)
	assert.Equal(t, int64(200), trade.SCValue.Int64())
	assert.Equal(t, "memo", trade.Memo)

	out[7] = uint8(9)
	_, err = UnpackTrade(out)
	assert.Error(t, err)

	_, err = UnpackTrade(out[:8])
	assert.Error(t, err)
}

func TestDomainSeparatorReadsName(t *testing.T) {
	c := Default()
	caller := &stubCaller{outputs: map[string][]interface{}{"name": {"IbetWST"}}}
	address := common.HexToAddress("0x1234567890123456789012345678900000000001")

	got, err := c.DomainSeparator(context.Background(), caller, address, big.NewInt(1))
	require.NoError(t, err)
	want, err := eip712.DomainSeparator(eip712.Domain{Name: "IbetWST", ChainID: big.NewInt(1), VerifyingContract: address})
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, []string{"name"}, caller.calls)
}

func TestAsValueAndPointer(t *testing.T) {
	p := types.CancelTradeParams{Index: big.NewInt(3)}

	got, err := as[types.CancelTradeParams](p)
	require.NoError(t, err)
	assert.Equal(t, p, got)

	got, err = as[types.CancelTradeParams](&p)
	require.NoError(t, err)
	assert.Equal(t, p, got)

	var missing *types.CancelTradeParams
	_, err = as[types.CancelTradeParams](missing)
	assert.Error(t, err)

	_, err = as[types.CancelTradeParams](types.AcceptTradeParams{Index: big.NewInt(3)})
	assert.Error(t, err)
}
