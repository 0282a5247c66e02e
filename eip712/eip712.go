// Package eip712 builds the typed-data digests IbetWST recovers authorizers from.
//
// A digest is keccak256(0x1901 ‖ domainSeparator ‖ structHash) with
// structHash = keccak256(abi.encode(typeHash, fields...)). Field values are
// abi-encoded exactly as the contract encodes them, including the dynamic
// memo string of a trade request.
package eip712

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	ethav "github.com/KOREAN139/ethereum-address-validator"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

const (
	DomainTypeString = "EIP712Domain(string name,string version,uint256 chainId,address verifyingContract)"
	DomainVersion    = "1"
)

var (
	ErrInvalidAddress = errors.New("invalid address")
	ErrInvalidValue   = errors.New("invalid value")
	ErrNoDigest       = errors.New("operation has no authorization digest")
)

var (
	addressT = mustType("address")
	uint256T = mustType("uint256")
	bytes32T = mustType("bytes32")
	stringT  = mustType("string")
)

func mustType(t string) abi.Type {
	typ, err := abi.NewType(t, "", nil)
	if err != nil {
		panic(err)
	}
	return typ
}

type Domain struct {
	Name              string
	Version           string
	ChainID           *big.Int
	VerifyingContract common.Address
}

func DomainSeparator(d Domain) (common.Hash, error) {
	if d.ChainID == nil || d.ChainID.Sign() < 0 {
		return common.Hash{}, fmt.Errorf("%w: chain id", ErrInvalidValue)
	}
	version := d.Version
	if version == "" {
		version = DomainVersion
	}
	args := abi.Arguments{{Type: bytes32T}, {Type: bytes32T}, {Type: bytes32T}, {Type: uint256T}, {Type: addressT}}
	packed, err := args.Pack(
		typeHash(DomainTypeString),
		[32]byte(crypto.Keccak256Hash([]byte(d.Name))),
		[32]byte(crypto.Keccak256Hash([]byte(version))),
		d.ChainID,
		d.VerifyingContract,
	)
	if err != nil {
		return common.Hash{}, fmt.Errorf("encode domain: %w", err)
	}
	return crypto.Keccak256Hash(packed), nil
}

// Message is one typed-data struct of the IbetWST authorization scheme.
type Message interface {
	TypeString() string
	fields() (abi.Arguments, []interface{})
}

func typeHash(typeString string) [32]byte {
	return [32]byte(crypto.Keccak256Hash([]byte(typeString)))
}

func StructHash(msg Message) (common.Hash, error) {
	fieldArgs, values := msg.fields()
	args := append(abi.Arguments{{Type: bytes32T}}, fieldArgs...)
	packed, err := args.Pack(append([]interface{}{typeHash(msg.TypeString())}, values...)...)
	if err != nil {
		return common.Hash{}, fmt.Errorf("encode %s: %w", msg.TypeString(), err)
	}
	return crypto.Keccak256Hash(packed), nil
}

func Digest(domainSeparator common.Hash, msg Message) (common.Hash, error) {
	structHash, err := StructHash(msg)
	if err != nil {
		return common.Hash{}, err
	}
	return crypto.Keccak256Hash([]byte{0x19, 0x01}, domainSeparator.Bytes(), structHash.Bytes()), nil
}

// ParseAddress accepts a 20 byte hex address. Mixed case input must carry a
// valid EIP-55 checksum.
func ParseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	hex := s
	if !strings.HasPrefix(hex, "0x") && !strings.HasPrefix(hex, "0X") {
		hex = "0x" + hex
	}
	body := hex[2:]
	if body != strings.ToLower(body) && body != strings.ToUpper(body) {
		if err := ethav.Validate(hex); err != nil {
			return common.Address{}, fmt.Errorf("%w: %q: %s", ErrInvalidAddress, s, err)
		}
	}
	return common.HexToAddress(hex), nil
}

func checkValue(name string, v *big.Int) error {
	if v == nil || v.Sign() < 0 || v.BitLen() > 256 {
		return fmt.Errorf("%w: %s", ErrInvalidValue, name)
	}
	return nil
}
