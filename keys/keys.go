// Package keys resolves the private key that signs transactions for an address.
package keys

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"gorm.io/gorm"

	"ibetwstbridge/db"
)

var ErrAccountNotFound = errors.New("account not found")

type Account struct {
	Address common.Address
	Key     *ecdsa.PrivateKey
}

// Store looks up signing accounts by address.
type Store interface {
	Get(ctx context.Context, address string) (*Account, error)
}

// PasswordDecrypter turns the stored eoa_password into the keyfile passphrase.
type PasswordDecrypter func(stored string) (string, error)

func PlainPassword(stored string) (string, error) { return stored, nil }

// DBStore serves the relayer key from configuration and issuer keys from the
// account table.
type DBStore struct {
	db      *gorm.DB
	relayer *Account
	decrypt PasswordDecrypter
}

func NewDBStore(database *gorm.DB, relayerAddress, relayerKey string, decrypt PasswordDecrypter) (*DBStore, error) {
	if decrypt == nil {
		decrypt = PlainPassword
	}
	s := &DBStore{db: database, decrypt: decrypt}
	if relayerKey == "" {
		return s, nil
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(relayerKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("relayer key: %w", err)
	}
	address := crypto.PubkeyToAddress(key.PublicKey)
	if relayerAddress != "" && common.HexToAddress(relayerAddress) != address {
		return nil, fmt.Errorf("relayer key does not match address %s", relayerAddress)
	}
	s.relayer = &Account{Address: address, Key: key}
	return s, nil
}

// Relayer returns the configured relayer account or nil.
func (s *DBStore) Relayer() *Account {
	return s.relayer
}

func (s *DBStore) Get(ctx context.Context, address string) (*Account, error) {
	if s.relayer != nil && common.HexToAddress(address) == s.relayer.Address {
		return s.relayer, nil
	}
	if s.db == nil {
		return nil, ErrAccountNotFound
	}

	row, err := db.GetAccount(ctx, s.db, address)
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	password, err := s.decrypt(row.EoaPassword)
	if err != nil {
		return nil, fmt.Errorf("decrypt password of %s: %w", address, err)
	}
	key, err := keystore.DecryptKey([]byte(row.Keyfile), password)
	if err != nil {
		return nil, fmt.Errorf("decrypt keyfile of %s: %w", address, err)
	}
	return &Account{Address: key.Address, Key: key.PrivateKey}, nil
}
