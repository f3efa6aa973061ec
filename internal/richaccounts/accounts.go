// Package richaccounts derives the ten deterministic pre-funded
// accounts every fresh node starts with, so integration tests are
// reproducible across machines and runs.
package richaccounts

import (
	"crypto/ecdsa"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// InitialBalanceWei is 10_000 ETH denominated in wei.
var InitialBalanceWei = new(big.Int).Mul(big.NewInt(10_000), big.NewInt(1_000_000_000_000_000_000))

// rawKeys is the well-known Hardhat/anvil mnemonic-derived key list,
// kept fixed so `eth_accounts` always returns the same ten addresses
// in the same order.
var rawKeys = []string{
	"0ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff8",
	"059c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690",
	"05de4111afa1a4b94908f83103eb1f1706367c2e68ca870fc3fb9a804cdab365",
	"07c852118294e51e653712a81e05800f419141751be58f605c371e15141b007a",
	"047e179ec197488593b187f80a00eb0da91f1b9d0b13f8733639f19c30a34926",
	"08b3a350cf5c34c9194ca85829a2df0ec3153be0318b5e2d3348e872092edffd",
	"092db14e403b83dfe3df233f83dfa3a0d7096f21ca9b0d6d6b8d88b2b4ec1564",
	"04bbbf85ce3377467afe5d46f804f221813b2bb87f24d81f60f1fcdbf7cbf435",
	"0dbda1821b80551c9d65939329250298aa3472ba22feea921c0794011c2030c4",
	"02a871d0798f97d79848a013d4936a73bf4cc922c825d33c1cf7073dff6d6955",
}

// Account is one rich account: its address and its private key
// (nil only in the degenerate case of a key-parse failure, which
// never happens for the fixed list above).
type Account struct {
	Address common.Address
	Key     *ecdsa.PrivateKey
}

// All returns the ten rich accounts, in the fixed order they are
// exposed by eth_accounts.
func All() []Account {
	accounts := make([]Account, 0, len(rawKeys))
	for _, hexKey := range rawKeys {
		key, err := crypto.HexToECDSA(hexKey)
		if err != nil {
			// The key list above is a fixed, compile-time constant;
			// a parse failure here is a programming error.
			panic("richaccounts: invalid fixed private key: " + err.Error())
		}
		accounts = append(accounts, Account{
			Address: crypto.PubkeyToAddress(key.PublicKey),
			Key:     key,
		})
	}
	return accounts
}
