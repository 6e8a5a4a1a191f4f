package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// GenerateID generates a random hex ID
func GenerateID() (string, error) {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// IsValidAddress checks if a string is a valid Ethereum address
func IsValidAddress(address string) bool {
	return common.IsHexAddress(address)
}

// NormalizeAddress normalizes an address to lowercase with 0x prefix
func NormalizeAddress(address string) string {
	if !strings.HasPrefix(address, "0x") {
		address = "0x" + address
	}
	return strings.ToLower(address)
}

// GetEventSignature returns the keccak256 hash of an event signature
func GetEventSignature(signature string) string {
	hash := crypto.Keccak256Hash([]byte(signature))
	return hash.Hex()
}

// AddressFromPrivateKey derives the wallet address controlled by a hex-encoded
// private key. Used for partner reward wallets configured by key only.
func AddressFromPrivateKey(privateKeyHex string) (common.Address, error) {
	keyHex := strings.TrimPrefix(privateKeyHex, "0x")
	key, err := crypto.HexToECDSA(keyHex)
	if err != nil {
		return common.Address{}, NewAppError(ErrCodeConfiguration, "Invalid private key", err.Error())
	}
	return crypto.PubkeyToAddress(key.PublicKey), nil
}

// FormatBlockNumber formats a block number for display
func FormatBlockNumber(blockNumber uint64) string {
	return fmt.Sprintf("0x%x", blockNumber)
}

// CreateReceiptID creates a unique ID for a points receipt
func CreateReceiptID(payoutEventID, recipientID string) string {
	data := fmt.Sprintf("%s-%s", payoutEventID, recipientID)
	hash := crypto.Keccak256Hash([]byte(data))
	return hash.Hex()
}
