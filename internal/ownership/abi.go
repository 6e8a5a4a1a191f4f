// File: internal/ownership/abi.go
package ownership

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Minimal ABI for the builder NFT contract: the two ERC-1155 transfer events
// plus the read functions the worker needs
const builderNFTABI = `[
	{"anonymous":false,"inputs":[
		{"indexed":true,"name":"operator","type":"address"},
		{"indexed":true,"name":"from","type":"address"},
		{"indexed":true,"name":"to","type":"address"},
		{"indexed":false,"name":"id","type":"uint256"},
		{"indexed":false,"name":"value","type":"uint256"}],
	 "name":"TransferSingle","type":"event"},
	{"anonymous":false,"inputs":[
		{"indexed":true,"name":"operator","type":"address"},
		{"indexed":true,"name":"from","type":"address"},
		{"indexed":true,"name":"to","type":"address"},
		{"indexed":false,"name":"ids","type":"uint256[]"},
		{"indexed":false,"name":"values","type":"uint256[]"}],
	 "name":"TransferBatch","type":"event"},
	{"inputs":[{"name":"tokenId","type":"uint256"}],
	 "name":"getTokenPurchasePrice",
	 "outputs":[{"name":"","type":"uint256"}],
	 "stateMutability":"view","type":"function"},
	{"inputs":[{"name":"account","type":"address"},{"name":"id","type":"uint256"}],
	 "name":"balanceOf",
	 "outputs":[{"name":"","type":"uint256"}],
	 "stateMutability":"view","type":"function"},
	{"inputs":[{"name":"id","type":"uint256"}],
	 "name":"totalSupply",
	 "outputs":[{"name":"","type":"uint256"}],
	 "stateMutability":"view","type":"function"}
]`

var (
	nftABI abi.ABI

	// TransferSingleTopic is keccak256("TransferSingle(address,address,address,uint256,uint256)")
	TransferSingleTopic common.Hash
	// TransferBatchTopic is keccak256("TransferBatch(address,address,address,uint256[],uint256[])")
	TransferBatchTopic common.Hash
)

func init() {
	parsed, err := abi.JSON(strings.NewReader(builderNFTABI))
	if err != nil {
		panic("ownership: invalid builder NFT ABI: " + err.Error())
	}
	nftABI = parsed

	TransferSingleTopic = crypto.Keccak256Hash([]byte("TransferSingle(address,address,address,uint256,uint256)"))
	TransferBatchTopic = crypto.Keccak256Hash([]byte("TransferBatch(address,address,address,uint256[],uint256[])"))
}
