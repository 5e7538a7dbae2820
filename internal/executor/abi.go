package executor

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// abi.go - ABI всех контрактов, с которыми работает бот
//
// Парсятся один раз при старте процесса; ошибка парсинга - дефект сборки,
// поэтому mustParse паникует.

func mustParse(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic("executor: invalid ABI: " + err.Error())
	}
	return parsed
}

// ExecutorABI - on-chain executor: атомарный батч вызовов,
// generic call с контекстом callback'а и skim остатков
var ExecutorABI = mustParse(`[
	{"type":"function","name":"exec_606BaXt","inputs":[{"name":"data","type":"bytes[]"}],"outputs":[]},
	{"type":"function","name":"call_g0oyU7o","inputs":[
		{"name":"target","type":"address"},
		{"name":"value","type":"uint256"},
		{"name":"context","type":"bytes32"},
		{"name":"data","type":"bytes"}],"outputs":[]},
	{"type":"function","name":"skim","inputs":[
		{"name":"token","type":"address"},
		{"name":"recipient","type":"address"}],"outputs":[]}
]`)

// ERC20ABI - минимальный набор ERC20
var ERC20ABI = mustParse(`[
	{"type":"function","name":"approve","inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"transfer","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"decimals","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]}
]`)

// ERC4626ABI - vault: discovery underlying'а, preview и redeem
var ERC4626ABI = mustParse(`[
	{"type":"function","name":"asset","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"previewRedeem","stateMutability":"view","inputs":[{"name":"shares","type":"uint256"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"redeem","inputs":[{"name":"shares","type":"uint256"},{"name":"receiver","type":"address"},{"name":"owner","type":"address"}],"outputs":[{"name":"","type":"uint256"}]}
]`)

// ERC20WrapperABI - обёртки токенов (OpenZeppelin ERC20Wrapper)
var ERC20WrapperABI = mustParse(`[
	{"type":"function","name":"withdrawTo","inputs":[{"name":"account","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]}
]`)

// MorphoABI - вызов ликвидации протокола
var MorphoABI = mustParse(`[
	{"type":"function","name":"liquidate","inputs":[
		{"name":"marketParams","type":"tuple","components":[
			{"name":"loanToken","type":"address"},
			{"name":"collateralToken","type":"address"},
			{"name":"oracle","type":"address"},
			{"name":"irm","type":"address"},
			{"name":"lltv","type":"uint256"}]},
		{"name":"borrower","type":"address"},
		{"name":"seizedAssets","type":"uint256"},
		{"name":"repaidShares","type":"uint256"},
		{"name":"data","type":"bytes"}],
	"outputs":[{"name":"","type":"uint256"},{"name":"","type":"uint256"}]}
]`)

// PreLiquidationABI - контракт пре-ликвидации
var PreLiquidationABI = mustParse(`[
	{"type":"function","name":"preLiquidate","inputs":[
		{"name":"borrower","type":"address"},
		{"name":"seizedAssets","type":"uint256"},
		{"name":"repaidShares","type":"uint256"},
		{"name":"data","type":"bytes"}],
	"outputs":[{"name":"","type":"uint256"},{"name":"","type":"uint256"}]}
]`)

// UniswapV3FactoryABI / UniswapV3PoolABI - поиск пула и swap
var UniswapV3FactoryABI = mustParse(`[
	{"type":"function","name":"getPool","stateMutability":"view","inputs":[
		{"name":"tokenA","type":"address"},
		{"name":"tokenB","type":"address"},
		{"name":"fee","type":"uint24"}],
	"outputs":[{"name":"","type":"address"}]}
]`)

var UniswapV3PoolABI = mustParse(`[
	{"type":"function","name":"liquidity","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint128"}]},
	{"type":"function","name":"swap","inputs":[
		{"name":"recipient","type":"address"},
		{"name":"zeroForOne","type":"bool"},
		{"name":"amountSpecified","type":"int256"},
		{"name":"sqrtPriceLimitX96","type":"uint160"},
		{"name":"data","type":"bytes"}],
	"outputs":[{"name":"","type":"int256"},{"name":"","type":"int256"}]}
]`)

// FeedRegistryABI - Chainlink Feed Registry (только mainnet)
var FeedRegistryABI = mustParse(`[
	{"type":"function","name":"latestRoundData","stateMutability":"view","inputs":[
		{"name":"base","type":"address"},{"name":"quote","type":"address"}],
	"outputs":[
		{"name":"roundId","type":"uint80"},
		{"name":"answer","type":"int256"},
		{"name":"startedAt","type":"uint256"},
		{"name":"updatedAt","type":"uint256"},
		{"name":"answeredInRound","type":"uint80"}]},
	{"type":"function","name":"decimals","stateMutability":"view","inputs":[
		{"name":"base","type":"address"},{"name":"quote","type":"address"}],
	"outputs":[{"name":"","type":"uint8"}]}
]`)

// callbackArguments - кодировка (bytes[] callbacks, bytes data) для
// протоколов, вызывающих callback в executor посреди исполнения
var callbackArguments = abi.Arguments{
	{Type: mustType("bytes[]")},
	{Type: mustType("bytes")},
}

func mustType(t string) abi.Type {
	typ, err := abi.NewType(t, "", nil)
	if err != nil {
		panic("executor: invalid type " + t)
	}
	return typ
}
