package uniswapv2

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

var (
	factoryABI abi.ABI
	pairABI    abi.ABI
)

func init() {
	var err error

	factoryABI, err = abi.JSON(strings.NewReader(factoryABIJSON))
	if err != nil {
		panic("uniswapv2: failed to parse factory ABI: " + err.Error())
	}

	pairABI, err = abi.JSON(strings.NewReader(pairABIJSON))
	if err != nil {
		panic("uniswapv2: failed to parse pair ABI: " + err.Error())
	}
}
