package ethereum

import (
	"math/big"

	geth "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

func ethereumCallMsg(from, to common.Address, value *big.Int, data []byte) geth.CallMsg {
	return geth.CallMsg{
		From:  from,
		To:    &to,
		Value: value,
		Data:  data,
	}
}

func encodeData(data []byte) string {
	if len(data) == 0 {
		return "0x"
	}
	return hexutil.Encode(data)
}
