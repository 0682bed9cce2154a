package totalstake

import (
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staking_tracker/internal/infrastructure/abicodec"
)

var (
	liquidToken = common.HexToAddress("0x99a57e6c8558bc6689f894e068733adf83c19725")
	queryRouter = common.HexToAddress("0x0309ca717d6989676194b88fd06029a88ceefee6")
	queryPool   = common.HexToAddress("0x1964ca90474b11ffd08af387b110ba6c96251bfc")
)

// The calldata observed on-chain for user 0x…aa, one 32-byte word per line.
var expectedWords = []string{
	"0000000000000000000000000000000000000000000000000000000000000020", // offset of _txs
	"0000000000000000000000000000000000000000000000000000000000000002", // len(_txs)
	"0000000000000000000000000000000000000000000000000000000000000040", // offset of tx0
	"0000000000000000000000000000000000000000000000000000000000000160", // offset of tx1
	"0000000000000000000000000000000000000000000000000000000000000000", // tx0.delegateCall
	"0000000000000000000000000000000000000000000000000000000000000000", // tx0.revertOnError
	"0000000000000000000000000000000000000000000000000000000000000000", // tx0.gasLimit
	"00000000000000000000000099a57e6c8558bc6689f894e068733adf83c19725", // tx0.target
	"0000000000000000000000000000000000000000000000000000000000000000", // tx0.value
	"00000000000000000000000000000000000000000000000000000000000000c0", // tx0.data offset
	"0000000000000000000000000000000000000000000000000000000000000024", // len(tx0.data)
	"7965d56d00000000000000000000000000000000000000000000000000000000",
	"0000000000000000000000000000000000000000000000000000000000000000",
	"0000000000000000000000000000000000000000000000000000000000000000", // tx1.delegateCall
	"0000000000000000000000000000000000000000000000000000000000000000", // tx1.revertOnError
	"0000000000000000000000000000000000000000000000000000000000000000", // tx1.gasLimit
	"0000000000000000000000000309ca717d6989676194b88fd06029a88ceefee6", // tx1.target
	"0000000000000000000000000000000000000000000000000000000000000000", // tx1.value
	"00000000000000000000000000000000000000000000000000000000000000c0", // tx1.data offset
	"0000000000000000000000000000000000000000000000000000000000000064", // len(tx1.data)
	"5ac983f400000000000000000000000099a57e6c8558bc6689f894e068733adf",
	"83c197250000000000000000000000001964ca90474b11ffd08af387b110ba6c",
	"96251bfc00000000000000000000000000000000000000000000000000000000",
	"000000aa00000000000000000000000000000000000000000000000000000000",
}

func newBuilder(t *testing.T) *PayloadBuilder {
	t.Helper()
	b, err := NewPayloadBuilder(abicodec.MustNewDescriptors(), liquidToken, queryRouter, queryPool)
	require.NoError(t, err)
	return b
}

func TestPayloadLayout(t *testing.T) {
	user := common.HexToAddress("0x00000000000000000000000000000000000000aa")

	data, err := newBuilder(t).Build(user)
	require.NoError(t, err)
	require.Len(t, data, 772)

	assert.Equal(t, "0xffd7d741", hexutil.Encode(data[:4]))
	body := data[4:]
	require.Len(t, body, len(expectedWords)*32)
	for i, want := range expectedWords {
		assert.Equal(t, want, common.Bytes2Hex(body[i*32:(i+1)*32]), "word %d", i)
	}
}

func TestPayloadIsParameterisedOnlyByUser(t *testing.T) {
	b := newBuilder(t)
	a := common.HexToAddress("0x1111111111111111111111111111111111111111")
	c := common.HexToAddress("0x2222222222222222222222222222222222222222")

	pa, err := b.Build(a)
	require.NoError(t, err)
	pc, err := b.Build(c)
	require.NoError(t, err)
	require.Equal(t, len(pa), len(pc))

	var diff []int
	for i := range pa {
		if pa[i] != pc[i] {
			diff = append(diff, i)
		}
	}
	// the user address occupies 20 bytes straddling the last two words
	require.Len(t, diff, 20)
	assert.Equal(t, 4+22*32+16, diff[0])
	assert.True(t, strings.Contains(common.Bytes2Hex(pa), strings.Repeat("11", 20)))
}
