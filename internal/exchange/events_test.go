package exchange

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"dexDesk/internal/model"
)

var (
	testUser    = common.HexToAddress("0x1111111111111111111111111111111111111111")
	testCreator = common.HexToAddress("0x2222222222222222222222222222222222222222")
	testTokenA  = common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	testTokenB  = common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
)

func testExchange(t *testing.T) *Exchange {
	t.Helper()
	parsed, err := ExchangeABI()
	if err != nil {
		t.Fatalf("abi parse: %v", err)
	}
	return &Exchange{
		Address: common.HexToAddress("0x9fE46736679d2D9a65F0992F2272dE9f3c7fA6e0"),
		abi:     parsed,
	}
}

func buildLog(t *testing.T, e *Exchange, name string, args ...interface{}) types.Log {
	t.Helper()
	event, ok := e.abi.Events[name]
	if !ok {
		t.Fatalf("unknown event %s", name)
	}
	data, err := event.Inputs.Pack(args...)
	if err != nil {
		t.Fatalf("pack %s: %v", name, err)
	}
	return types.Log{
		Address: e.Address,
		Topics:  []common.Hash{event.ID},
		Data:    data,
	}
}

func TestDecodeOrderLog(t *testing.T) {
	e := testExchange(t)

	log := buildLog(t, e, EventOrder,
		big.NewInt(7),
		testUser,
		testTokenA,
		big.NewInt(1000),
		testTokenB,
		big.NewInt(2000),
		big.NewInt(1700000000),
	)

	event, err := e.DecodeOrderLog(EventOrder, log)
	if err != nil {
		t.Fatalf("decode order: %v", err)
	}

	if event.ID.Int64() != 7 {
		t.Fatalf("id mismatch: %s", event.ID)
	}
	if event.User != testUser {
		t.Fatalf("user mismatch: %s", event.User.Hex())
	}
	if event.TokenGet != testTokenA || event.TokenGive != testTokenB {
		t.Fatalf("token mismatch: %+v", event)
	}
	if event.AmountGet.Int64() != 1000 || event.AmountGive.Int64() != 2000 {
		t.Fatalf("amount mismatch: %+v", event)
	}
	if event.Timestamp.Int64() != 1700000000 {
		t.Fatalf("timestamp mismatch: %s", event.Timestamp)
	}
}

func TestDecodeCancelLogSharesOrderShape(t *testing.T) {
	e := testExchange(t)

	log := buildLog(t, e, EventCancel,
		big.NewInt(3),
		testUser,
		testTokenA,
		big.NewInt(10),
		testTokenB,
		big.NewInt(20),
		big.NewInt(1700000001),
	)

	event, err := e.DecodeOrderLog(EventCancel, log)
	if err != nil {
		t.Fatalf("decode cancel: %v", err)
	}
	if event.ID.Int64() != 3 {
		t.Fatalf("id mismatch: %s", event.ID)
	}
}

func TestDecodeTradeLog(t *testing.T) {
	e := testExchange(t)

	log := buildLog(t, e, EventTrade,
		big.NewInt(9),
		testUser,
		testTokenA,
		big.NewInt(500),
		testTokenB,
		big.NewInt(1500),
		testCreator,
		big.NewInt(1700000002),
	)

	event, err := e.DecodeTradeLog(log)
	if err != nil {
		t.Fatalf("decode trade: %v", err)
	}

	if event.ID.Int64() != 9 {
		t.Fatalf("id mismatch: %s", event.ID)
	}
	if event.Creator != testCreator {
		t.Fatalf("creator mismatch: %s", event.Creator.Hex())
	}
	if event.Timestamp.Int64() != 1700000002 {
		t.Fatalf("timestamp mismatch: %s", event.Timestamp)
	}
}

func TestDecodeTransferLog(t *testing.T) {
	e := testExchange(t)

	log := buildLog(t, e, EventDeposit,
		testTokenA,
		testUser,
		big.NewInt(100),
		big.NewInt(300),
	)

	event, err := e.DecodeTransferLog(EventDeposit, log)
	if err != nil {
		t.Fatalf("decode deposit: %v", err)
	}
	if event.Direction != model.TransferDeposit {
		t.Fatalf("direction mismatch: %s", event.Direction)
	}
	if event.Amount.Int64() != 100 || event.Balance.Int64() != 300 {
		t.Fatalf("amount mismatch: %+v", event)
	}

	log = buildLog(t, e, EventWithdrawal,
		testTokenA,
		testUser,
		big.NewInt(50),
		big.NewInt(250),
	)
	event, err = e.DecodeTransferLog(EventWithdrawal, log)
	if err != nil {
		t.Fatalf("decode withdrawal: %v", err)
	}
	if event.Direction != model.TransferWithdrawal {
		t.Fatalf("direction mismatch: %s", event.Direction)
	}
}

func TestDecodeRejectsTopicMismatch(t *testing.T) {
	e := testExchange(t)

	log := buildLog(t, e, EventOrder,
		big.NewInt(1),
		testUser,
		testTokenA,
		big.NewInt(1),
		testTokenB,
		big.NewInt(1),
		big.NewInt(1),
	)
	log.Topics[0] = common.HexToHash("0xdeadbeef")

	if _, err := e.DecodeOrderLog(EventOrder, log); err == nil {
		t.Fatalf("expected topic mismatch error")
	}
}
