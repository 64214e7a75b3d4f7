package trade

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"dexDesk/internal/chain"
	"dexDesk/internal/session"
)

const receiptPollInterval = 500 * time.Millisecond

// ChainSender submits signed transactions through the chain client and
// waits for one confirmation. The context bounds the whole operation; a
// hung node fails the operation instead of blocking it forever.
type ChainSender struct {
	client  *chain.Client
	session *session.Session
}

func NewChainSender(client *chain.Client, sess *session.Session) *ChainSender {
	return &ChainSender{client: client, session: sess}
}

// SendAndWait builds, signs, broadcasts and waits for the transaction.
func (s *ChainSender) SendAndWait(ctx context.Context, to common.Address, calldata []byte) (common.Hash, error) {
	from := s.session.Address()

	nonce, err := s.client.PendingNonce(ctx, from)
	if err != nil {
		return common.Hash{}, fmt.Errorf("pending nonce: %w", err)
	}
	gasPrice, err := s.client.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("suggest gas price: %w", err)
	}
	gasLimit, err := s.client.EstimateGas(ctx, ethereum.CallMsg{
		From: from,
		To:   &to,
		Data: calldata,
	})
	if err != nil {
		return common.Hash{}, fmt.Errorf("estimate gas: %w", err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Gas:      gasLimit,
		GasPrice: gasPrice,
		Value:    big.NewInt(0),
		Data:     calldata,
	})

	signed, err := s.session.SignTx(tx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("sign transaction: %w", err)
	}

	if err := s.client.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, fmt.Errorf("send transaction: %w", err)
	}

	txHash := signed.Hash()
	receipt, err := s.waitMined(ctx, txHash)
	if err != nil {
		return txHash, err
	}
	if receipt.Status == types.ReceiptStatusFailed {
		return txHash, fmt.Errorf("transaction reverted: %s", txHash.Hex())
	}

	return txHash, nil
}

// waitMined polls for the receipt until the transaction is included or
// the context expires. One confirmation is treated as success.
func (s *ChainSender) waitMined(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(receiptPollInterval)
	defer ticker.Stop()

	for {
		receipt, err := s.client.TransactionReceipt(ctx, txHash)
		if err == nil {
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			return nil, fmt.Errorf("transaction receipt: %w", err)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("wait mined %s: %w", txHash.Hex(), ctx.Err())
		case <-ticker.C:
		}
	}
}
