// mega-evme is a thin front-end for running a single transaction through
// the MegaEVM against a seeded in-memory state. It exists for local
// experimentation; the execution core itself lives under core/.
package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/holiman/uint256"

	"github.com/megaeth-labs/mega-evm-sub001/core"
	"github.com/megaeth-labs/mega-evm-sub001/core/state"
	"github.com/megaeth-labs/mega-evm-sub001/core/types"
	"github.com/megaeth-labs/mega-evm-sub001/core/vm"
	"github.com/megaeth-labs/mega-evm-sub001/log"
	"github.com/megaeth-labs/mega-evm-sub001/params"
)

// bucketFlags collects repeated --bucket id:capacity flags.
type bucketFlags []string

func (b *bucketFlags) String() string { return strings.Join(*b, ",") }

func (b *bucketFlags) Set(v string) error {
	*b = append(*b, v)
	return nil
}

func main() {
	var (
		sender    = flag.String("sender", "0x0000000000000000000000000000000000100000", "sender address")
		receiver  = flag.String("receiver", "", "receiver address (empty = create)")
		balance   = flag.Uint64("balance", 1_000_000_000_000_000_000, "sender balance in wei")
		value     = flag.Uint64("value", 0, "transferred value in wei")
		gasLimit  = flag.Uint64("gas", 30_000_000, "transaction gas limit")
		input     = flag.String("input", "", "hex calldata (or initcode for creates)")
		code      = flag.String("code", "", "hex code seeded at the receiver")
		timestamp = flag.Uint64("time", 1, "block timestamp")
		number    = flag.Uint64("number", 1, "block number")
		buckets   bucketFlags
	)
	flag.Var(&buckets, "bucket", "SALT bucket capacity as bucket_id:capacity (repeatable)")
	flag.Parse()

	logger := log.Default().Module("cli")

	envs := vm.NewConfiguredExternalEnvs()
	for _, b := range buckets {
		if err := envs.ApplyBucketFlag(b); err != nil {
			logger.Error("bad --bucket flag", "err", err)
			os.Exit(1)
		}
	}

	db := state.NewMemoryDB()
	from := types.HexToAddress(*sender)
	db.SetBalance(from, uint256.NewInt(*balance))

	tx := &types.Transaction{
		Type:     types.LegacyTxType,
		ChainID:  params.MegaChainConfig.ChainID,
		From:     from,
		GasLimit: *gasLimit,
		GasPrice: new(uint256.Int),
		Value:    uint256.NewInt(*value),
		Data:     hexData(*input),
	}
	if *receiver != "" {
		to := types.HexToAddress(*receiver)
		tx.To = &to
		if *code != "" {
			db.SetCode(to, hexData(*code))
		}
	}

	statedb := state.New(db)
	blockCtx := vm.BlockContext{
		BlockNumber: *number,
		Time:        *timestamp,
		GasLimit:    *gasLimit,
		BaseFee:     new(uint256.Int),
	}
	executor, err := core.NewBlockExecutor(params.MegaChainConfig, blockCtx, core.BlockExecutionContext{
		ParentBeaconRoot: &types.Hash{},
		Limits:           core.DefaultBlockLimits(),
	}, statedb, envs)
	if err != nil {
		logger.Error("executor setup failed", "err", err)
		os.Exit(1)
	}
	if err := executor.ApplyPreExecutionChanges(); err != nil {
		logger.Error("pre-execution changes failed", "err", err)
		os.Exit(1)
	}

	receipt, err := executor.ExecuteTransaction(tx)
	if err != nil {
		logger.Error("transaction rejected", "err", err)
		os.Exit(1)
	}
	if _, err := executor.Finish(); err != nil {
		logger.Error("block finish failed", "err", err)
		os.Exit(1)
	}

	logger.Info("transaction executed",
		"status", receipt.Status,
		"gasUsed", receipt.GasUsed,
		"logs", len(receipt.Logs),
		"contract", receipt.ContractAddress.Hex())
	fmt.Printf("status=%d gasUsed=%d logs=%d\n", receipt.Status, receipt.GasUsed, len(receipt.Logs))
}

func hexData(s string) []byte {
	if s == "" {
		return nil
	}
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(s)%2 == 1 {
		s = "0" + s
	}
	out, err := hex.DecodeString(s)
	if err != nil {
		log.Error("bad hex input", "err", err)
		os.Exit(1)
	}
	return out
}
