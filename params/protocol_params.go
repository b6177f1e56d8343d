package params

// Standard EVM gas schedule. MegaEVM forks from Optimism Isthmus, so every
// pre-Prague repricing (EIP-150, EIP-2929, EIP-3529, ...) is baked in.
const (
	TxGas               uint64 = 21000 // base cost of a transaction
	TxGasContractCreate uint64 = 53000 // base cost of a create transaction
	TxDataZeroGas       uint64 = 4     // per zero calldata byte
	TxDataNonZeroGas    uint64 = 16    // per non-zero calldata byte
	TxAccessListAddress uint64 = 2400  // per EIP-2930 access list address
	TxAccessListStorage uint64 = 1900  // per EIP-2930 access list storage key
	TxAuthTupleGas      uint64 = 12500 // per EIP-7702 authorization tuple
	TxAuthEmptyAccount  uint64 = 25000 // extra when the authority does not yet exist

	QuickStepGas   uint64 = 2
	FastestStepGas uint64 = 3
	FastStepGas    uint64 = 5
	MidStepGas     uint64 = 8
	SlowStepGas    uint64 = 10
	ExtStepGas     uint64 = 20

	Keccak256Gas     uint64 = 30
	Keccak256WordGas uint64 = 6
	CopyGas          uint64 = 3
	MemoryGas        uint64 = 3
	LogGas           uint64 = 375
	LogTopicGas      uint64 = 375
	LogDataGas       uint64 = 8
	JumpdestGas      uint64 = 1
	ExpGas           uint64 = 10
	ExpByteGas       uint64 = 50
	InitCodeWordGas  uint64 = 2

	WarmStorageReadCost   uint64 = 100  // EIP-2929 warm access
	ColdSloadCost         uint64 = 2100 // EIP-2929 cold SLOAD
	ColdAccountAccessCost uint64 = 2600 // EIP-2929 cold account access

	SstoreSetGas         uint64 = 20000 // zero -> non-zero (Equivalence)
	SstoreResetGas       uint64 = 2900  // warm non-zero -> different non-zero
	SstoreClearsRefund   uint64 = 4800  // EIP-3529 clearing refund
	SstoreSentryGas      uint64 = 2300  // EIP-2200 reentrancy sentry
	MaxRefundQuotient    uint64 = 5     // EIP-3529: refund <= gasUsed/5
	TransientStorageGas  uint64 = 100   // TLOAD/TSTORE (EIP-1153)
	BlockhashGas         uint64 = 20

	CreateGas        uint64 = 32000 // CREATE constant gas (Equivalence)
	CreateDataGas    uint64 = 200   // per deployed code byte
	CallValueGas     uint64 = 9000  // CALL with value transfer
	CallStipend      uint64 = 2300  // stipend granted to valued calls
	CallNewAccount   uint64 = 25000 // CALL creating a new account (Equivalence)
	SelfdestructGas  uint64 = 5000
	CallGasFraction  uint64 = 64 // EIP-150: caller retains 1/64
	MaxCallDepth            = 1024
	StackLimit              = 1024

	// EIP-170 / EIP-3860 defaults (Equivalence).
	MaxCodeSize     = 24576
	MaxInitCodeSize = 2 * MaxCodeSize

	// EIP-7623 calldata floor.
	FloorCostPerToken uint64 = 10 // per token; tokens = zeros + 4*nonzeros
)

// MiniRex resource-limit and gas-schedule constants.
const (
	// Data-size accounting rates (bytes attributed per event).
	BaseTxDataSize       uint64 = 110 // intrinsic bytes per transaction
	AuthorizationSize    uint64 = 101 // per EIP-7702 authorization
	LogTopicSize         uint64 = 32  // per LOG topic
	SaltKeySize          uint64 = 8
	SaltValueDeltaSize   uint64 = 32
	AccountInfoWriteSize uint64 = SaltKeySize + SaltValueDeltaSize // 40
	StorageSlotWriteSize uint64 = SaltKeySize + SaltValueDeltaSize // 40

	// Per-transaction limits.
	TxDataLimit       uint64 = BlockDataLimit / 4 // 819,200 bytes
	TxKVUpdateLimit   uint64 = BlockKVUpdateLimit / 4
	TxComputeGasLimit uint64 = 20_000_000

	// Per-block limits.
	BlockDataLimit     uint64 = 3_276_800 // 3.125 MiB
	BlockKVUpdateLimit uint64 = 1000

	// Volatile-data gas detention caps.
	BlockEnvAccessRemainingGas uint64 = 20_000_000
	OracleAccessRemainingGas   uint64 = 1_000_000

	// Additional intrinsic gas per calldata byte.
	CalldataAdditionalGas uint64 = 10

	// Raised code-size caps.
	MaxCodeSizeMiniRex     = 512 * 1024
	MaxInitCodeSizeMiniRex = 2 * MaxCodeSizeMiniRex

	// Dynamic storage gas bases; both double each time the SALT bucket
	// capacity doubles relative to MinBucketCapacity.
	SstoreSetGasMiniRex   uint64 = 20000
	NewAccountGasMiniRex  uint64 = 25000
	MinBucketCapacity     uint64 = 1024

	// KZG point-evaluation precompile gas under MiniRex.
	KZGPointEvaluationGasMiniRex uint64 = 100_000
)

// EIP-2935 history contract parameters.
const HistoryServeWindow = 8191

// EIP-4788 beacon root ring buffer length.
const BeaconRootsHistoryBufferLength = 8191
