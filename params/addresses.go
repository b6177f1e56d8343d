package params

// Well-known addresses, kept as raw 20-byte arrays so params stays free of
// higher-level type imports. core/types provides the typed views.
var (
	// SystemAddress is the caller of pre-block system calls.
	SystemAddressBytes = [20]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
		0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xfe}

	// OracleContractAddressBytes is the MegaETH oracle system contract.
	OracleContractAddressBytes = [20]byte{0x63, 0x42, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x01}

	// HistoryStorageAddressBytes is the EIP-2935 history storage contract.
	HistoryStorageAddressBytes = [20]byte{0x0f, 0x79, 0x2b, 0xe4, 0xb0, 0xc0, 0xcb, 0x4d, 0xae, 0x44,
		0x0e, 0xf1, 0x33, 0xe9, 0x0c, 0x0e, 0xcd, 0x48, 0xcc, 0xcc}

	// BeaconRootsAddressBytes is the EIP-4788 beacon roots contract.
	BeaconRootsAddressBytes = [20]byte{0x00, 0x0f, 0x3d, 0xf6, 0xd7, 0x32, 0x80, 0x7e, 0xf1, 0x31,
		0x9f, 0xb7, 0xb8, 0xbb, 0x85, 0x22, 0xd0, 0xbe, 0xac, 0x02}
)
