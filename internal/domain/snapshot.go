package domain

// VaultSnapshotPoint is the vault and wallet state observed by one refresh.
// Corresponds to vault_snapshots table in ClickHouse.
type VaultSnapshotPoint struct {
	Wallet          string // base58 wallet identity
	TimestampMs     int64  // observation time (ms)
	VaultExists     bool
	CustodyBalance  uint64 // base units
	ReceiptSupply   uint64 // base units
	LastDepositTime int64  // unix seconds, from the vault account
	UserUSDC        uint64 // base units
	UserReceipt     uint64 // base units
}
