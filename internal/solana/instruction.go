package solana

import "fmt"

// AccountMeta describes one account referenced by an instruction.
type AccountMeta struct {
	PublicKey  PublicKey
	IsSigner   bool
	IsWritable bool
}

// Meta builds a read-only, non-signer account reference.
func Meta(pk PublicKey) AccountMeta {
	return AccountMeta{PublicKey: pk}
}

// Writable marks the account writable.
func (m AccountMeta) Writable() AccountMeta {
	m.IsWritable = true
	return m
}

// Signer marks the account as a required signer.
func (m AccountMeta) Signer() AccountMeta {
	m.IsSigner = true
	return m
}

// Instruction is a single program invocation.
type Instruction struct {
	ProgramID PublicKey
	Accounts  []AccountMeta
	Data      []byte
}

// Transaction is an unsigned request ready to be signed and sent by a wallet.
// Instructions execute atomically in order.
type Transaction struct {
	FeePayer     PublicKey
	Instructions []Instruction
}

// NewTransaction builds a transaction paid for by feePayer.
func NewTransaction(feePayer PublicKey, instructions ...Instruction) *Transaction {
	return &Transaction{FeePayer: feePayer, Instructions: instructions}
}

// Prepend inserts instructions ahead of the existing ones.
func (t *Transaction) Prepend(instructions ...Instruction) {
	t.Instructions = append(append([]Instruction{}, instructions...), t.Instructions...)
}

// Validate checks that the transaction can be compiled.
func (t *Transaction) Validate() error {
	if t.FeePayer.IsZero() {
		return fmt.Errorf("fee payer is required")
	}
	if len(t.Instructions) == 0 {
		return fmt.Errorf("transaction has no instructions")
	}
	for i, ix := range t.Instructions {
		if len(ix.Accounts) == 0 && len(ix.Data) == 0 {
			return fmt.Errorf("instruction %d is empty", i)
		}
	}
	return nil
}
