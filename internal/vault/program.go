package vault

import (
	"context"
	"fmt"

	"autoyield-vault/internal/solana"
)

// Program reads vault accounts through an RPC client.
type Program struct {
	rpc     solana.RPCClient
	builder *Builder
}

// NewProgram creates a Program bound to a deployment.
func NewProgram(rpc solana.RPCClient, builder *Builder) *Program {
	return &Program{rpc: rpc, builder: builder}
}

// Builder returns the instruction builder of this deployment.
func (p *Program) Builder() *Builder {
	return p.builder
}

// FetchMetadata loads the vault metadata account. It returns nil, nil when
// the vault has not been initialized.
func (p *Program) FetchMetadata(ctx context.Context) (*Metadata, error) {
	info, err := p.rpc.GetAccountInfo(ctx, p.builder.Addresses.Metadata)
	if err != nil {
		return nil, fmt.Errorf("get metadata account: %w", err)
	}
	if info == nil {
		return nil, nil
	}
	data, err := solana.DecodeAccountData(info)
	if err != nil {
		return nil, err
	}
	return DecodeMetadata(data)
}

// FetchTokenAccount loads an SPL token account. A missing account yields
// solana.ErrAccountNotFound.
func (p *Program) FetchTokenAccount(ctx context.Context, address solana.PublicKey) (*solana.TokenAccount, error) {
	info, err := p.rpc.GetAccountInfo(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("get token account %s: %w", address, err)
	}
	if info == nil {
		return nil, solana.ErrAccountNotFound
	}
	data, err := solana.DecodeAccountData(info)
	if err != nil {
		return nil, err
	}
	return solana.ParseTokenAccount(address, data)
}
