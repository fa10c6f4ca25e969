package metadata

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// metadataProgramID is the Metaplex token-metadata program; its PDA is
// seeded with ["metadata", program id, mint].
var metadataProgramID = solana.MustPublicKeyFromBase58("metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s")

// mintLayoutSize is the fixed-width SPL Token Mint account layout shared by
// Legacy and Token-2022 (extensions, when present, follow at this offset).
const mintLayoutSize = 82

// SolanaRPCClient implements RPCClient against a live JSON-RPC endpoint.
type SolanaRPCClient struct {
	client *rpc.Client
}

func NewSolanaRPCClient(client *rpc.Client) *SolanaRPCClient {
	return &SolanaRPCClient{client: client}
}

// GetMintAccount decodes the fixed SPL Token Mint layout (mint authority
// option, mint authority, supply, decimals, is_initialized, freeze
// authority option, freeze authority) and, for accounts with trailing
// Token-2022 extension bytes, attempts to locate the token-metadata
// extension's name/symbol/uri triple; absence is not an error, it just
// leaves ExtensionMetadata nil so the caller falls back to the MPL PDA.
func (c *SolanaRPCClient) GetMintAccount(ctx context.Context, mint string) (MintAccount, error) {
	pubkey, err := solana.PublicKeyFromBase58(mint)
	if err != nil {
		return MintAccount{}, fmt.Errorf("parse mint pubkey: %w", err)
	}

	info, err := c.client.GetAccountInfo(ctx, pubkey)
	if err != nil {
		return MintAccount{}, fmt.Errorf("get mint account: %w", err)
	}
	if info == nil || info.Value == nil {
		return MintAccount{}, fmt.Errorf("mint account %s not found", mint)
	}
	data := info.Value.Data.GetBinary()
	if len(data) < mintLayoutSize {
		return MintAccount{}, fmt.Errorf("mint account %s too short: %d bytes", mint, len(data))
	}

	supply := binary.LittleEndian.Uint64(data[36:44])
	decimals := data[44]

	account := MintAccount{Decimals: decimals, Supply: supply}
	if ext := extractTokenMetadataExtension(data[mintLayoutSize:]); ext != nil {
		account.ExtensionMetadata = ext
	}
	return account, nil
}

// GetMPLMetadata reads the Metaplex metadata PDA for mint and decodes just
// the name/symbol/uri/seller-fee prefix fields; a missing PDA account is
// returned as an error so the caller can degrade every field to default.
func (c *SolanaRPCClient) GetMPLMetadata(ctx context.Context, mint string) (*OnChainMetadata, error) {
	mintKey, err := solana.PublicKeyFromBase58(mint)
	if err != nil {
		return nil, fmt.Errorf("parse mint pubkey: %w", err)
	}

	pda, _, err := solana.FindProgramAddress(
		[][]byte{[]byte("metadata"), metadataProgramID.Bytes(), mintKey.Bytes()},
		metadataProgramID,
	)
	if err != nil {
		return nil, fmt.Errorf("derive metadata pda: %w", err)
	}

	info, err := c.client.GetAccountInfo(ctx, pda)
	if err != nil {
		return nil, fmt.Errorf("get metadata pda account: %w", err)
	}
	if info == nil || info.Value == nil {
		return nil, fmt.Errorf("metadata pda %s not found", pda)
	}

	return decodeMPLMetadata(info.Value.Data.GetBinary())
}

// extractTokenMetadataExtension scans Token-2022 TLV extension bytes for
// the token-metadata extension (type 19) and decodes its name/symbol/uri.
// Best-effort: any parse failure returns nil rather than an error, matching
// the resolver's degrade-to-default policy for optional on-chain fields.
func extractTokenMetadataExtension(tlv []byte) *OnChainMetadata {
	const tokenMetadataExtensionType = 19
	offset := 0
	for offset+4 <= len(tlv) {
		extType := binary.LittleEndian.Uint16(tlv[offset : offset+2])
		extLen := int(binary.LittleEndian.Uint16(tlv[offset+2 : offset+4]))
		payloadStart := offset + 4
		if payloadStart+extLen > len(tlv) {
			return nil
		}
		if extType == tokenMetadataExtensionType {
			meta, err := decodeMPLMetadata(tlv[payloadStart : payloadStart+extLen])
			if err != nil {
				return nil
			}
			return meta
		}
		offset = payloadStart + extLen
	}
	return nil
}

// decodeMPLMetadata parses the MPL metadata account's leading fields: a
// 1-byte key, a 32-byte update authority, a 32-byte mint, then three
// Borsh-encoded (4-byte length-prefixed) strings for name/symbol/uri.
func decodeMPLMetadata(data []byte) (*OnChainMetadata, error) {
	const headerSize = 1 + 32 + 32
	if len(data) < headerSize {
		return nil, fmt.Errorf("metadata account too short")
	}
	updateAuthority := solana.PublicKeyFromBytes(data[1:33]).String()

	offset := headerSize
	name, offset, err := readBorshString(data, offset)
	if err != nil {
		return nil, err
	}
	symbol, offset, err := readBorshString(data, offset)
	if err != nil {
		return nil, err
	}
	uri, offset, err := readBorshString(data, offset)
	if err != nil {
		return nil, err
	}

	meta := &OnChainMetadata{
		UpdateAuthority: updateAuthority,
		Name:            name,
		Symbol:          symbol,
		URI:             uri,
	}
	if offset+2 <= len(data) {
		meta.SellerFeeBasisPoints = binary.LittleEndian.Uint16(data[offset : offset+2])
	}
	return meta, nil
}

func readBorshString(data []byte, offset int) (string, int, error) {
	if offset+4 > len(data) {
		return "", offset, fmt.Errorf("truncated string length prefix")
	}
	n := int(binary.LittleEndian.Uint32(data[offset : offset+4]))
	offset += 4
	if offset+n > len(data) {
		return "", offset, fmt.Errorf("truncated string payload")
	}
	s := trimNullPadding(string(data[offset : offset+n]))
	return s, offset + n, nil
}

func trimNullPadding(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] == 0 {
			return s[:i]
		}
	}
	return s
}
