package model

// Token is a resolved mint's metadata, cached by the metadata resolver.
type Token struct {
	RetrievalTimestamp    int64   `json:"retrieval_timestamp"`
	IsNFT                 bool    `json:"is_nft"`
	Token                 string  `json:"token"`
	UpdateAuthority       string  `json:"update_authority"`
	Name                  string  `json:"name"`
	Symbol                string  `json:"symbol"`
	Decimals              uint8   `json:"decimals"`
	Supply                float64 `json:"supply"`
	URI                   string  `json:"uri"`
	SellerFeeBasisPoints  uint16  `json:"seller_fee_basis_points"`
	PrimarySaleHappened   bool    `json:"primary_sale_happened"`
	IsMutable             bool    `json:"is_mutable"`
}
