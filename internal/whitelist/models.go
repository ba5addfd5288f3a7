// Package whitelist restricts who may submit a form. The approved submitter
// identifiers are stored only as authenticated ciphertexts, so the store
// never holds a queryable plaintext list. Membership is tested by encrypting
// the candidate in comparison mode and looking for an exact ciphertext match.
package whitelist

// Record is one form's encrypted submitter whitelist. PrivateKey is only
// read through FindEncryptionProperties; default reads must exclude it.
type Record struct {
	ID          string   `json:"_id"`
	FormID      string   `json:"formId"`
	PublicKey   string   `json:"publicKey"`
	PrivateKey  string   `json:"privateKey,omitempty"`
	Nonce       string   `json:"nonce"`
	CipherTexts []string `json:"cipherTexts"`
}

// EncryptionProperties is the projection needed to compute a comparable
// candidate ciphertext, and nothing else.
type EncryptionProperties struct {
	PublicKey  string
	PrivateKey string
	Nonce      string
}
