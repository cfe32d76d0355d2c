package domain

// LaunchResult is the outcome of a successful launch.
type LaunchResult struct {
	Signature   string `json:"signature"`   // confirmed creation transaction
	Mint        string `json:"mint"`        // base58 address of the new token
	MetadataURI string `json:"metadataUri"` // content URI of the metadata record
}
