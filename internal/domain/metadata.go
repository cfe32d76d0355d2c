package domain

// TokenMetadata is the descriptive record stored on the metadata gateway.
// Unknown fields in gateway responses are ignored.
type TokenMetadata struct {
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	Description string `json:"description,omitempty"`
	Image       string `json:"image,omitempty"` // gateway URI of the uploaded image
	Twitter     string `json:"twitter,omitempty"`
	Telegram    string `json:"telegram,omitempty"`
	Website     string `json:"website,omitempty"`
}

// MetadataResponse is returned by the metadata gateway after an upload.
// Consumed read-only by the transaction builder.
type MetadataResponse struct {
	Metadata    TokenMetadata `json:"metadata"`
	MetadataURI string        `json:"metadataUri"`
}
