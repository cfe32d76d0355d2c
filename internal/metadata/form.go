package metadata

import "pump-launcher/internal/domain"

type formField struct {
	name  string
	value string
}

// buildFields returns the upload fields in the order the gateway receives
// them. showName is always sent; social links only when present.
func buildFields(name, symbol, description string, opts *domain.LaunchOptions) []formField {
	fields := []formField{
		{"name", name},
		{"symbol", symbol},
		{"description", description},
		{"showName", "true"},
	}

	twitter, telegram, website := opts.Social()
	for _, f := range []formField{
		{"twitter", twitter},
		{"telegram", telegram},
		{"website", website},
	} {
		if f.value != "" {
			fields = append(fields, f)
		}
	}
	return fields
}
