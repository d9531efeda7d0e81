package relay

import "github.com/minagishl/nostro/internal/types"

// filterToWire converts a Filter into the NIP-01 REQ filter object. Empty
// fields are omitted entirely so relays do not interpret them as "match
// nothing".
func filterToWire(f types.Filter) map[string]interface{} {
	wire := map[string]interface{}{}

	if len(f.IDs) > 0 {
		wire["ids"] = f.IDs
	}
	if len(f.Authors) > 0 {
		wire["authors"] = f.Authors
	}
	if len(f.Kinds) > 0 {
		wire["kinds"] = f.Kinds
	}
	if len(f.PTags) > 0 {
		wire["#p"] = f.PTags
	}
	if len(f.ETags) > 0 {
		wire["#e"] = f.ETags
	}
	if f.Since != nil {
		wire["since"] = *f.Since
	}
	if f.Until != nil {
		wire["until"] = *f.Until
	}
	if f.Search != "" {
		wire["search"] = f.Search
	}
	if f.Limit > 0 {
		wire["limit"] = f.Limit
	}

	return wire
}
