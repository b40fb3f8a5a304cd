package models

// ModelRef is a row of /LLMRef or /EmbLLMRef: a vendor (Type) and one of its models (Name).
type ModelRef struct {
	ID   int64  `json:"id,omitempty"`
	Type string `json:"type"`
	Name string `json:"name"`
}

// VendorModels groups model names by vendor, keeping first-seen vendor order.
type VendorModels struct {
	Vendors []string            `json:"vendors"`
	Models  map[string][]string `json:"models"`
}

func GroupByVendor(refs []ModelRef) VendorModels {
	out := VendorModels{Vendors: []string{}, Models: map[string][]string{}}
	for _, r := range refs {
		if _, ok := out.Models[r.Type]; !ok {
			out.Vendors = append(out.Vendors, r.Type)
		}
		out.Models[r.Type] = append(out.Models[r.Type], r.Name)
	}
	return out
}

// Has reports whether model belongs to vendor.
func (v VendorModels) Has(vendor, model string) bool {
	for _, m := range v.Models[vendor] {
		if m == model {
			return true
		}
	}
	return false
}
