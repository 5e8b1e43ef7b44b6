package core

// Category names an intelligence category
type Category string

const (
	CategoryBankAccounts   Category = "bank_accounts"
	CategoryPaymentHandles Category = "payment_handles"
	CategoryPhoneNumbers   Category = "phone_numbers"
	CategoryEmails         Category = "emails"
	CategoryPhishingLinks  Category = "phishing_links"
)

// MaxItemsPerCategory caps how many values a bundle retains per category
const MaxItemsPerCategory = 10

// Categories lists every category in a stable order
var Categories = []Category{
	CategoryBankAccounts,
	CategoryPaymentHandles,
	CategoryPhoneNumbers,
	CategoryEmails,
	CategoryPhishingLinks,
}

// highValueCategories are the ones whose capture ends an engagement
var highValueCategories = []Category{
	CategoryBankAccounts,
	CategoryPaymentHandles,
	CategoryPhishingLinks,
}

// IntelligenceBundle maps a category to its deduplicated values.
// Values keep first-seen order.
type IntelligenceBundle map[Category][]string

// NewIntelligenceBundle returns a bundle with every category present and empty
func NewIntelligenceBundle() IntelligenceBundle {
	b := make(IntelligenceBundle, len(Categories))
	for _, c := range Categories {
		b[c] = []string{}
	}
	return b
}

// Add records value under c. It reports whether the value was new and retained.
func (b IntelligenceBundle) Add(c Category, value string) bool {
	if value == "" {
		return false
	}
	existing := b[c]
	if len(existing) >= MaxItemsPerCategory {
		return false
	}
	for _, v := range existing {
		if v == value {
			return false
		}
	}
	b[c] = append(existing, value)
	return true
}

// Has reports whether value is recorded under c
func (b IntelligenceBundle) Has(c Category, value string) bool {
	for _, v := range b[c] {
		if v == value {
			return true
		}
	}
	return false
}

// Merge adds every value of other into b, respecting the per-category cap
func (b IntelligenceBundle) Merge(other IntelligenceBundle) {
	for _, c := range Categories {
		if _, ok := b[c]; !ok {
			b[c] = []string{}
		}
		for _, v := range other[c] {
			b.Add(c, v)
		}
	}
}

// Count returns the total number of values across all categories
func (b IntelligenceBundle) Count() int {
	n := 0
	for _, c := range Categories {
		n += len(b[c])
	}
	return n
}

// Sufficient reports whether any high-value category holds at least one item
func (b IntelligenceBundle) Sufficient() bool {
	for _, c := range highValueCategories {
		if len(b[c]) > 0 {
			return true
		}
	}
	return false
}

// Clone returns a deep copy with every category present
func (b IntelligenceBundle) Clone() IntelligenceBundle {
	c := NewIntelligenceBundle()
	for _, cat := range Categories {
		c[cat] = append(c[cat], b[cat]...)
	}
	return c
}
