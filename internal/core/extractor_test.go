package core

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractIntelligence_Categories(t *testing.T) {
	text := "Pay to scammer@paytm or transfer to account 123456789012. " +
		"Call +91-9876543210 or mail support@fakebank.com. " +
		"Verify at https://fake-bank.example/login now"

	b := ExtractIntelligence(text)

	assert.Equal(t, []string{"scammer@paytm"}, b[CategoryPaymentHandles])
	assert.Equal(t, []string{"123456789012"}, b[CategoryBankAccounts])
	assert.Equal(t, []string{"9876543210"}, b[CategoryPhoneNumbers])
	assert.Equal(t, []string{"support@fakebank.com"}, b[CategoryEmails])
	assert.Equal(t, []string{"https://fake-bank.example/login"}, b[CategoryPhishingLinks])
}

func TestExtractIntelligence_EmptyInput(t *testing.T) {
	b := ExtractIntelligence("")
	require.Len(t, b, len(Categories))
	for _, c := range Categories {
		assert.NotNil(t, b[c], "category %s should be present", c)
		assert.Empty(t, b[c])
	}
}

func TestExtractIntelligence_InvalidUTF8(t *testing.T) {
	b := ExtractIntelligence("pay \xff\xfe to fraud@ybl")
	assert.Equal(t, []string{"fraud@ybl"}, b[CategoryPaymentHandles])
}

func TestExtractIntelligence_FullWidthDigits(t *testing.T) {
	b := ExtractIntelligence("call ９８７６５４３２１０ today")
	assert.Equal(t, []string{"9876543210"}, b[CategoryPhoneNumbers])
}

func TestExtractIntelligence_AccountLength(t *testing.T) {
	b := ExtractIntelligence("ref 123456789 and acct 1234567890123")
	assert.Equal(t, []string{"1234567890123"}, b[CategoryBankAccounts], "9 digit runs are discarded")
}

func TestExtractIntelligence_PhoneNotAccount(t *testing.T) {
	b := ExtractIntelligence("reach me on 9876543210 or 09123456789")
	assert.Empty(t, b[CategoryBankAccounts])
	assert.ElementsMatch(t, []string{"9876543210", "9123456789"}, b[CategoryPhoneNumbers])
}

func TestExtractIntelligence_BareCountryCode(t *testing.T) {
	for _, text := range []string{"send to 919876543210 now", "call 91 9876543210"} {
		b := ExtractIntelligence(text)
		assert.Equal(t, []string{"9876543210"}, b[CategoryPhoneNumbers], text)
		assert.Empty(t, b[CategoryBankAccounts], text)
	}

	b := ExtractIntelligence("account 918765432109 ifsc")
	assert.Equal(t, []string{"8765432109"}, b[CategoryPhoneNumbers])
	assert.Equal(t, 1, b.Count())
}

func TestExtractIntelligence_PhoneFormsDeduplicated(t *testing.T) {
	b := ExtractIntelligence("call +91-9876543210, +91 9876543210, 09876543210 or 9876543210")
	assert.Equal(t, []string{"9876543210"}, b[CategoryPhoneNumbers])
	assert.Equal(t, 1, b.Count())
}

func TestExtractIntelligence_HandleVersusEmail(t *testing.T) {
	b := ExtractIntelligence("use pay.me@okaxis or write to help@paytm.com or x@gmail")

	assert.Equal(t, []string{"pay.me@okaxis"}, b[CategoryPaymentHandles])
	assert.Equal(t, []string{"help@paytm.com"}, b[CategoryEmails])
	for _, e := range b[CategoryEmails] {
		assert.NotContains(t, b[CategoryPaymentHandles], e)
	}
}

func TestExtractIntelligence_PriorTexts(t *testing.T) {
	b := ExtractIntelligence("send it now", "my upi is cash@ibl", "visit http://claim.example")
	assert.Equal(t, []string{"cash@ibl"}, b[CategoryPaymentHandles])
	assert.Equal(t, []string{"http://claim.example"}, b[CategoryPhishingLinks])
}

func TestExtractIntelligence_CapAndDedup(t *testing.T) {
	var parts []string
	for i := 0; i < 15; i++ {
		parts = append(parts, fmt.Sprintf("https://site%d.example", i))
	}
	parts = append(parts, "https://site0.example")

	b := ExtractIntelligence(strings.Join(parts, " "))
	assert.Len(t, b[CategoryPhishingLinks], MaxItemsPerCategory)
	assert.Equal(t, "https://site0.example", b[CategoryPhishingLinks][0])
}

func TestExtractIntelligence_Idempotent(t *testing.T) {
	texts := []string{
		"Congratulations! You won ₹50,000. Send ₹500 to scammer@paytm to claim your prize!",
		"acct 1234567890123 ifsc SBIN0001234, call 9876543210, https://x.example/a?b=c",
		"",
	}
	for _, text := range texts {
		assert.Equal(t, ExtractIntelligence(text), ExtractIntelligence(text))
	}
}

func TestExtractIntelligence_MonotoneUnderConcatenation(t *testing.T) {
	pairs := [][2]string{
		{"pay scammer@paytm", "or call 9876543210"},
		{"acct 123456789012", "https://evil.example"},
		{"mail a@b.co", "and b@ybl"},
		{"https://one.example https://two.example", "https://three.example"},
	}
	for _, p := range pairs {
		first := ExtractIntelligence(p[0])
		joined := ExtractIntelligence(p[0] + " " + p[1])
		for _, c := range Categories {
			assert.Subset(t, joined[c], first[c], "category %s for %q", c, p[0])
		}
	}
}

func TestIntelligenceBundle_MergeRespectsCap(t *testing.T) {
	b := NewIntelligenceBundle()
	other := NewIntelligenceBundle()
	for i := 0; i < 12; i++ {
		other[CategoryEmails] = append(other[CategoryEmails], fmt.Sprintf("u%d@x.com", i))
	}
	b.Merge(other)
	b.Merge(other)

	assert.Len(t, b[CategoryEmails], MaxItemsPerCategory)
	assert.Equal(t, MaxItemsPerCategory, b.Count())
}

func TestIntelligenceBundle_Sufficient(t *testing.T) {
	b := NewIntelligenceBundle()
	assert.False(t, b.Sufficient())

	b.Add(CategoryPhoneNumbers, "9876543210")
	b.Add(CategoryEmails, "a@b.com")
	assert.False(t, b.Sufficient(), "phones and emails are not high value")

	b.Add(CategoryPhishingLinks, "https://x.example")
	assert.True(t, b.Sufficient())
}
