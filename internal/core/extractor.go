package core

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	accountPattern = regexp.MustCompile(`\b\d{9,18}\b`)
	handlePattern  = regexp.MustCompile(`[\w.\-]+@([A-Za-z][A-Za-z0-9]*)`)
	phonePattern   = regexp.MustCompile(`(?:\+91[\s\-]?|\b91[\s\-]?|\b0?)[6-9]\d{9}\b`)
	emailPattern   = regexp.MustCompile(`\b[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}\b`)
	linkPattern    = regexp.MustCompile(`https?://\S+`)
)

// minAccountDigits tightens the account pattern's lower bound
const minAccountDigits = 10

// paymentProviders is the allow-list of UPI handle suffixes
var paymentProviders = map[string]struct{}{
	"paytm": {}, "ptyes": {}, "ptaxis": {}, "pthdfc": {}, "ptsbi": {},
	"ybl": {}, "ibl": {}, "axl": {},
	"okaxis": {}, "oksbi": {}, "okhdfcbank": {}, "okicici": {},
	"upi": {}, "apl": {}, "yapl": {}, "abfspay": {}, "freecharge": {},
	"axisbank": {}, "axisb": {}, "hdfcbank": {}, "icici": {}, "sbi": {},
	"kotak": {}, "kmbl": {}, "yesbank": {}, "pnb": {}, "boi": {},
	"barodampay": {}, "unionbank": {}, "idfcbank": {}, "indus": {},
	"federal": {}, "rbl": {}, "airtel": {}, "jio": {}, "ikwik": {},
	"waicici": {}, "wahdfcbank": {}, "waaxis": {}, "wasbi": {},
	"postbank": {}, "dbs": {}, "hsbc": {}, "citi": {},
}

// ExtractIntelligence scans text, followed by any prior texts, for
// intelligence indicators. The result always holds every category.
func ExtractIntelligence(text string, priorTexts ...string) IntelligenceBundle {
	all := text
	if len(priorTexts) > 0 {
		all = text + " " + strings.Join(priorTexts, " ")
	}
	all = normalizeText(all)

	b := NewIntelligenceBundle()
	if strings.TrimSpace(all) == "" {
		return b
	}

	for _, h := range findPaymentHandles(all) {
		b.Add(CategoryPaymentHandles, h)
	}
	for _, m := range emailPattern.FindAllString(all, -1) {
		if b.Has(CategoryPaymentHandles, strings.ToLower(m)) {
			continue
		}
		b.Add(CategoryEmails, m)
	}
	for _, m := range phonePattern.FindAllString(all, -1) {
		b.Add(CategoryPhoneNumbers, normalizePhone(m))
	}
	for _, m := range accountPattern.FindAllString(all, -1) {
		if len(m) < minAccountDigits || isPhoneDigits(m) {
			continue
		}
		b.Add(CategoryBankAccounts, m)
	}
	for _, m := range linkPattern.FindAllString(all, -1) {
		b.Add(CategoryPhishingLinks, m)
	}
	return b
}

// normalizeText drops invalid UTF-8 and folds compatibility characters so
// that full-width digits and symbols match the ASCII patterns.
func normalizeText(s string) string {
	return norm.NFKC.String(strings.ToValidUTF8(s, ""))
}

func findPaymentHandles(s string) []string {
	var out []string
	for _, loc := range handlePattern.FindAllStringSubmatchIndex(s, -1) {
		end := loc[1]
		if end < len(s) && continuesDomain(s[end:]) {
			continue
		}
		provider := strings.ToLower(s[loc[2]:loc[3]])
		if _, ok := paymentProviders[provider]; !ok {
			continue
		}
		out = append(out, strings.ToLower(s[loc[0]:end]))
	}
	return out
}

// continuesDomain reports whether rest extends the matched provider into a
// longer host name, such as ".com" or "-bank".
func continuesDomain(rest string) bool {
	switch rest[0] {
	case '-', '_':
		return true
	case '.':
		return len(rest) > 1 && isAlnum(rest[1])
	}
	return false
}

func isAlnum(c byte) bool {
	return c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

// normalizePhone reduces a matched phone number to its 10-digit
// subscriber number, dropping country code, trunk prefix and separators.
func normalizePhone(m string) string {
	digits := make([]byte, 0, len(m))
	for i := 0; i < len(m); i++ {
		if m[i] >= '0' && m[i] <= '9' {
			digits = append(digits, m[i])
		}
	}
	return string(digits[len(digits)-10:])
}

// isPhoneDigits reports whether a digit run is a mobile number, bare or with
// a trunk or country prefix.
func isPhoneDigits(d string) bool {
	mobile := func(s string) bool { return len(s) == 10 && s[0] >= '6' && s[0] <= '9' }
	switch {
	case len(d) == 10:
		return mobile(d)
	case len(d) == 11 && d[0] == '0':
		return mobile(d[1:])
	case len(d) == 12 && strings.HasPrefix(d, "91"):
		return mobile(d[2:])
	}
	return false
}
