package shared

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Supported locales. Sorani Kurdish is the default UI language.
var (
	LangKurdish = language.Make("ckb")
	LangEnglish = language.English

	supported = []language.Tag{LangKurdish, LangEnglish}
	matcher   = language.NewMatcher(supported)
)

// Message keys. The English text doubles as the key.
const (
	MsgInternal             = "something went wrong, please try again"
	MsgDebtNotFound         = "debt not found"
	MsgPaymentNotFound      = "payment not found"
	MsgCustomerRequired     = "customer is required"
	MsgCustomerNotFound     = "customer not found"
	MsgInvalidAmount        = "amount must be greater than zero"
	MsgRemainingOutOfRange  = "remaining amount must be between zero and the debt amount"
	MsgPaymentExceeds       = "payment of %s exceeds the remaining balance of %s"
	MsgInsufficientHistory  = "at least two payments are needed for a prediction"
	MsgUnsupportedFormat    = "unsupported export format"
	MsgInvalidRequest       = "the request could not be read"
	MsgIdempotencyKey       = "Idempotency-Key must be 1-128 characters"
	MsgStoreCorrupt         = "stored data is damaged and needs attention"
	MsgRecCollectionLow     = "collection rate is low: follow up on outstanding debts"
	MsgRecOverdueHigh       = "many debts are overdue: contact customers with past due balances"
	MsgRecRetentionLow      = "few customers return: consider loyalty incentives"
	MsgRecHealthy           = "finances are healthy: keep current credit policy"
	MsgWarnOverdue          = "customer has overdue debts"
	MsgWarnLimitedHistory   = "limited payment history"
	MsgWarnHighBalance      = "high outstanding balance"
	MsgWarnInfrequent       = "payments are infrequent"
	MsgStrengthHistory      = "consistent payment history"
	MsgStrengthNoOverdue    = "no overdue debts"
	MsgStrengthLongstanding = "long-standing customer"
	MsgStrengthLowBalance   = "low outstanding balance"
)

var kurdish = map[string]string{
	MsgInternal:             "هەڵەیەک ڕوویدا، تکایە دووبارە هەوڵ بدەرەوە",
	MsgDebtNotFound:         "قەرزەکە نەدۆزرایەوە",
	MsgPaymentNotFound:      "پارەدانەکە نەدۆزرایەوە",
	MsgCustomerRequired:     "کڕیار پێویستە",
	MsgCustomerNotFound:     "کڕیارەکە نەدۆزرایەوە",
	MsgInvalidAmount:        "بڕی پارە دەبێت لە سفر زیاتر بێت",
	MsgRemainingOutOfRange:  "قەرزی ماوە دەبێت لە نێوان سفر و بڕی قەرزدا بێت",
	MsgPaymentExceeds:       "پارەدانی %s لە قەرزی ماوەی %s زیاترە",
	MsgInsufficientHistory:  "بۆ پێشبینی لانیکەم دوو پارەدان پێویستە",
	MsgUnsupportedFormat:    "فۆرماتی هەناردن پشتگیری ناکرێت",
	MsgInvalidRequest:       "داواکارییەکە ناخوێندرێتەوە",
	MsgIdempotencyKey:       "Idempotency-Key دەبێت لە ١ بۆ ١٢٨ پیت بێت",
	MsgStoreCorrupt:         "داتا هەڵگیراوەکان تێکچوون و پێویستیان بە چاککردنەوەیە",
	MsgRecCollectionLow:     "ڕێژەی کۆکردنەوە نزمە: بەدواداچوون بۆ قەرزە ماوەکان بکە",
	MsgRecOverdueHigh:       "زۆرێک لە قەرزەکان دواکەوتوون: پەیوەندی بە کڕیارەکانەوە بکە",
	MsgRecRetentionLow:      "کەم کڕیار دەگەڕێنەوە: بیر لە هاندانی دڵسۆزی بکەرەوە",
	MsgRecHealthy:           "دۆخی دارایی باشە: سیاسەتی قەرزی ئێستا بپارێزە",
	MsgWarnOverdue:          "کڕیار قەرزی دواکەوتووی هەیە",
	MsgWarnLimitedHistory:   "مێژووی پارەدان کەمە",
	MsgWarnHighBalance:      "قەرزی ماوە زۆرە",
	MsgWarnInfrequent:       "پارەدانەکان دەگمەنن",
	MsgStrengthHistory:      "مێژووی پارەدانی ڕێکوپێک",
	MsgStrengthNoOverdue:    "هیچ قەرزێکی دواکەوتوو نییە",
	MsgStrengthLongstanding: "کڕیاری کۆن",
	MsgStrengthLowBalance:   "قەرزی ماوە کەمە",
}

func init() {
	for key, text := range kurdish {
		_ = message.SetString(LangKurdish, key, text)
		_ = message.SetString(LangEnglish, key, key)
	}
}

// Translate formats key in tag. Unknown keys are returned as formatted English.
func Translate(tag language.Tag, key string, args ...any) string {
	return message.NewPrinter(tag).Sprintf(key, args...)
}

// MatchLanguage picks a supported locale from an Accept-Language header.
func MatchLanguage(acceptLanguage string, fallback language.Tag) language.Tag {
	if acceptLanguage == "" {
		return fallback
	}
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return fallback
	}
	_, idx, conf := matcher.Match(tags...)
	if conf == language.No {
		return fallback
	}
	return supported[idx]
}

// ParseLocale resolves a configured locale name, defaulting to Kurdish.
func ParseLocale(name string) language.Tag {
	tag, err := language.Parse(name)
	if err != nil {
		return LangKurdish
	}
	_, idx, conf := matcher.Match(tag)
	if conf == language.No {
		return LangKurdish
	}
	return supported[idx]
}
