package binary

// Token dictionaries for the compact stanza wire format: a single-byte
// dictionary of the most common tags/attribute names/values, and four
// 256-entry double-byte tables for the longer tail (country/locale codes,
// mime types, catalog/business fields, call/media metadata). Grounded on
// the teacher's flat `tagDictionary` in internal/core/binary.go, split
// into the multi-table scheme spec.md §4.2 requires.

var singleByteTokens = []string{
	"", // index 0 is never a token; LIST_EMPTY/frame-marker owns that byte
	"1", "2", "3", "4", "5", "6", "7", "8",
	"9", "10", "11", "12", "13", "14", "15", "16",
	"17", "18", "19", "20", "21", "22", "23", "24",
	"25", "26", "27", "28", "29", "30", "account", "ack",
	"action", "active", "add", "after", "all", "allow", "and", "android",
	"announce", "archive", "available", "battery", "before", "block", "body", "broadcast",
	"call", "call-creator", "call-id", "cancel", "caption", "chat", "child", "clear",
	"code", "composing", "config", "contact", "contacts", "count", "create", "creator",
	"decrypt", "delete", "demote", "description", "device", "devices", "disappearing", "done",
	"download", "edit", "elapsed", "encoding", "encrypt", "end", "ephemeral", "error",
	"event", "exit", "exposure", "failure", "false", "fan_out", "file", "filename",
	"format", "from", "full", "g.us", "get", "gif", "group", "groups",
	"hash", "height", "host", "id", "image", "in", "inactive", "index",
	"info", "interactive", "invite", "ios", "iq", "is", "item", "items",
	"jid", "keep", "key", "keyvalue", "keys", "kind", "large", "last",
	"leave", "limit", "linked", "list", "live", "location", "locked", "md",
	"media", "media_type", "member", "merry", "message", "messages", "meta", "mime",
	"mirror", "mms", "modify", "msg", "mute", "name", "network", "new",
	"news", "newsletter", "none", "not", "notification", "notify", "number", "of",
	"offline", "opt", "order", "out", "owner", "paid", "pairing", "participant",
	"participants", "paused", "phash", "phone", "photo", "picture", "pin", "pinned",
	"platform", "pn", "preview", "previous", "primary", "private", "promote", "props",
	"protocol", "push", "pushname", "query", "quit", "quote", "rate", "read",
	"reason", "receipt", "received", "recipient", "remove", "removed", "reply", "report",
	"request", "require", "reset", "resource", "result", "retry", "revoke", "s.whatsapp.net",
	"screen", "search", "sec", "secret", "seen", "selected", "self", "sender",
	"serial", "server", "session", "set", "settings", "sf", "shake", "share",
	"short", "side", "sig", "silent",
	// --- WhatsApp well-known top-level / pairing tags (§6.3) ---
	"pair-device", "pair-success", "pair-device-sign", "device-identity", "ref",
	"success", "fail", "stream:error", "ping", "w:p", "biz", "lid", "to", "type",
}

// single-byte control bytes; all but LIST_EMPTY (0x00) and STREAM_END (0x02)
// sit above the single-byte token range.
const (
	tagListEmpty  = 0x00
	tagStreamEnd  = 0x02
	tagDictionary0 = 0xEC
	tagDictionary1 = 0xED
	tagDictionary2 = 0xEE
	tagDictionary3 = 0xEF
	tagADJID      = 0xF7
	tagList8      = 0xF8
	tagList16     = 0xF9
	tagJIDPair    = 0xFA
	tagHex8       = 0xFB
	tagBinary8    = 0xFC
	tagBinary20   = 0xFD
	tagBinary32   = 0xFE
	tagNibble8    = 0xFF
)

var (
	dictionaryControlBytes = [4]byte{tagDictionary0, tagDictionary1, tagDictionary2, tagDictionary3}
)

// doubleByteTables holds the four 256-entry dictionaries. Unassigned slots
// are "" and decode as an unknown-dictionary-index error.
var doubleByteTables [4][256]string

func fill(table *[256]string, entries []string) {
	for i, s := range entries {
		if i >= len(table) {
			break
		}
		table[i] = s
	}
}

func init() {
	fill(&doubleByteTables[0], table0CallMedia)
	fill(&doubleByteTables[1], table1Locale)
	fill(&doubleByteTables[2], table2Mime)
	fill(&doubleByteTables[3], table3Business)
}

var table0CallMedia = []string{
	"audio", "video", "voice_message", "ptt", "sticker", "document", "contact_card",
	"location_message", "live_location", "group_invite", "product", "order",
	"payment", "poll_creation", "poll_vote", "reaction", "ephemeral_setting",
	"call_log", "missed_call", "group_call", "voice_call", "video_call",
	"call_offer", "call_accept", "call_reject", "call_terminate", "call_relay_latency",
	"e2e_notification", "history_sync", "app_state_sync_key_share",
	"app_state_sync_key_request", "notification_token", "identity_change",
	"security_notification", "biz_privacy_mode", "business_profile",
	"catalog_update", "collection_update", "template_message", "list_message",
	"buttons_message", "interactive_response",
}

var table1Locale = []string{
	"en", "en_US", "en_GB", "es", "es_MX", "pt", "pt_BR", "fr", "de", "it",
	"nl", "ru", "tr", "ar", "he", "hi", "id", "ms", "th", "vi", "ko", "ja",
	"zh_CN", "zh_TW", "pl", "uk", "ro", "el", "sv", "fi", "da", "no", "cs",
	"sk", "hu", "bg", "hr", "sr", "sl", "lt", "lv", "et", "fa", "ur", "bn",
	"ta", "te", "ml", "mr", "gu", "kn", "pa", "am", "sw", "zu", "af",
}

var table2Mime = []string{
	"image/jpeg", "image/png", "image/webp", "image/gif", "video/mp4",
	"video/3gpp", "audio/ogg; codecs=opus", "audio/mp4", "audio/aac",
	"application/pdf", "application/vnd.ms-excel", "application/msword",
	"application/zip", "application/octet-stream", "text/plain", "text/vcard",
	"text/calendar", "application/vnd.whatsapp.adv+proto",
	"application/vnd.whatsapp.identity+proto",
}

var table3Business = []string{
	"catalog_id", "product_id", "currency", "price_amount_1000", "retailer_id",
	"availability", "review_status", "verified_name", "vertical", "website",
	"email", "business_hours", "address", "description_text", "cover_photo",
	"is_hidden", "origin_country_code", "facebook_page_id", "commerce_experience",
}
