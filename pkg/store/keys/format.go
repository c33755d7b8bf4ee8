package keys

const (
	// notation dictionary for key formats:
	// conv = conversation record
	// ord  = conversation insertion order
	// msg  = message record
	// mid  = message id -> sequence index
	// seq  = last message sequence of a conversation
	// All segments are separated by ":"; <...> segments are query-escaped
	// so ids containing ":" cannot bleed into neighbouring segments.

	ConversationKey = "conv:%s"   // conv:<conversation_id>
	OrderKey        = "ord:%s"    // ord:<padded order>
	MessageKey      = "msg:%s:%s" // msg:<conversation_id>:<padded seq>
	MessagePrefix   = "msg:%s:"   // msg:<conversation_id>:
	MessageIDKey    = "mid:%s:%s" // mid:<conversation_id>:<message_id>
	SeqKey          = "seq:%s"    // seq:<conversation_id>

	OrderPrefix = "ord:"

	// system keys
	SystemOrderCounter = "system:conv_order"

	// padding widths (fixed for lexicographic ordering)
	SeqPadWidth   = 20
	OrderPadWidth = 20
)
