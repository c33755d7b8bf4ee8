package keys

import (
	"fmt"
	"net/url"
)

// Escape makes an id safe to embed as a single key segment.
func Escape(id string) string {
	return url.QueryEscape(id)
}

// Unescape reverses Escape.
func Unescape(seg string) (string, error) {
	return url.QueryUnescape(seg)
}

func PadSeq(seq uint64) string {
	return fmt.Sprintf("%0*d", SeqPadWidth, seq)
}

func GenConversationKey(id string) string {
	return fmt.Sprintf(ConversationKey, Escape(id))
}

func GenOrderKey(order uint64) string {
	return fmt.Sprintf(OrderKey, fmt.Sprintf("%0*d", OrderPadWidth, order))
}

func GenMessageKey(conversationID string, seq uint64) string {
	return fmt.Sprintf(MessageKey, Escape(conversationID), PadSeq(seq))
}

func GenMessagePrefix(conversationID string) string {
	return fmt.Sprintf(MessagePrefix, Escape(conversationID))
}

func GenMessageIDKey(conversationID, messageID string) string {
	return fmt.Sprintf(MessageIDKey, Escape(conversationID), Escape(messageID))
}

func GenSeqKey(conversationID string) string {
	return fmt.Sprintf(SeqKey, Escape(conversationID))
}

// PrefixUpperBound returns the smallest key greater than every key starting with prefix.
func PrefixUpperBound(prefix string) []byte {
	end := []byte(prefix)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}
