package keys

import (
	"fmt"
	"strconv"
	"strings"
)

type MessageKeyParts struct {
	ConversationID string
	Seq            uint64
}

func parsePaddedUint(s string, width int) (uint64, error) {
	if len(s) == 0 || len(s) > width {
		return 0, fmt.Errorf("length invalid: %s", s)
	}
	trimmed := strings.TrimLeft(s, "0")
	if trimmed == "" {
		return 0, nil
	}
	return strconv.ParseUint(trimmed, 10, 64)
}

func ParseMessageKey(key string) (*MessageKeyParts, error) {
	parts := strings.Split(key, ":")
	if len(parts) != 3 || parts[0] != "msg" {
		return nil, fmt.Errorf("invalid message key: %q", key)
	}
	id, err := Unescape(parts[1])
	if err != nil {
		return nil, fmt.Errorf("invalid message key %q: %w", key, err)
	}
	seq, err := parsePaddedUint(parts[2], SeqPadWidth)
	if err != nil {
		return nil, fmt.Errorf("invalid message key %q: %w", key, err)
	}
	return &MessageKeyParts{ConversationID: id, Seq: seq}, nil
}
