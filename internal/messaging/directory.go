// internal/messaging/directory.go

package messaging

import (
    "strings"
)

// DirectConversationID derives the canonical ID for a direct
// conversation between two users. The pair is sorted so both orderings
// map to the same conversation.
func DirectConversationID(userA, userB string) string {
    if userA > userB {
        userA, userB = userB, userA
    }
    return userA + "_" + userB
}

// SplitDirectConversationID recovers the sorted participant pair from
// a direct conversation ID. Returns false when the ID is not a direct
// conversation ID.
func SplitDirectConversationID(conversationID string) (string, string, bool) {
    parts := strings.SplitN(conversationID, "_", 2)
    if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
        return "", "", false
    }
    return parts[0], parts[1], true
}
