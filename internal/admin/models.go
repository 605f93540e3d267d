// internal/admin/models.go

package admin

import (
    "encoding/json"
    "time"
)

// Feature flags gating optional behavior app-wide
const (
    FlagGroupChat        = "enable_group_chat"
    FlagFileSharing      = "enable_file_sharing"
    FlagVoiceMessages    = "enable_voice_messages"
    FlagMessageReactions = "enable_message_reactions"
    FlagMessageDeletion  = "enable_message_deletion"
)

// Audit actions
const (
    ActionToggleFeature     = "toggle_feature"
    ActionToggleMaintenance = "toggle_maintenance"
    ActionSetMemberLimit    = "set_member_limit"
    ActionSuspendUser       = "suspend_user"
    ActionReinstateUser     = "reinstate_user"
    ActionVerifyUser        = "verify_user"
    ActionRemoveUser        = "remove_user"
    ActionDisableGroup      = "disable_group"
    ActionDeleteGroup       = "delete_group"
    ActionAddAdmin          = "add_admin"
    ActionApproveRequest    = "approve_chat_request"
    ActionRejectRequest     = "reject_chat_request"
)

// Settings is the process-wide policy singleton. Version increments on
// every mutation so readers can detect staleness; nobody caches a copy
// across a mutation boundary - reads go through the service accessor.
type Settings struct {
    Version          int64     `json:"version" db:"version"`
    MaintenanceMode  bool      `json:"maintenance_mode" db:"maintenance_mode"`
    GroupMemberLimit int       `json:"group_member_limit" db:"group_member_limit"`
    GroupChat        bool      `json:"enable_group_chat" db:"enable_group_chat"`
    FileSharing      bool      `json:"enable_file_sharing" db:"enable_file_sharing"`
    VoiceMessages    bool      `json:"enable_voice_messages" db:"enable_voice_messages"`
    MessageReactions bool      `json:"enable_message_reactions" db:"enable_message_reactions"`
    MessageDeletion  bool      `json:"enable_message_deletion" db:"enable_message_deletion"`
    UpdatedAt        time.Time `json:"updated_at" db:"updated_at"`
}

// FeatureEnabled resolves a flag by name
func (s *Settings) FeatureEnabled(flag string) bool {
    switch flag {
    case FlagGroupChat:
        return s.GroupChat
    case FlagFileSharing:
        return s.FileSharing
    case FlagVoiceMessages:
        return s.VoiceMessages
    case FlagMessageReactions:
        return s.MessageReactions
    case FlagMessageDeletion:
        return s.MessageDeletion
    default:
        return false
    }
}

// AuditLogEntry is one append-only record of an administrative action.
// Entries are never mutated or deleted.
type AuditLogEntry struct {
    ID        int64           `json:"id" db:"id"`
    Action    string          `json:"action" db:"action"`
    ActorID   string          `json:"actor_id" db:"actor_id"`
    TargetID  string          `json:"target_id" db:"target_id"`
    Metadata  json.RawMessage `json:"metadata,omitempty" db:"metadata"`
    CreatedAt time.Time       `json:"created_at" db:"created_at"`
}
