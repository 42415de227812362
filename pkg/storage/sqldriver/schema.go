package sqldriver

import (
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

// Table and column names.
const (
	conversationTable = "chat_conversation"
	messageTable      = "chat_message"

	colID             = "id"
	colUserID         = "user_id"
	colTitle          = "title"
	colPlatform       = "platform"
	colModel          = "model"
	colSystemMessage  = "system_message"
	colCreateTime     = "create_time"
	colUpdateTime     = "update_time"
	colConversationID = "conversation_id"
	colType           = "type"
	colContent        = "content"
)

// textSize makes ent emit a TEXT column.
const textSize = 2147483647

var (
	conversationColumns = []*schema.Column{
		{Name: colID, Type: field.TypeInt64, Increment: true},
		{Name: colUserID, Type: field.TypeInt64},
		{Name: colTitle, Type: field.TypeString, Size: 255, Default: ""},
		{Name: colPlatform, Type: field.TypeString, Size: 64, Default: ""},
		{Name: colModel, Type: field.TypeString, Size: 128, Default: ""},
		{Name: colSystemMessage, Type: field.TypeString, Size: textSize, Default: ""},
		{Name: colCreateTime, Type: field.TypeTime},
		{Name: colUpdateTime, Type: field.TypeTime},
	}

	// ConversationTable holds one row per chat thread.
	ConversationTable = &schema.Table{
		Name:       conversationTable,
		Columns:    conversationColumns,
		PrimaryKey: []*schema.Column{conversationColumns[0]},
		Indexes: []*schema.Index{
			{
				Name:    "chatconversation_user_id_update_time",
				Columns: []*schema.Column{conversationColumns[1], conversationColumns[7]},
			},
		},
	}

	messageColumns = []*schema.Column{
		{Name: colID, Type: field.TypeInt64, Increment: true},
		{Name: colConversationID, Type: field.TypeInt64},
		{Name: colUserID, Type: field.TypeInt64},
		{Name: colType, Type: field.TypeString, Size: 32},
		{Name: colModel, Type: field.TypeString, Size: 128, Default: ""},
		{Name: colContent, Type: field.TypeString, Size: textSize},
		{Name: colCreateTime, Type: field.TypeTime},
	}

	// MessageTable holds the turns of every conversation.
	MessageTable = &schema.Table{
		Name:       messageTable,
		Columns:    messageColumns,
		PrimaryKey: []*schema.Column{messageColumns[0]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "chat_message_chat_conversation_messages",
				Columns:    []*schema.Column{messageColumns[1]},
				RefColumns: []*schema.Column{conversationColumns[0]},
				OnDelete:   schema.Cascade,
			},
		},
		Indexes: []*schema.Index{
			{
				Name:    "chatmessage_conversation_id_id",
				Columns: []*schema.Column{messageColumns[1], messageColumns[0]},
			},
		},
	}

	// Tables lists every table in creation order.
	Tables = []*schema.Table{ConversationTable, MessageTable}
)

func init() {
	MessageTable.ForeignKeys[0].RefTable = ConversationTable
}
