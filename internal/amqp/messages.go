package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// Entity names carried in change messages.
const (
	EntityShop        = "shop"
	EntityCategory    = "category"
	EntityProducer    = "producer"
	EntityProduct     = "product"
	EntityVariant     = "variant"
	EntityItem        = "item"
	EntityTransaction = "transaction"
)

type Action string

const (
	ActionInsert Action = "insert"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionMerge  Action = "merge"
)

// ChangeMessage announces a committed write. It carries ids only; consumers
// read the current state from the database.
type ChangeMessage struct {
	Entity    string    `json:"entity"`
	Action    Action    `json:"action"`
	ID        int64     `json:"id"`
	TargetID  int64     `json:"target_id,omitempty"` // merges only
	// FromID is the transaction an updated item was moved out of.
	FromID    int64     `json:"from_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewChangeMessage(entity string, action Action, id int64) *ChangeMessage {
	return &ChangeMessage{
		Entity:    entity,
		Action:    action,
		ID:        id,
		Timestamp: time.Now(),
	}
}

// NewMergeMessage announces that source was merged into target.
func NewMergeMessage(entity string, sourceID, targetID int64) *ChangeMessage {
	msg := NewChangeMessage(entity, ActionMerge, sourceID)
	msg.TargetID = targetID
	return msg
}

// NewItemMoveMessage announces an item update that moved the item out of
// transaction from.
func NewItemMoveMessage(itemID, from int64) *ChangeMessage {
	msg := NewChangeMessage(EntityItem, ActionUpdate, itemID)
	msg.FromID = from
	return msg
}

// RoutingKey is "<entity>.<action>".
func (m *ChangeMessage) RoutingKey() string {
	return fmt.Sprintf("%s.%s", m.Entity, m.Action)
}

func (m *ChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ChangeMessageFromJSON(data []byte) (*ChangeMessage, error) {
	var msg ChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Entity == "" || msg.Action == "" {
		return nil, fmt.Errorf("change message without entity or action")
	}
	return &msg, nil
}
