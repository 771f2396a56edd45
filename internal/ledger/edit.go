package ledger

import (
	"github.com/splitledger/splitledger/internal/models"
	"github.com/splitledger/splitledger/internal/money"
)

// EditKind identifies which field of an Edit is in play.
type EditKind string

const (
	EditAddItem           EditKind = "add_item"
	EditRemoveItem        EditKind = "remove_item"
	EditChangeSharedBy    EditKind = "change_shared_by"
	EditSetTax            EditKind = "set_tax"
	EditSetTip            EditKind = "set_tip"
	EditSetDiscount       EditKind = "set_discount"
	EditChangeSplitMethod EditKind = "change_split_method"
	EditAddParticipant    EditKind = "add_participant"
	EditRemoveParticipant EditKind = "remove_participant"
	EditSetDeclaredShare  EditKind = "set_declared_share"
)

// Edit is a single mutation of a bill's definition. Kind selects the
// operation; the remaining fields carry its arguments.
type Edit struct {
	Kind EditKind `json:"kind"`

	// Item is the new line item for add_item.
	Item *models.Item `json:"item,omitempty"`

	// ItemID targets an existing item for remove_item and change_shared_by.
	ItemID string `json:"item_id,omitempty"`

	// SharedBy is the replacement share set for change_shared_by.
	SharedBy []string `json:"shared_by,omitempty"`

	// Amount carries the value for set_tax, set_tip, set_discount and the
	// fixed amount for set_declared_share.
	Amount *money.Money `json:"amount,omitempty"`

	// SplitMethod is the new method for change_split_method.
	SplitMethod models.SplitMethod `json:"split_method,omitempty"`

	// Participant is the person to add for add_participant.
	Participant *models.Participant `json:"participant,omitempty"`

	// ParticipantID targets an existing participant for remove_participant
	// and set_declared_share.
	ParticipantID string `json:"participant_id,omitempty"`

	// PercentBP is the declared percentage (basis points) for
	// set_declared_share.
	PercentBP *int64 `json:"percent_bp,omitempty"`
}
