// Package models defines the core domain models for the split engine.
//
// # Models
//
//   - Bill: a shared expense with items, participants and a payment ledger
//   - Item: a line item on a bill, shared by one or more participants
//   - Participant: one person's declared share and computed owed/paid state
//   - PaymentEvent: an append-only record of money a participant paid
//   - Group: a recurring set of members whose bills are aggregated together
//   - User: a registered account (authentication)
//
// # Design Principles
//
//  1. All monetary fields use money.Money (integer minor units); totals are
//     always recomputed from their inputs, never stored independently.
//  2. Bills carry a monotonic Version for optimistic concurrency; every
//     accepted mutation increments it.
//  3. PaymentEvents are append-only. Corrections are new negative-amount
//     events, never edits or deletions.
//  4. Relationships use ID strings instead of pointers to avoid circular
//     references.
package models
