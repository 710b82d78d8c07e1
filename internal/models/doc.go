// Package models defines the persisted domain records of the ledger.
//
// # Records
//
//   - Group: a named roster of members that share expenses
//   - Member: an opaque id plus display name, owned by a group
//   - Expense: an amount paid by one member and split equally among participants
//   - SettlementPayment: a real-world transfer between two members, recorded
//     to reduce what one owes the other
//
// Balances and settlement suggestions are never stored. They are derived from
// the full record history by the calculator package on every read.
//
// # Design Principles
//
//  1. Money is decimal.Decimal end to end, never float64
//  2. Records reference members and groups by id strings, not pointers
//  3. Expenses and payments are append-only; they disappear only when their
//     group is deleted
package models
