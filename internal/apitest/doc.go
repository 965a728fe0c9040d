// Package apitest is an in-memory implementation of the petitions REST API
// for tests.
//
// It enforces the rules the client depends on: token authorization,
// ownership, one to three support tiers per petition with unique titles, and
// no edits or deletes of tiers that already have supporters. Every request
// is recorded, and the smallest and largest tier count each petition reached
// is tracked so tests can check the reconciler never left a petition
// without a tier.
package apitest
