// Package petition provides the domain types shared by every other package:
// petitions, support tiers, supporters, users, categories and the explicit
// login session.
//
// This package contains type definitions and small pure helpers only. It
// imports nothing internal, so the API client, the reconciler, the store and
// the CLI can all depend on it without cycles.
//
// JSON tags follow the external API's camelCase wire names.
package petition
