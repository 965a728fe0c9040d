// Package app composes the API client, validation, the tier reconciler and
// the local store into the flows a user performs: signing in, browsing,
// creating and editing petitions, supporting them and managing a profile.
//
// Every flow that needs authorization takes the caller's petition.Session
// explicitly. The App only reads or writes the stored session in Login,
// Logout and Register.
package app
