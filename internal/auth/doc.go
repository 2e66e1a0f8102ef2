// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cardsmith Contributors

// Package auth logs in to the package registry for a publish.
//
// # Retry Budget
//
// Authenticator.Authenticate performs at most maxRetries+1 logins. Failures
// are not classified at this layer: any login error is retried until the
// budget is spent. Between attempts the user is asked for a replacement
// one-time code; username, password, and email are reused.
//
// Every attempt goes through the credential store, which rewrites the
// project-scoped credential file before the login and fills in the token
// after it.
package auth
