// Package iam provides the identity and entitlement services of the gateway.
//
// The service owns every rule about accounts:
//
//   - Registration creates pending accounts; only approved or admin
//     accounts may sign in
//   - Approval rotates the account to a temporary password, grants
//     entitlements and emails the password
//   - Entitlements decide which catalog applications a user sees
//   - Password reset issues single-use, time-limited tokens
//   - Sessions are opaque cookie tokens stored as hashes
//
// Request Flow:
//
//	Request → AuthenticateRequest → SessionAuthenticator → Principal
//	       ↓
//	   Handler → Principal.Apps / Principal.IsAdmin
//
// The Principal is rebuilt from the store on every request, so admin
// changes to flags or entitlements apply to the user's next request.
package iam
