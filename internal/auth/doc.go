// Package auth authenticates the box operator.
//
// The box has one operator account configured in security.operator. Its
// password is stored as an Argon2id PHC string; a successful login yields a
// short-lived HS256 access token that the API checks on every command.
// There are no refresh tokens: the operator logs in again when the token
// expires.
package auth
