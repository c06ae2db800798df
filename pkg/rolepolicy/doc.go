// Package rolepolicy decides how strongly MFA is enforced for a role.
//
// Roles listed as required must have MFA enabled once the account is older
// than the grace period; recommended roles are nudged; every other role is
// optional. The policy comes from a Source (static configuration or a YAML
// file) and can be swapped at runtime with Reload without locking readers.
package rolepolicy
