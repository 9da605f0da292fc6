// Package iam is the authorization domain: User and Group aggregates with
// bitmask permission sets, the commands that drive them, and the service
// handlers wiring them to the message bus.
//
// Permissions are additive bitmasks. A grant that is already held and a
// revoke of a bit that is not held are both no-ops, so permission events
// are idempotent under replay.
//
// Group creation is a cross-aggregate flow: a user triggers
// GroupCreateRequested, which travels through the internal backlog and is
// picked up by the group-creation event handler in its own transaction.
package iam
