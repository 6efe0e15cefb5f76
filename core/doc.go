// Package core defines the domain model for groundwork: tenant-scoped
// documents, chunks, conversations, and messages, along with the validation
// rules and error taxonomy shared by all other packages.
//
// Every entity belongs to exactly one tenant. Storage and retrieval code must
// treat the tenant identifier as part of the primary access path; a query that
// omits it is a correctness bug, not a policy violation.
package core
