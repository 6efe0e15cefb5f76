// Package badger implements the storage interfaces on BadgerDB. Records
// are stored as JSON values under typed key prefixes, with every primary
// key carrying the tenant ID so prefix scans are tenant-scoped by
// construction. Similarity search is a brute-force cosine scan over the
// tenant's chunks, which is adequate for the embedded single-node
// deployments this backend targets.
package badger
