// Package cache holds the in-process caches used by the inventory service:
// a modification tracker that decides whether a database file needs
// re-scanning, and a read-through metadata cache over the service store
// with a separate TTL per entity kind.
package cache
