// Package session mirrors live push connections into Redis so operators and
// sibling services can see which handles exist and which user they carry.
// The mirror is advisory: the in-process presence registry stays
// authoritative.
package session
