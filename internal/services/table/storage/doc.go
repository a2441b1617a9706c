// Package storage holds the table service persistence interfaces and the
// records they exchange. Implementations live in subpackages.
package storage
