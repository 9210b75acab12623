// Package types defines the attribute matrix, the dataset Store interface,
// game session shapes, and the standard error values shared by every
// twentyq component.
package types
