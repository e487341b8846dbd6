// Package ratelimit provides fixed-window request limiting per caller identity
// and endpoint class, with an in-memory store swept in the background and a
// Redis store for deployments running more than one instance.
//
// Windows are fixed, not sliding: a burst straddling a window boundary can admit
// up to twice the nominal rate over two windows.
package ratelimit
