// Package ir provides the literal value model and canonical encoding shared
// by every selectir package.
//
// This package imports nothing internal. The select IR itself lives in
// queryir; ir only knows about values, canonical JSON and hashing.
//
// Key design constraints:
//   - Values are a sealed set (IRNull, IRString, IRInt, IRFloat, IRBool,
//     IRArray, IRObject)
//   - Canonical JSON sorts object keys by UTF-16 code units and NFC
//     normalizes strings, so fingerprints are stable across platforms
//   - Hashes are domain separated (see hash.go)
package ir
