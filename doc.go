// Package kvault implements a local, persistent key-value cache. Each value
// is stored as one record: an entry header (kind, save time, validity window,
// permanence) framed together with the payload. The payload is transformed by
// a configurable cipher chain before it reaches storage.
//
// Components:
//   - Provider: byte store the records live in (filesystem, SQLite, bigcache,
//     optionally fronted by a ristretto hot tier).
//   - cipher.Chain: ordered encoding/encryption stages applied to payloads.
//   - codec.Codec: serializes object values.
//   - Registry: one live Store per (root, name) identifier.
//
// Expiry is lazy: a due entry is removed by the read that finds it, or by
// Sweep (optionally on a ticker via Options.SweepInterval).
//
// Usage:
//
//	reg := kvault.NewRegistry(factory)
//	s, _ := reg.Resolve(ctx, kvault.NewIdentifier("/var/cache/app", "session"))
//	_ = s.Put(ctx, "token", kvault.String("abc"), 60)
//	tok, ok, err := s.GetString(ctx, "token")
package kvault
