// SPDX-License-Identifier: MIT
// Copyright (c) 2026 go-dnp3 contributors.

package objects

import "github.com/cespare/xxhash/v2"

// Fingerprint identifies a request fragment's content for duplicate
// detection: (sequence, fingerprint) together let a session recognize a
// retransmitted request and resend its cached response instead of
// re-executing it.
type Fingerprint uint64

// ComputeFingerprint hashes the raw object bytes of a fragment (everything
// after the two-byte application header) with a 64-bit non-cryptographic
// hash. It is not security-sensitive, but a collision between two
// different requests with the same sequence number makes the second look
// like a retransmission, so it is answered as a repeat, not executed.
func ComputeFingerprint(rawObjects []byte) Fingerprint {
	return Fingerprint(xxhash.Sum64(rawObjects))
}

// RequestKey is the full duplicate-detection key for one request fragment.
type RequestKey struct {
	Seq         Sequence
	Fingerprint Fingerprint
}

// Matches reports whether two request fragments are the same request,
// per the (sequence, fingerprint) duplicate-detection rule.
func (k RequestKey) Matches(other RequestKey) bool {
	return k.Seq.Value() == other.Seq.Value() && k.Fingerprint == other.Fingerprint
}
