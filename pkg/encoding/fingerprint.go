package encoding

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// Fingerprint is a deterministic 128-bit content hash of a Schema's ordered
// fields, used to deduplicate schemas and stamp every encoded row
// (the design notes, "Schema"; the design notes, "Fingerprint algorithm").
type Fingerprint [16]byte

// ComputeFingerprint feeds, in order, each field's type tag byte, its
// constraint tag and parameters, and its name bytes into two independent
// xxhash digests (seeded from disjoint discriminator prefixes) and
// concatenates them into a 128-bit value. xxhash is non-cryptographic but
// deterministic across platforms and does not depend on any process-wide
// seed, satisfying "endian-independent... not depend on any process-wide
// seed" (the design notes).
func ComputeFingerprint(fields []FieldSpec) Fingerprint {
	canonical := canonicalBytes(fields)

	lo := xxhash.New()
	lo.Write([]byte{0x00})
	lo.Write(canonical)

	hi := xxhash.New()
	hi.Write([]byte{0xff})
	hi.Write(canonical)

	var fp Fingerprint
	binary.BigEndian.PutUint64(fp[0:8], lo.Sum64())
	binary.BigEndian.PutUint64(fp[8:16], hi.Sum64())
	return fp
}

func canonicalBytes(fields []FieldSpec) []byte {
	buf := make([]byte, 0, 32*len(fields))
	for _, f := range fields {
		buf = append(buf, byte(f.Kind))
		buf = append(buf, byte(f.Constraint.Tag))
		switch f.Constraint.Tag {
		case 1: // ConstraintMaxBytes
			var b [4]byte
			binary.LittleEndian.PutUint32(b[:], f.Constraint.MaxBytes)
			buf = append(buf, b[:]...)
		case 2: // ConstraintPrecisionScale
			buf = append(buf, f.Constraint.Precision, f.Constraint.Scale)
		}
		buf = append(buf, byte(len(f.Name)))
		buf = append(buf, f.Name...)
	}
	return buf
}
