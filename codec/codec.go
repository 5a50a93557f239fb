// Package codec contains the [Codec] interface used to serialize replay records. Implementations
// live in subpackages.
package codec

// Codec encodes and decodes single records.
//
// Implementations are not considered thread-safe and each instance is used by a single collector.
type Codec[Record any] interface {
	// Encode serializes a record. The result is owned by the caller.
	Encode(record Record) ([]byte, error)
	// Decode deserializes a record previously produced by Encode.
	Decode(data []byte) (Record, error)
	// Derive returns a new Codec instance with the same settings.
	//
	// The returned codec maintains its own internal state independent of the original.
	Derive() Codec[Record]
}
