package dispatch

import (
	"bytes"
	"crypto/md5" //nolint:gosec // not a security use: this is the KPL wire format's own checksum algorithm
	"fmt"
)

// kplMagic is the 4-byte header the Kinesis Producer Library prepends to
// an aggregated record (https://github.com/awslabs/amazon-kinesis-producer,
// AggregatedRecordFormat).
var kplMagic = []byte{0xF3, 0x89, 0x9A, 0xC2}

const kplChecksumLen = 16

// deaggregateKPL splits one Kinesis record's bytes into its constituent
// user records. If data doesn't carry the KPL magic header, it is
// returned unchanged as the sole user record — KPL aggregation is a
// producer-side optimization, not a guarantee every record uses it.
//
// The aggregated body is itself a small protobuf message (one
// AggregatedRecord, each containing repeated Record sub-messages); rather
// than pull in a full protobuf runtime for three integer/bytes fields,
// this walks the wire format directly (varint tag/length framing,
// length-delimited field extraction).
func deaggregateKPL(data []byte) ([][]byte, error) {
	if len(data) < len(kplMagic)+kplChecksumLen || !bytes.Equal(data[:len(kplMagic)], kplMagic) {
		return [][]byte{data}, nil
	}

	body := data[len(kplMagic) : len(data)-kplChecksumLen]
	trailer := data[len(data)-kplChecksumLen:]
	if sum := md5.Sum(body); !bytes.Equal(sum[:], trailer) { //nolint:gosec
		return nil, fmt.Errorf("dispatch: kpl: checksum mismatch on aggregated record")
	}

	records, err := protobufLengthDelimitedFields(body, aggregatedRecordRecordsField)
	if err != nil {
		return nil, fmt.Errorf("dispatch: kpl: parse aggregated record: %w", err)
	}

	out := make([][]byte, 0, len(records))
	for _, rec := range records {
		recordData, err := protobufLengthDelimitedFields(rec, kplRecordDataField)
		if err != nil {
			return nil, fmt.Errorf("dispatch: kpl: parse user record: %w", err)
		}
		if len(recordData) == 0 {
			continue
		}
		out = append(out, recordData[0])
	}
	return out, nil
}

// Field numbers from the KPL AggregatedRecord protobuf schema.
const (
	aggregatedRecordRecordsField = 3 // AggregatedRecord.records, repeated Record
	kplRecordDataField           = 3 // Record.data, bytes
)

const (
	protobufWireVarint          = 0
	protobufWire64Bit           = 1
	protobufWireLengthDelimited = 2
	protobufWire32Bit           = 5
)

// protobufLengthDelimitedFields returns every length-delimited (wire type
// 2) occurrence of fieldNum at the top level of a protobuf message,
// skipping over every other field by its own wire-type rules.
func protobufLengthDelimitedFields(msg []byte, fieldNum int) ([][]byte, error) {
	var out [][]byte
	pos := 0
	for pos < len(msg) {
		tag, n, err := readVarint(msg[pos:])
		if err != nil {
			return nil, err
		}
		pos += n
		field := int(tag >> 3)
		wireType := int(tag & 0x7)

		switch wireType {
		case protobufWireVarint:
			_, n, err := readVarint(msg[pos:])
			if err != nil {
				return nil, err
			}
			pos += n

		case protobufWire64Bit:
			if pos+8 > len(msg) {
				return nil, fmt.Errorf("truncated 64-bit field")
			}
			pos += 8

		case protobufWireLengthDelimited:
			length, n, err := readVarint(msg[pos:])
			if err != nil {
				return nil, err
			}
			pos += n
			if pos+int(length) > len(msg) {
				return nil, fmt.Errorf("truncated length-delimited field")
			}
			if field == fieldNum {
				out = append(out, msg[pos:pos+int(length)])
			}
			pos += int(length)

		case protobufWire32Bit:
			if pos+4 > len(msg) {
				return nil, fmt.Errorf("truncated 32-bit field")
			}
			pos += 4

		default:
			return nil, fmt.Errorf("unsupported protobuf wire type %d", wireType)
		}
	}
	return out, nil
}

// readVarint decodes a base-128 varint from the start of b, returning the
// value and the number of bytes consumed.
func readVarint(b []byte) (uint64, int, error) {
	var result uint64
	var shift uint
	for i := 0; i < len(b); i++ {
		byt := b[i]
		result |= uint64(byt&0x7F) << shift
		if byt&0x80 == 0 {
			return result, i + 1, nil
		}
		shift += 7
		if shift >= 64 {
			return 0, 0, fmt.Errorf("varint too long")
		}
	}
	return 0, 0, fmt.Errorf("truncated varint")
}
