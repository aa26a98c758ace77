package auditlog

import "go.mongodb.org/mongo-driver/v2/bson"

// MergeRecord is the audited shape of one flushed (label, range)
// merge: the delta masks the batching writer coalesced plus the
// resulting stored bitset, encoded with BSON as a stable,
// self-describing wire shape that tolerates field additions.
type MergeRecord struct {
	LabelID      int32  `bson:"label"`
	RangeID      int64  `bson:"range"`
	AddMask      []byte `bson:"add"`
	RemoveMask   []byte `bson:"remove"`
	ResultBitset []byte `bson:"result"`
}

// Marshal encodes r to BSON bytes.
func (r MergeRecord) Marshal() ([]byte, error) {
	return bson.Marshal(r)
}

// UnmarshalMergeRecord decodes a BSON-encoded MergeRecord.
func UnmarshalMergeRecord(data []byte) (MergeRecord, error) {
	var r MergeRecord
	err := bson.Unmarshal(data, &r)
	return r, err
}
