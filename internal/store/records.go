package store

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// MaxParams is the number of custom parameter slots in a group record.
const MaxParams = 10

const groupRecordVersion = 1

// GroupRecord is the persisted operator state of one group under one pattern.
type GroupRecord struct {
	Brightness float64
	Speed      float64
	Params     [MaxParams]float64
}

// GroupKey names the record of group g running pattern p.
func GroupKey(g, p int) string { return fmt.Sprintf("g_%d_p_%d", g, p) }

// PatternKey names the selected pattern of group g.
func PatternKey(g int) string { return fmt.Sprintf("pid_%d", g) }

// Records reads and writes typed records on a KV.
type Records struct {
	KV KV
}

func NewRecords(kv KV) *Records { return &Records{KV: kv} }

// LoadGroup returns ErrNotFound when nothing was saved for (g, p).
func (r *Records) LoadGroup(g, p int) (GroupRecord, error) {
	var rec GroupRecord
	b, err := r.KV.Get(GroupNS, GroupKey(g, p))
	if err != nil {
		return rec, err
	}
	if len(b) == 0 || b[0] != groupRecordVersion {
		return rec, fmt.Errorf("group record %s: unsupported encoding", GroupKey(g, p))
	}
	if err := binary.Read(bytes.NewReader(b[1:]), binary.LittleEndian, &rec); err != nil {
		return rec, fmt.Errorf("group record %s: %w", GroupKey(g, p), err)
	}
	return rec, nil
}

func (r *Records) SaveGroup(g, p int, rec GroupRecord) error {
	var buf bytes.Buffer
	buf.WriteByte(groupRecordVersion)
	if err := binary.Write(&buf, binary.LittleEndian, rec); err != nil {
		return err
	}
	return r.KV.Put(GroupNS, GroupKey(g, p), buf.Bytes())
}

// LoadPattern returns ErrNotFound when group g never switched pattern.
func (r *Records) LoadPattern(g int) (int, error) {
	b, err := r.KV.Get(PatternNS, PatternKey(g))
	if err != nil {
		return 0, err
	}
	if len(b) != 4 {
		return 0, fmt.Errorf("pattern record %s: bad length %d", PatternKey(g), len(b))
	}
	return int(int32(binary.LittleEndian.Uint32(b))), nil
}

func (r *Records) SavePattern(g, p int) error {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, uint32(int32(p)))
	return r.KV.Put(PatternNS, PatternKey(g), b)
}

// IsMiss reports whether err only means the record is absent.
func IsMiss(err error) bool { return errors.Is(err, ErrNotFound) }
