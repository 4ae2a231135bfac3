package core

import (
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
)

// MUS serializers for types that cross the storage boundary. Written by
// hand against mus-go primitives; field order is part of the stored
// format and must not change without a data migration.
var (
	RecordMUS            = recordMUS{}
	RecordSliceMUS       = ord.NewSliceSer[Record](RecordMUS)
	EmbeddingDocumentMUS = embeddingDocumentMUS{}

	float32SliceMUS = ord.NewSliceSer[float32](varint.Float32)
)

type recordMUS struct{}

func (s recordMUS) Marshal(r Record, bs []byte) (n int) {
	n = ord.String.Marshal(r.MetricType, bs)
	n += ord.String.Marshal(r.Value, bs[n:])
	n += ord.String.Marshal(r.Unit, bs[n:])
	n += varint.Int64.Marshal(r.StartDate.UnixMicro(), bs[n:])
	n += varint.Int64.Marshal(r.EndDate.UnixMicro(), bs[n:])
	n += ord.Bool.Marshal(r.HasEndDate, bs[n:])
	n += ord.String.Marshal(r.SourceName, bs[n:])
	n += ord.String.Marshal(r.SourceVersion, bs[n:])
	n += ord.String.Marshal(r.Device, bs[n:])
	n += varint.Int64.Marshal(r.CreationDate.UnixMicro(), bs[n:])
	return n
}

func (s recordMUS) Unmarshal(bs []byte) (r Record, n int, err error) {
	var n1 int
	if r.MetricType, n, err = ord.String.Unmarshal(bs); err != nil {
		return
	}
	if r.Value, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return r, n + n1, err
	}
	n += n1
	if r.Unit, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return r, n + n1, err
	}
	n += n1
	var micros int64
	if micros, n1, err = varint.Int64.Unmarshal(bs[n:]); err != nil {
		return r, n + n1, err
	}
	n += n1
	r.StartDate = time.UnixMicro(micros).UTC()
	if micros, n1, err = varint.Int64.Unmarshal(bs[n:]); err != nil {
		return r, n + n1, err
	}
	n += n1
	r.EndDate = time.UnixMicro(micros).UTC()
	if r.HasEndDate, n1, err = ord.Bool.Unmarshal(bs[n:]); err != nil {
		return r, n + n1, err
	}
	n += n1
	if r.SourceName, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return r, n + n1, err
	}
	n += n1
	if r.SourceVersion, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return r, n + n1, err
	}
	n += n1
	if r.Device, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return r, n + n1, err
	}
	n += n1
	if micros, n1, err = varint.Int64.Unmarshal(bs[n:]); err != nil {
		return r, n + n1, err
	}
	n += n1
	r.CreationDate = time.UnixMicro(micros).UTC()
	return r, n, nil
}

func (s recordMUS) Size(r Record) (size int) {
	size = ord.String.Size(r.MetricType)
	size += ord.String.Size(r.Value)
	size += ord.String.Size(r.Unit)
	size += varint.Int64.Size(r.StartDate.UnixMicro())
	size += varint.Int64.Size(r.EndDate.UnixMicro())
	size += ord.Bool.Size(r.HasEndDate)
	size += ord.String.Size(r.SourceName)
	size += ord.String.Size(r.SourceVersion)
	size += ord.String.Size(r.Device)
	size += varint.Int64.Size(r.CreationDate.UnixMicro())
	return size
}

func (s recordMUS) Skip(bs []byte) (n int, err error) {
	var n1 int
	for i := 0; i < 3; i++ {
		if n1, err = ord.String.Skip(bs[n:]); err != nil {
			return n + n1, err
		}
		n += n1
	}
	for i := 0; i < 2; i++ {
		if n1, err = varint.Int64.Skip(bs[n:]); err != nil {
			return n + n1, err
		}
		n += n1
	}
	if n1, err = ord.Bool.Skip(bs[n:]); err != nil {
		return n + n1, err
	}
	n += n1
	for i := 0; i < 3; i++ {
		if n1, err = ord.String.Skip(bs[n:]); err != nil {
			return n + n1, err
		}
		n += n1
	}
	if n1, err = varint.Int64.Skip(bs[n:]); err != nil {
		return n + n1, err
	}
	return n + n1, nil
}

type embeddingDocumentMUS struct{}

func (s embeddingDocumentMUS) Marshal(d EmbeddingDocument, bs []byte) (n int) {
	n = ord.String.Marshal(d.ID, bs)
	n += ord.String.Marshal(d.OwnerID, bs[n:])
	n += ord.String.Marshal(d.DocumentID, bs[n:])
	n += varint.Int.Marshal(d.ChunkIndex, bs[n:])
	n += ord.String.Marshal(d.ContentChunk, bs[n:])
	n += float32SliceMUS.Marshal(d.Embedding, bs[n:])
	n += ord.ByteSlice.Marshal(d.Metadata, bs[n:])
	n += varint.Int64.Marshal(d.Timestamp.UnixMicro(), bs[n:])
	return n
}

func (s embeddingDocumentMUS) Unmarshal(bs []byte) (d EmbeddingDocument, n int, err error) {
	var n1 int
	if d.ID, n, err = ord.String.Unmarshal(bs); err != nil {
		return
	}
	if d.OwnerID, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return d, n + n1, err
	}
	n += n1
	if d.DocumentID, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return d, n + n1, err
	}
	n += n1
	if d.ChunkIndex, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return d, n + n1, err
	}
	n += n1
	if d.ContentChunk, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return d, n + n1, err
	}
	n += n1
	if d.Embedding, n1, err = float32SliceMUS.Unmarshal(bs[n:]); err != nil {
		return d, n + n1, err
	}
	n += n1
	if d.Metadata, n1, err = ord.ByteSlice.Unmarshal(bs[n:]); err != nil {
		return d, n + n1, err
	}
	n += n1
	var micros int64
	if micros, n1, err = varint.Int64.Unmarshal(bs[n:]); err != nil {
		return d, n + n1, err
	}
	n += n1
	d.Timestamp = time.UnixMicro(micros).UTC()
	return d, n, nil
}

func (s embeddingDocumentMUS) Size(d EmbeddingDocument) (size int) {
	size = ord.String.Size(d.ID)
	size += ord.String.Size(d.OwnerID)
	size += ord.String.Size(d.DocumentID)
	size += varint.Int.Size(d.ChunkIndex)
	size += ord.String.Size(d.ContentChunk)
	size += float32SliceMUS.Size(d.Embedding)
	size += ord.ByteSlice.Size(d.Metadata)
	size += varint.Int64.Size(d.Timestamp.UnixMicro())
	return size
}

func (s embeddingDocumentMUS) Skip(bs []byte) (n int, err error) {
	var n1 int
	for i := 0; i < 3; i++ {
		if n1, err = ord.String.Skip(bs[n:]); err != nil {
			return n + n1, err
		}
		n += n1
	}
	if n1, err = varint.Int.Skip(bs[n:]); err != nil {
		return n + n1, err
	}
	n += n1
	if n1, err = ord.String.Skip(bs[n:]); err != nil {
		return n + n1, err
	}
	n += n1
	if n1, err = float32SliceMUS.Skip(bs[n:]); err != nil {
		return n + n1, err
	}
	n += n1
	if n1, err = ord.ByteSlice.Skip(bs[n:]); err != nil {
		return n + n1, err
	}
	n += n1
	if n1, err = varint.Int64.Skip(bs[n:]); err != nil {
		return n + n1, err
	}
	return n + n1, nil
}
