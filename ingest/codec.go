package ingest

import (
	"bytes"
	"encoding/json"
	"mime"
	"strings"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/ceyewan/pushgate/xerrors"
)

const (
	ContentTypeJSON       = "application/json"
	ContentTypeMsgpack    = "application/msgpack"
	ContentTypeMsgpackAlt = "application/x-msgpack"
)

// IsMsgpack Content-Type 是否为 msgpack，空值或其它类型都按 JSON 处理
func IsMsgpack(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mt = strings.ToLower(strings.TrimSpace(contentType))
	}
	return mt == ContentTypeMsgpack || mt == ContentTypeMsgpackAlt
}

// Decode 按 Content-Type 解码批次，任何解码失败都返回 ErrMalformedBatch
func Decode(contentType string, body []byte) (*Batch, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, xerrors.Wrap(ErrMalformedBatch, "empty body")
	}

	var b Batch
	if IsMsgpack(contentType) {
		if err := msgpack.Unmarshal(body, &b); err != nil {
			return nil, wrapMalformed(err)
		}
		if err := b.requireValues(); err != nil {
			return nil, err
		}
		return &b, nil
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	if err := dec.Decode(&b); err != nil {
		return nil, wrapMalformed(err)
	}
	if dec.More() {
		return nil, xerrors.Wrap(ErrMalformedBatch, "trailing data after batch")
	}
	if err := b.requireValues(); err != nil {
		return nil, err
	}
	return &b, nil
}

func wrapMalformed(err error) error {
	if xerrors.Is(err, ErrMalformedBatch) {
		return err
	}
	return xerrors.Wrapf(ErrMalformedBatch, "%v", err)
}
