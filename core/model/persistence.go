package model

import (
	"bytes"
	"encoding/gob"
	"io"

	"github.com/YuminosukeSato/vinoscore/pkg/errors"
)

// EncodeGob はモデルをgob形式のバイト列にエンコードする
//
// パラメータ:
//   - v: エンコードするモデル（ポインタ）
//
// 戻り値:
//   - []byte: エンコード結果
//   - error: エンコードに失敗した場合のエラー
func EncodeGob(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := SaveModelToWriter(v, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeGob はgob形式のバイト列からモデルをデコードする
func DecodeGob(data []byte, v interface{}) error {
	return LoadModelFromReader(v, bytes.NewReader(data))
}

// SaveModelToWriter はモデルをio.Writerに保存する
func SaveModelToWriter(v interface{}, w io.Writer) error {
	if err := gob.NewEncoder(w).Encode(v); err != nil {
		return errors.Wrap(err, "failed to encode model")
	}
	return nil
}

// LoadModelFromReader はio.Readerからモデルを読み込む
//
// パラメータ:
//   - v: 読み込み先のモデル（ポインタ）
//   - r: 読み込み元のReader
func LoadModelFromReader(v interface{}, r io.Reader) error {
	if err := gob.NewDecoder(r).Decode(v); err != nil {
		return errors.Wrap(err, "failed to decode model")
	}
	return nil
}
