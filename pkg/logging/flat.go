package logging

import (
	"encoding/json"
	"time"

	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

var bufferPool = buffer.NewPool()

// FlatEncoderConfig returns the key layout used by the flat encoder.
func FlatEncoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		MessageKey:     "message",
		CallerKey:      "caller",
		NameKey:        "logger",
		StacktraceKey:  "stack",
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
	}
}

// FlatEncoder writes one JSON object per entry with all fields, including
// those attached through With, merged at the top level.
type FlatEncoder struct {
	*zapcore.MapObjectEncoder
	cfg zapcore.EncoderConfig
}

// NewFlatEncoder creates a new flat JSON encoder
func NewFlatEncoder(cfg zapcore.EncoderConfig) zapcore.Encoder {
	return &FlatEncoder{
		MapObjectEncoder: zapcore.NewMapObjectEncoder(),
		cfg:              cfg,
	}
}

// Clone copies the encoder together with its accumulated context fields.
func (e *FlatEncoder) Clone() zapcore.Encoder {
	clone := zapcore.NewMapObjectEncoder()
	for k, v := range e.Fields {
		clone.Fields[k] = v
	}
	return &FlatEncoder{MapObjectEncoder: clone, cfg: e.cfg}
}

// EncodeEntry implements zapcore.Encoder
func (e *FlatEncoder) EncodeEntry(entry zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	enc := zapcore.NewMapObjectEncoder()
	for k, v := range e.Fields {
		enc.Fields[k] = v
	}
	for _, f := range fields {
		f.AddTo(enc)
	}

	obj := enc.Fields
	for k, v := range obj {
		if d, ok := v.(time.Duration); ok {
			obj[k] = d.String()
		}
	}

	obj[e.cfg.TimeKey] = entry.Time.UTC().Format(time.RFC3339Nano)
	obj[e.cfg.LevelKey] = entry.Level.String()
	obj[e.cfg.MessageKey] = entry.Message
	if entry.LoggerName != "" {
		obj[e.cfg.NameKey] = entry.LoggerName
	}
	if entry.Caller.Defined {
		obj[e.cfg.CallerKey] = entry.Caller.TrimmedPath()
	}
	if entry.Stack != "" {
		obj[e.cfg.StacktraceKey] = entry.Stack
	}

	data, err := json.Marshal(obj)
	if err != nil {
		return nil, err
	}

	buf := bufferPool.Get()
	buf.AppendBytes(data)
	buf.AppendByte('\n')
	return buf, nil
}
