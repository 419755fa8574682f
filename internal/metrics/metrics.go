package metrics

import (
	"time"

	"go.uber.org/zap"
)

type RequestSample struct {
	Path      string
	Method    string
	Status    int
	Bytes     int
	RequestID string
	Latency   time.Duration
	Timestamp time.Time
}

func (s RequestSample) Fields() []zap.Field {
	fields := []zap.Field{
		zap.String("method", s.Method),
		zap.String("path", s.Path),
		zap.Int("status", s.Status),
		zap.Int("bytes", s.Bytes),
		zap.Duration("latency", s.Latency),
	}
	if s.RequestID != "" {
		fields = append(fields, zap.String("request_id", s.RequestID))
	}
	return fields
}
