package jsonx_test

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/market-agent-gateway/internal/jsonx"
	"github.com/market-agent-gateway/internal/memory"
)

var (
	benchSnapshot = func() memory.Snapshot {
		records := make([]memory.Record, 10)
		for i := range records {
			records[i] = memory.Record{
				Timestamp: "2025-08-01T09:30:00.000Z",
				Kind:      memory.KindConversation,
				Content:   fmt.Sprintf("Asked about NVDA earnings guidance, turn %d", i),
			}
		}
		return memory.NewSnapshot("Sarah", records, time.Date(2025, 8, 1, 9, 30, 0, 0, time.UTC))
	}()

	benchRawRecords = func() []byte {
		raw := make([]memory.RawRecord, 10)
		for i := range raw {
			raw[i] = memory.RawRecord{
				CreatedAt: memory.String("2025-08-01T09:30:00Z"),
				Content:   &memory.RawContent{Text: memory.String("Prefers semiconductor coverage")},
			}
		}
		data, _ := json.Marshal(raw)
		return data
	}()
)

func BenchmarkSonicMarshalSnapshot(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, _ = jsonx.Marshal(benchSnapshot)
	}
}

func BenchmarkJSONMarshalSnapshot(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, _ = json.Marshal(benchSnapshot)
	}
}

func BenchmarkSonicUnmarshalRawRecords(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		var out []memory.RawRecord
		_ = jsonx.Unmarshal(benchRawRecords, &out)
	}
}

func BenchmarkJSONUnmarshalRawRecords(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		var out []memory.RawRecord
		_ = json.Unmarshal(benchRawRecords, &out)
	}
}
