package codec

import (
	"testing"
)

type benchSession struct {
	UserID  int64             `json:"user_id"`
	Name    string            `json:"name"`
	Score   float64           `json:"score"`
	Roles   []string          `json:"roles"`
	Attrs   map[string]string `json:"attrs"`
	Expired bool              `json:"expired"`
}

var benchValue = benchSession{
	UserID: 123456789,
	Name:   "alice",
	Score:  0.12345,
	Roles:  []string{"admin", "editor", "viewer"},
	Attrs: map[string]string{
		"locale": "en-US",
		"theme":  "dark",
		"tz":     "UTC",
	},
}

func benchmarkCodecMarshal(b *testing.B, c Codec, v any) {
	b.Helper()
	b.ReportAllocs()

	warm, err := c.Marshal(v)
	if err != nil {
		b.Fatal(err)
	}
	b.SetBytes(int64(len(warm)))

	var sink []byte
	b.ResetTimer()
	for b.Loop() {
		out, err := c.Marshal(v)
		if err != nil {
			b.Fatal(err)
		}
		sink = out
	}
	_ = sink
}

func benchmarkCodecUnmarshal(b *testing.B, c Codec, data []byte) {
	b.Helper()
	b.ReportAllocs()
	b.SetBytes(int64(len(data)))

	b.ResetTimer()
	for b.Loop() {
		var v benchSession
		if err := c.Unmarshal(data, &v); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkCodec_Marshal(b *testing.B) {
	b.Run("stdlib", func(b *testing.B) { benchmarkCodecMarshal(b, JSON{}, benchValue) })
	b.Run("go-json", func(b *testing.B) { benchmarkCodecMarshal(b, GoJSON{}, benchValue) })
}

func BenchmarkCodec_Unmarshal(b *testing.B) {
	data, err := JSON{}.Marshal(benchValue)
	if err != nil {
		b.Fatal(err)
	}

	b.Run("stdlib", func(b *testing.B) { benchmarkCodecUnmarshal(b, JSON{}, data) })
	b.Run("go-json", func(b *testing.B) { benchmarkCodecUnmarshal(b, GoJSON{}, data) })
}
