package procdog

import "testing"

func BenchmarkStatusEncode(b *testing.B) {
	st := Status{State: StateRunning, PID: 12345}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = st.Encode()
	}
}

func BenchmarkParseStatus(b *testing.B) {
	line := "exited, code=-15"
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := ParseStatus(line); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkParseCommand(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = ParseCommand("status")
	}
}
