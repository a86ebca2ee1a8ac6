package maxsize

import "testing"

func TestBytesToFree(t *testing.T) {
	p := &Policy{MaxBytes: 400}

	tests := []struct {
		current int64
		want    int64
	}{
		{current: 0, want: 0},
		{current: 400, want: 0},
		{current: 401, want: 1},
		{current: 600, want: 200},
	}
	for _, tt := range tests {
		got, err := p.BytesToFree(tt.current)
		if err != nil {
			t.Fatalf("BytesToFree(%d) error = %v", tt.current, err)
		}
		if got != tt.want {
			t.Errorf("BytesToFree(%d) = %d, want %d", tt.current, got, tt.want)
		}
	}
}

func TestFromMB(t *testing.T) {
	if got := FromMB(DefaultMB).MaxBytes; got != 1024*1024*1024 {
		t.Errorf("FromMB(DefaultMB) = %d, want 1GiB", got)
	}
	if got := FromMB(0.5).MaxBytes; got != 512*1024 {
		t.Errorf("FromMB(0.5) = %d, want %d", got, 512*1024)
	}
}
