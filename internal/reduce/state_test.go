package reduce

import "testing"

func TestNewInitializesSeenMap(t *testing.T) {
	st := New(nil, nil, nil, nil)
	if st.Seen == nil {
		t.Fatal("New should initialize Seen")
	}
	if len(st.Seen) != 0 {
		t.Errorf("Seen = %v, want empty", st.Seen)
	}
	if st.Called != 0 {
		t.Errorf("Called = %d, want 0", st.Called)
	}
}
